package parser

import (
	"reflect"
	"testing"
)

const sampleHook = `[DANA] Hook received: issues.opened
Issue: #42 Some Title
https://github.com/clawDANA/dana-ledger/issues/42
Participants: alephOne, bob, carol`

func TestParse_FullMessage(t *testing.T) {
	got := Parse(sampleHook)
	if got.EventLabel != "issues.opened" {
		t.Errorf("event label = %q", got.EventLabel)
	}
	if got.IssueNumber != 42 {
		t.Errorf("issue number = %d, want 42", got.IssueNumber)
	}
	if got.IssueTitleHint != "Some Title" {
		t.Errorf("title hint = %q, want %q", got.IssueTitleHint, "Some Title")
	}
	if got.URL != "https://github.com/clawDANA/dana-ledger/issues/42" {
		t.Errorf("url = %q", got.URL)
	}
	want := []string{"alephOne", "bob", "carol"}
	if !reflect.DeepEqual(got.Participants, want) {
		t.Errorf("participants = %v, want %v", got.Participants, want)
	}
}

func TestParse_IssueLineOnly(t *testing.T) {
	got := Parse("noise\nIssue: #42 Some Title\nmore noise")
	if got.IssueNumber != 42 || got.IssueTitleHint != "Some Title" {
		t.Errorf("got %d %q", got.IssueNumber, got.IssueTitleHint)
	}
}

func TestParse_IssueWithoutTitle(t *testing.T) {
	got := Parse("Issue: #7")
	if got.IssueNumber != 7 {
		t.Errorf("issue number = %d, want 7", got.IssueNumber)
	}
	if got.IssueTitleHint != "" {
		t.Errorf("title hint = %q, want empty", got.IssueTitleHint)
	}
}

func TestParse_IssueNotNumeric(t *testing.T) {
	got := Parse("Issue: #abc title")
	if got.HasIssue() {
		t.Errorf("expected no issue, got %d", got.IssueNumber)
	}
}

func TestParse_ParticipantsTrimmed(t *testing.T) {
	cases := []string{
		"Participants: a, b, c",
		"Participants:a,b,c",
		"Participants:  a ,b , c ,  ",
		"   Participants: a, b, c   ",
	}
	want := []string{"a", "b", "c"}
	for _, in := range cases {
		got := Parse(in)
		if !reflect.DeepEqual(got.Participants, want) {
			t.Errorf("Parse(%q).Participants = %v, want %v", in, got.Participants, want)
		}
	}
}

func TestParse_EmptyParticipants(t *testing.T) {
	got := Parse("Participants:   ")
	if got.Participants == nil || len(got.Participants) != 0 {
		t.Errorf("participants = %#v, want empty non-nil slice", got.Participants)
	}
}

func TestParse_LastOccurrenceWins(t *testing.T) {
	got := Parse("Issue: #1 First\nParticipants: x\nIssue: #2 Second\nParticipants: y, z")
	if got.IssueNumber != 2 || got.IssueTitleHint != "Second" {
		t.Errorf("issue = %d %q, want 2 Second", got.IssueNumber, got.IssueTitleHint)
	}
	if !reflect.DeepEqual(got.Participants, []string{"y", "z"}) {
		t.Errorf("participants = %v", got.Participants)
	}
}

func TestParse_OrderInsensitive(t *testing.T) {
	got := Parse("Participants: a\nhttps://github.com/o/r/issues/3\nIssue: #3 T\n[DANA] Hook received: x")
	if got.IssueNumber != 3 || got.URL == "" || got.EventLabel != "x" || len(got.Participants) != 1 {
		t.Errorf("unexpected intent %+v", got)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	got := Parse("")
	if got.HasIssue() || got.EventLabel != "" || got.URL != "" || len(got.Participants) != 0 {
		t.Errorf("expected empty intent, got %+v", got)
	}
}

func TestParse_EventLabelAfterFirstColon(t *testing.T) {
	got := Parse("[DANA] Hook received: discussion: comment created")
	if got.EventLabel != "discussion: comment created" {
		t.Errorf("event label = %q", got.EventLabel)
	}
}
