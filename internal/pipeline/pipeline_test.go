package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/hooktriage/internal/apperr"
	"github.com/starford/hooktriage/internal/ledger"
	"github.com/starford/hooktriage/internal/models"
	"github.com/starford/hooktriage/internal/testutil"
	"github.com/starford/hooktriage/internal/triage"
)

type env struct {
	svc       *Service
	fetcher   *testutil.FakeFetcher
	publisher *testutil.FakePublisher
	ledger    *ledger.Ledger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		fetcher: &testutil.FakeFetcher{Issues: map[int]*models.IssueRecord{
			9: testutil.Issue(9, "T-9 Hook Reaction test", "priority:high"),
		}},
		publisher: &testutil.FakePublisher{},
		ledger:    testutil.TestLedger(t),
	}
	e.svc = New(triage.New("alephOne"), e.fetcher, e.ledger, WithPublisher(e.publisher))
	return e
}

func (e *env) lines(t *testing.T) []ledger.Line {
	t.Helper()
	lines, err := e.ledger.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return lines
}

func TestHandle_Success(t *testing.T) {
	e := newEnv(t)
	out, err := e.svc.Handle(context.Background(), testutil.SampleHook)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out.RunID == "" || !out.Published {
		t.Errorf("outcome = %+v", out)
	}
	if out.Event == nil || out.Event.Event != models.EventTaskProgress || out.Event.Task != "T-9" {
		t.Fatalf("event = %+v", out.Event)
	}
	if out.Event.Agent != "alephOne" || out.Event.TS == "" {
		t.Errorf("event not stamped: %+v", out.Event)
	}
	if len(e.lines(t)) != 1 {
		t.Errorf("ledger lines = %d, want 1", len(e.lines(t)))
	}
	if e.publisher.ViewsCalls != 1 {
		t.Errorf("views calls = %d", e.publisher.ViewsCalls)
	}
	if len(e.publisher.Messages) != 1 || e.publisher.Messages[0] != "T-9: alephOne automated triage (hook handler)" {
		t.Errorf("commit messages = %v", e.publisher.Messages)
	}
}

func TestHandle_NoIssueNumberAbortsBeforeIO(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Handle(context.Background(), "[DANA] Hook received: ping\nParticipants: alephOne")
	if !errors.Is(err, apperr.ErrNoIssueNumber) {
		t.Fatalf("err = %v, want ErrNoIssueNumber", err)
	}
	if e.fetcher.Calls != 0 {
		t.Errorf("fetcher called %d times", e.fetcher.Calls)
	}
	if _, statErr := os.Stat(e.ledger.Path()); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("ledger should not be touched")
	}
}

func TestHandle_FetchFailureAbortsBeforeAppend(t *testing.T) {
	e := newEnv(t)
	e.fetcher.Err = errors.New("HTTP 401")
	_, err := e.svc.Handle(context.Background(), testutil.SampleHook)
	if !errors.Is(err, apperr.ErrFetch) || !strings.Contains(err.Error(), "HTTP 401") {
		t.Fatalf("err = %v, want ErrFetch", err)
	}
	if len(e.lines(t)) != 0 {
		t.Error("ledger should be untouched after fetch failure")
	}
	if e.publisher.ViewsCalls != 0 {
		t.Error("publisher should not run")
	}
}

func TestHandle_AppendFailureStopsPublish(t *testing.T) {
	e := newEnv(t)
	if err := os.RemoveAll(filepath.Join(e.ledger.Root(), "ledger")); err != nil {
		t.Fatal(err)
	}
	_, err := e.svc.Handle(context.Background(), testutil.SampleHook)
	if !errors.Is(err, apperr.ErrAppend) {
		t.Fatalf("err = %v, want ErrAppend", err)
	}
	if e.publisher.ViewsCalls != 0 || len(e.publisher.Messages) != 0 {
		t.Error("publisher should not run after append failure")
	}
}

func TestHandle_ViewsFailureKeepsLocalAppend(t *testing.T) {
	e := newEnv(t)
	e.publisher.ViewsErr = errors.New("npm failed")
	out, err := e.svc.Handle(context.Background(), testutil.SampleHook)
	if !errors.Is(err, apperr.ErrPublish) {
		t.Fatalf("err = %v, want ErrPublish", err)
	}
	if out.Event == nil || out.Published {
		t.Errorf("outcome = %+v", out)
	}
	if len(e.lines(t)) != 1 {
		t.Error("append should remain after publish failure")
	}
	if len(e.publisher.Messages) != 0 {
		t.Error("git publish should not run after views failure")
	}
}

func TestHandle_PushFailure(t *testing.T) {
	e := newEnv(t)
	e.publisher.PublishErr = errors.New("push rejected")
	_, err := e.svc.Handle(context.Background(), testutil.SampleHook)
	if !errors.Is(err, apperr.ErrPublish) {
		t.Fatalf("err = %v, want ErrPublish", err)
	}
	if len(e.lines(t)) != 1 {
		t.Error("ledger should be ahead of the published state")
	}
}

func TestHandle_BlockedCommitUsesTitleTask(t *testing.T) {
	e := newEnv(t)
	out, err := e.svc.Handle(context.Background(), "Issue: #9\nParticipants: bob")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out.Event.Event != models.EventTaskBlocked || out.Event.Task != "" {
		t.Errorf("event = %+v", out.Event)
	}
	if e.publisher.Messages[0] != "T-9: alephOne automated triage (hook handler)" {
		t.Errorf("commit message = %q", e.publisher.Messages[0])
	}
}

func TestHandle_TwoRunsTwoLines(t *testing.T) {
	e := newEnv(t)
	first, err := e.svc.Handle(context.Background(), testutil.SampleHook)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.svc.Handle(context.Background(), testutil.SampleHook)
	if err != nil {
		t.Fatal(err)
	}
	if first.RunID == second.RunID {
		t.Error("run ids should differ")
	}
	lines := e.lines(t)
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	for _, l := range lines {
		if l.Err != nil {
			t.Errorf("line %d: %v", l.Number, l.Err)
		}
		if err := l.Event.Validate(); err != nil {
			t.Errorf("line %d invalid: %v", l.Number, err)
		}
	}
}

func TestHandle_WithoutPublisher(t *testing.T) {
	e := newEnv(t)
	svc := New(triage.New("alephOne"), e.fetcher, e.ledger)
	out, err := svc.Handle(context.Background(), testutil.SampleHook)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out.Published {
		t.Error("Published should be false without a publisher")
	}
}

func TestPreview_DoesNotWrite(t *testing.T) {
	e := newEnv(t)
	out, err := e.svc.Preview(context.Background(), testutil.SampleHook)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if out.Decision == nil || out.Decision.Plan.Horizon != triage.HorizonNow {
		t.Errorf("decision = %+v", out.Decision)
	}
	if out.Event != nil {
		t.Error("preview should not produce a stamped event")
	}
	if len(e.lines(t)) != 0 || e.publisher.ViewsCalls != 0 {
		t.Error("preview should have no side effects")
	}
}
