package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/hooktriage/internal/ledger"
	"github.com/starford/hooktriage/internal/models"
	"github.com/starford/hooktriage/internal/pipeline"
	"github.com/starford/hooktriage/internal/testutil"
	"github.com/starford/hooktriage/internal/triage"
)

func testServer(t *testing.T) (*Server, *ledger.Ledger, *testutil.FakePublisher) {
	t.Helper()

	l := testutil.TestLedger(t)
	db := testutil.TestDB(t)
	fetcher := &testutil.FakeFetcher{Issues: map[int]*models.IssueRecord{
		9: testutil.Issue(9, "T-9 Hook Reaction test", "priority:high"),
	}}
	pub := &testutil.FakePublisher{}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	svc := pipeline.New(triage.New("alephOne"), fetcher, l,
		pipeline.WithPublisher(pub), pipeline.WithLogger(logger))
	return New(svc, db, l, logger), l, pub
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so dispatch to the
	// handler functions.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "handle_hook":
		result, err = srv.handleHook(ctx, req)
	case "preview_triage":
		result, err = srv.previewTriage(ctx, req)
	case "list_ledger_events":
		result, err = srv.listLedgerEvents(ctx, req)
	case "search_ledger":
		result, err = srv.searchLedger(ctx, req)
	case "get_ledger_contract":
		result, err = srv.getLedgerContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestHandleHook(t *testing.T) {
	srv, l, pub := testServer(t)

	r := callTool(t, srv, "handle_hook", map[string]interface{}{"message": testutil.SampleHook})
	if r.IsError {
		t.Fatalf("handle_hook error: %s", resultText(r))
	}
	var out pipeline.Outcome
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if out.Event == nil || out.Event.Task != "T-9" || !out.Published {
		t.Errorf("outcome = %+v", out)
	}

	lines, _ := l.ReadAll()
	if len(lines) != 1 {
		t.Errorf("ledger lines = %d, want 1", len(lines))
	}
	if len(pub.Messages) != 1 || pub.Messages[0] != "T-9: alephOne automated triage (hook handler)" {
		t.Errorf("commit messages = %v", pub.Messages)
	}
}

func TestHandleHook_MissingMessage(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "handle_hook", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing message")
	}
}

func TestHandleHook_NoIssueNumber(t *testing.T) {
	srv, l, _ := testServer(t)
	r := callTool(t, srv, "handle_hook", map[string]interface{}{"message": "Participants: alephOne"})
	if !r.IsError {
		t.Error("expected error for hook without issue number")
	}
	lines, _ := l.ReadAll()
	if len(lines) != 0 {
		t.Errorf("ledger lines = %d, want 0", len(lines))
	}
}

func TestHandleHook_PublishFailureMentionsEvent(t *testing.T) {
	srv, _, pub := testServer(t)
	pub.PublishErr = errors.New("push rejected")

	r := callTool(t, srv, "handle_hook", map[string]interface{}{"message": testutil.SampleHook})
	if !r.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(resultText(r), "appended locally") {
		t.Errorf("error text = %q", resultText(r))
	}
}

func TestPreviewTriage(t *testing.T) {
	srv, l, _ := testServer(t)

	r := callTool(t, srv, "preview_triage", map[string]interface{}{
		"message": strings.Replace(testutil.SampleHook, "alephOne, ", "", 1),
	})
	if r.IsError {
		t.Fatalf("preview error: %s", resultText(r))
	}
	var out pipeline.Outcome
	_ = json.Unmarshal([]byte(resultText(r)), &out)
	if out.Decision == nil || out.Decision.Participating {
		t.Errorf("decision = %+v", out.Decision)
	}
	lines, _ := l.ReadAll()
	if len(lines) != 0 {
		t.Errorf("preview wrote %d lines", len(lines))
	}
}

func TestListLedgerEvents(t *testing.T) {
	srv, _, _ := testServer(t)
	_ = callTool(t, srv, "handle_hook", map[string]interface{}{"message": testutil.SampleHook})

	r := callTool(t, srv, "list_ledger_events", map[string]interface{}{"task": "T-9"})
	if r.IsError {
		t.Fatalf("list error: %s", resultText(r))
	}
	var resp struct {
		Events []json.RawMessage `json:"events"`
		Total  int               `json:"total"`
	}
	_ = json.Unmarshal([]byte(resultText(r)), &resp)
	if resp.Total != 1 || len(resp.Events) != 1 {
		t.Errorf("list = %s", resultText(r))
	}
}

func TestSearchLedger(t *testing.T) {
	srv, _, _ := testServer(t)
	_ = callTool(t, srv, "handle_hook", map[string]interface{}{"message": testutil.SampleHook})

	r := callTool(t, srv, "search_ledger", map[string]interface{}{"query": "triage"})
	if r.IsError {
		t.Fatalf("search error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"task": "T-9"`) {
		t.Errorf("search = %s", resultText(r))
	}
}

func TestGetLedgerContract(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "get_ledger_contract", nil)
	if !strings.Contains(resultText(r), "task.blocked") {
		t.Error("contract should describe task.blocked")
	}
}

func TestLedgerFormatResource(t *testing.T) {
	srv, _, _ := testServer(t)
	contents, err := srv.readLedgerFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != LedgerFormatURI || tc.Text != LedgerFormatContract {
		t.Errorf("resource = %+v", contents[0])
	}
}
