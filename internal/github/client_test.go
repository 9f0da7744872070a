package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/starford/hooktriage/internal/credential"
)

func testClient(t *testing.T, handler http.HandlerFunc, tokens credential.Source) *Client {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{
		BaseURL:    srv.URL,
		Owner:      "clawDANA",
		Repo:       "dana-ledger",
		Tokens:     tokens,
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestFetchIssue(t *testing.T) {
	var gotPath, gotAuth, gotVersion string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("X-GitHub-Api-Version")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"number":   42,
			"title":    "T-42 Hook Reaction test",
			"body":     "Please react.",
			"html_url": "https://github.com/clawDANA/dana-ledger/issues/42",
			"labels": []map[string]any{
				{"name": "priority:high", "color": "ff0000"},
				{"name": "area:hooks"},
				{"name": "kind:test"},
			},
		})
	}, credential.Static("tok"))

	rec, err := c.FetchIssue(context.Background(), 42)
	if err != nil {
		t.Fatalf("FetchIssue: %v", err)
	}
	if gotPath != "/repos/clawDANA/dana-ledger/issues/42" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotVersion != apiVersion {
		t.Errorf("api version = %q", gotVersion)
	}
	if rec.Number != 42 || rec.Title != "T-42 Hook Reaction test" || rec.Body != "Please react." {
		t.Errorf("record = %+v", rec)
	}
	want := []string{"priority:high", "area:hooks", "kind:test"}
	if !reflect.DeepEqual(rec.Labels, want) {
		t.Errorf("labels = %v, want %v (API order)", rec.Labels, want)
	}
}

func TestFetchIssue_NullBodyNoToken(t *testing.T) {
	var gotAuth string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"number":1,"title":"x","body":null,"html_url":"https://github.com/o/r/issues/1","labels":[]}`))
	}, nil)

	rec, err := c.FetchIssue(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchIssue: %v", err)
	}
	if rec.Body != "" || len(rec.Labels) != 0 {
		t.Errorf("record = %+v", rec)
	}
	if gotAuth != "" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
}

func TestFetchIssue_NotFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}, nil)

	_, err := c.FetchIssue(context.Background(), 404)
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want 404 APIError", err)
	}
}

func TestFetchIssue_ServerErrorNotRetried(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusBadGateway)
	}, nil)

	if _, err := c.FetchIssue(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestFetchIssue_IncompleteRecord(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"number":3,"title":"x"}`))
	}, nil)
	if _, err := c.FetchIssue(context.Background(), 3); err == nil {
		t.Fatal("expected validation error for missing html_url")
	}
}

func TestNewClient_RequiresHTTPS(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://api.github.com", Owner: "o", Repo: "r"})
	if err == nil {
		t.Error("expected HTTPS error")
	}
}

func TestNewClient_RequiresRepo(t *testing.T) {
	if _, err := NewClient(Config{Owner: "o"}); err == nil {
		t.Error("expected error for missing repo")
	}
}
