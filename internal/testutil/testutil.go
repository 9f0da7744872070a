// Package testutil provides shared test helpers for ledgers, indexes, and
// fake collaborators.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/hooktriage/internal/index"
	"github.com/starford/hooktriage/internal/ledger"
	"github.com/starford/hooktriage/internal/models"
)

// SampleHook is a notification for issue 9 with alephOne participating.
const SampleHook = `[DANA] Hook received: issues.opened
Issue: #9 T-9 Hook Reaction test
https://github.com/clawDANA/dana-ledger/issues/9
Participants: alephOne, bob`

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "hooktriage-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLedger creates a temporary ledger repository with its ledger/ directory.
func TestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "ledger"), 0o755); err != nil {
		t.Fatal(err)
	}
	l, err := ledger.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

// Issue returns an issue record for number with the given title and labels.
func Issue(number int, title string, labels ...string) *models.IssueRecord {
	return &models.IssueRecord{
		Number:  number,
		Title:   title,
		Body:    "body",
		HTMLURL: fmt.Sprintf("https://github.com/clawDANA/dana-ledger/issues/%d", number),
		Labels:  labels,
	}
}

// FakeFetcher serves issues from a map.
type FakeFetcher struct {
	mu     sync.Mutex
	Issues map[int]*models.IssueRecord
	Err    error
	Calls  int
}

// FetchIssue implements pipeline.IssueFetcher.
func (f *FakeFetcher) FetchIssue(_ context.Context, number int) (*models.IssueRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	rec, ok := f.Issues[number]
	if !ok {
		return nil, fmt.Errorf("issue %d not found", number)
	}
	cp := *rec
	return &cp, nil
}

// FakePublisher records publish calls.
type FakePublisher struct {
	mu         sync.Mutex
	ViewsErr   error
	PublishErr error
	ViewsCalls int
	Messages   []string
}

// RegenerateViews implements pipeline.Publisher.
func (p *FakePublisher) RegenerateViews(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ViewsCalls++
	return p.ViewsErr
}

// Publish implements pipeline.Publisher.
func (p *FakePublisher) Publish(_ context.Context, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.PublishErr != nil {
		return p.PublishErr
	}
	p.Messages = append(p.Messages, message)
	return nil
}
