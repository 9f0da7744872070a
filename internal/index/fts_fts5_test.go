//go:build sqlite_fts5

package index

import "testing"

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM events_fts`).Scan(&count); err != nil {
		t.Fatalf("events_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := EventRow{Line: 1, Checksum: "f1", LedgerEvent: progress("T-3", "Hook triage completed with powerful classification.")}
	if err := db.UpsertEvent(row); err != nil {
		t.Fatalf("UpsertEvent: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Task != "T-3" {
		t.Errorf("task = %q", results[0].Task)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_TruncateRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertEvent(EventRow{Line: 1, Checksum: "a", LedgerEvent: progress("T-1", "keep")})
	_ = db.UpsertEvent(EventRow{Line: 2, Checksum: "b", LedgerEvent: progress("T-2", "ephemeral")})

	if _, err := db.TruncateAfter(1); err != nil {
		t.Fatalf("TruncateAfter: %v", err)
	}
	results, _ := db.Search("ephemeral", 10)
	if len(results) != 0 {
		t.Errorf("expected 0 results after truncate, got %d", len(results))
	}
}
