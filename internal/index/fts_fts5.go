//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
			line UNINDEXED,
			task,
			text,
			reason,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, line int, task, text, reason string) error {
	_, _ = tx.Exec(`DELETE FROM events_fts WHERE line = ?`, line)
	_, err := tx.Exec(`INSERT INTO events_fts (line, task, text, reason) VALUES (?, ?, ?, ?)`,
		line, task, text, reason)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, line int) {
	_, _ = tx.Exec(`DELETE FROM events_fts WHERE line = ?`, line)
}

// Search performs an FTS5 full-text search and returns matching results with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT f.line,
		       e.event,
		       e.task,
		       snippet(events_fts, 2, '<b>', '</b>', '...', 32)
		FROM events_fts f
		JOIN events e ON e.line = f.line
		WHERE events_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Line, &r.Event, &r.Task, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
