package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/hooktriage/internal/apperr"
	"github.com/starford/hooktriage/internal/models"
)

// EventRow is one indexed ledger line.
type EventRow struct {
	Line     int    `json:"line"`
	Checksum string `json:"checksum"`
	models.LedgerEvent
}

// SearchResult is one search hit.
type SearchResult struct {
	Line    int    `json:"line"`
	Event   string `json:"event"`
	Task    string `json:"task,omitempty"`
	Snippet string `json:"snippet"`
}

// Filter narrows ListEvents. Zero fields match everything.
type Filter struct {
	Event  string
	Task   string
	Agent  string
	Limit  int
	Offset int
}

const eventColumns = `line, checksum, ts, agent, event, task, reason, text, artifact`

// UpsertEvent inserts or replaces the row for a ledger line.
func (db *DB) UpsertEvent(r EventRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(line) DO UPDATE SET
			checksum = excluded.checksum,
			ts       = excluded.ts,
			agent    = excluded.agent,
			event    = excluded.event,
			task     = excluded.task,
			reason   = excluded.reason,
			text     = excluded.text,
			artifact = excluded.artifact
	`, r.Line, r.Checksum, r.TS, r.Agent, string(r.Event), r.Task, r.Reason, r.Text, r.Artifact)
	if err != nil {
		return fmt.Errorf("index: upsert event: %w", err)
	}

	if err := ftsUpsert(tx, r.Line, r.Task, r.Text, r.Reason); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteEvent removes the row for line, if any.
func (db *DB) DeleteEvent(line int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, line)
	if _, err := tx.Exec(`DELETE FROM events WHERE line = ?`, line); err != nil {
		return fmt.Errorf("index: delete event: %w", err)
	}
	return tx.Commit()
}

// TruncateAfter removes rows for lines past the end of the log and returns
// their line numbers. The ledger only grows, so this fires only when the
// file was replaced (for example by a git checkout).
func (db *DB) TruncateAfter(line int) ([]int, error) {
	rows, err := db.conn.Query(`SELECT line FROM events WHERE line > ? ORDER BY line`, line)
	if err != nil {
		return nil, fmt.Errorf("index: truncate scan: %w", err)
	}
	var gone []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return nil, err
		}
		gone = append(gone, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(gone) == 0 {
		return nil, nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, n := range gone {
		ftsDelete(tx, n)
	}
	if _, err := tx.Exec(`DELETE FROM events WHERE line > ?`, line); err != nil {
		return nil, fmt.Errorf("index: truncate: %w", err)
	}
	return gone, tx.Commit()
}

// AllChecksums returns line -> checksum for every indexed line.
func (db *DB) AllChecksums() (map[int]string, error) {
	rows, err := db.conn.Query(`SELECT line, checksum FROM events`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[int]string)
	for rows.Next() {
		var n int
		var cs string
		if err := rows.Scan(&n, &cs); err != nil {
			return nil, err
		}
		out[n] = cs
	}
	return out, rows.Err()
}

// GetEvent returns the row for line, or apperr.ErrNotFound.
func (db *DB) GetEvent(line int) (*EventRow, error) {
	row := db.conn.QueryRow(`SELECT `+eventColumns+` FROM events WHERE line = ?`, line)
	r, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get event: %w", err)
	}
	return r, nil
}

// ListEvents returns matching rows newest first, plus the total match count.
func (db *DB) ListEvents(f Filter) ([]EventRow, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var where []string
	var args []any
	if f.Event != "" {
		where = append(where, "event = ?")
		args = append(args, f.Event)
	}
	if f.Task != "" {
		where = append(where, "task = ?")
		args = append(args, f.Task)
	}
	if f.Agent != "" {
		where = append(where, "agent = ?")
		args = append(args, f.Agent)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM events`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count events: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+eventColumns+` FROM events`+clause+
		` ORDER BY line DESC LIMIT ? OFFSET ?`, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list events: %w", err)
	}
	defer rows.Close()

	out, err := scanEvents(rows)
	return out, total, err
}

// TaskHistory returns every event for task in ledger order.
func (db *DB) TaskHistory(task string) ([]EventRow, error) {
	rows, err := db.conn.Query(`SELECT `+eventColumns+` FROM events WHERE task = ? ORDER BY line`, task)
	if err != nil {
		return nil, fmt.Errorf("index: task history: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*EventRow, error) {
	var r EventRow
	var kind string
	if err := s.Scan(&r.Line, &r.Checksum, &r.TS, &r.Agent, &kind, &r.Task, &r.Reason, &r.Text, &r.Artifact); err != nil {
		return nil, err
	}
	r.Event = models.EventKind(kind)
	return &r, nil
}

func scanEvents(rows *sql.Rows) ([]EventRow, error) {
	out := []EventRow{}
	for rows.Next() {
		r, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
