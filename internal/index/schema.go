// Package index keeps a SQLite index of the ledger for queries. The index is
// derived state: it can be dropped and rebuilt from events.jsonl at any time.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS events (
	line     INTEGER PRIMARY KEY,
	checksum TEXT NOT NULL DEFAULT '',
	ts       TEXT NOT NULL DEFAULT '',
	agent    TEXT NOT NULL DEFAULT '',
	event    TEXT NOT NULL DEFAULT '',
	task     TEXT NOT NULL DEFAULT '',
	reason   TEXT NOT NULL DEFAULT '',
	text     TEXT NOT NULL DEFAULT '',
	artifact TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_task ON events(task);
CREATE INDEX IF NOT EXISTS idx_events_event ON events(event);
CREATE INDEX IF NOT EXISTS idx_events_agent ON events(agent);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
