// Package eventlog records router and queue lifecycle events in a SQLite
// database: ingestion, delivery, failures, expiry sweeps, and drops. The
// log is append-only; the CLI reads it back for inspection.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SchemaDDL defines the SQLite schema for the Conclave event database.
// Execute against a SQLite database with: db.Exec(SchemaDDL)
const SchemaDDL = `
-- Runtime event log: message and expert lifecycle events
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY,
    type TEXT NOT NULL,
    source TEXT NOT NULL,
    message_id TEXT,
    expert_id INTEGER,
    detail TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
CREATE INDEX IF NOT EXISTS idx_events_message ON events(message_id);
`

// Event types written by the router and queue store.
const (
	TypeIngested  = "ingested"
	TypeDelivered = "delivered"
	TypeFailed    = "delivery_failed"
	TypeExpired   = "expired"
	TypeDropped   = "dropped"
	TypeState     = "state_change"
)

// Event is one row of the event log.
type Event struct {
	ID        int64
	Type      string
	Source    string
	MessageID string
	ExpertID  int
	Detail    string
	CreatedAt time.Time
}

// Writer appends events to the log.
type Writer struct {
	db *sql.DB
}

// Open opens (creating if needed) the event database in WAL mode and
// applies the schema.
func Open(dbPath string) (*Writer, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open event db: %w", err)
	}
	if _, err := db.Exec(SchemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Writer{db: db}, nil
}

// Close releases the database connection. Safe to call multiple times.
func (w *Writer) Close() error {
	if w.db != nil {
		return w.db.Close()
	}
	return nil
}

// Log appends one event. A nil Writer is a no-op, so callers can run
// without an event log wired in.
func (w *Writer) Log(ctx context.Context, evType, source, messageID string, expertID int, detail string) error {
	if w == nil {
		return nil
	}
	_, err := w.db.ExecContext(ctx,
		`INSERT INTO events (type, source, message_id, expert_id, detail) VALUES (?, ?, ?, ?, ?)`,
		evType, source, messageID, expertID, detail)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}
