// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package openfall

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"
	"github.com/openclaw/clawroute/internal/resolve"
	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

// Compile-time interface check.
var _ Recorder = (*EventLog)(nil)

// Recorder appends open-fall events to durable storage.
type Recorder interface {
	Append(ctx context.Context, ev Event) error
}

// Event is one durable open-fall record.
type Event struct {
	ID         string
	OccurredAt time.Time
	Role       string
	Report     *resolve.ExhaustionReport
	PID        int
}

// EventLog implements Recorder backed by a single SQLite database.
type EventLog struct {
	db *sql.DB
}

// NewEventLog opens (or creates) a SQLite database at dbPath and
// initialises the open_fall_events table.
func NewEventLog(dbPath string) (*EventLog, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening event log db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging event log db: %w", err)
	}

	if err := migrateEventLog(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating event log db: %w", err)
	}

	return &EventLog{db: db}, nil
}

func migrateEventLog(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS open_fall_events (
	id          TEXT PRIMARY KEY,
	occurred_at TEXT NOT NULL,
	role        TEXT NOT NULL,
	report      TEXT NOT NULL,
	pid         INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_open_fall_events_role
	ON open_fall_events(role, occurred_at);
`
	_, err := db.Exec(ddl)
	return err
}

// Append writes ev. A zero ID or OccurredAt is filled in.
func (l *EventLog) Append(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	report, err := json.Marshal(ev.Report)
	if err != nil {
		return clawerr.Wrap(err, clawerr.CodeOpenFallLogFailure, "encoding report")
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO open_fall_events (id, occurred_at, role, report, pid) VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.OccurredAt.Format(time.RFC3339Nano), ev.Role, string(report), ev.PID)
	if err != nil {
		return clawerr.Wrap(err, clawerr.CodeOpenFallLogFailure, "inserting event",
			clawerr.FieldRole(ev.Role))
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (l *EventLog) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, occurred_at, role, report, pid FROM open_fall_events
		 ORDER BY occurred_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, clawerr.Wrap(err, clawerr.CodeOpenFallLogFailure, "querying events")
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			ev         Event
			occurredAt string
			report     string
		)
		if err := rows.Scan(&ev.ID, &occurredAt, &ev.Role, &report, &ev.PID); err != nil {
			return nil, clawerr.Wrap(err, clawerr.CodeOpenFallLogFailure, "scanning event")
		}
		if ev.OccurredAt, err = time.Parse(time.RFC3339Nano, occurredAt); err != nil {
			return nil, clawerr.Wrap(err, clawerr.CodeOpenFallLogFailure, "parsing timestamp")
		}
		if err := json.Unmarshal([]byte(report), &ev.Report); err != nil {
			return nil, clawerr.Wrap(err, clawerr.CodeOpenFallLogFailure, "decoding report")
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (l *EventLog) Close() error {
	return l.db.Close()
}
