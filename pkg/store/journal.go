// Package store persists the settlement engine's domain events in a
// sqlite journal. The journal is an audit sink: it records the same
// event stream the JSON logger sees, and serves it back for reporting.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/openvenue/settled/pkg/audit"
)

// Journal is a sqlite-backed audit.Logger.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) a journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %q: %w", path, err)
	}
	return NewJournal(db)
}

// NewJournal wraps an existing database handle.
func NewJournal(db *sql.DB) (*Journal, error) {
	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS events (
		event_id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		resource TEXT NOT NULL,
		metadata JSON,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_resource ON events(resource);
	CREATE INDEX IF NOT EXISTS idx_events_action ON events(action);`
	_, err := j.db.ExecContext(context.Background(), query)
	return err
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record implements audit.Logger.
func (j *Journal) Record(ctx context.Context, eventType audit.EventType, actor, action, resource string, metadata map[string]interface{}) error {
	event := audit.NewEvent(eventType, actor, action, resource, metadata)

	metaJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}

	query := `INSERT INTO events (
		event_id, event_type, actor, action, resource, metadata, timestamp
	) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = j.db.ExecContext(ctx, query,
		event.ID, string(event.Type), event.Actor, event.Action, event.Resource,
		string(metaJSON), event.Timestamp.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// List returns the most recent events, newest first.
func (j *Journal) List(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
	SELECT event_id, event_type, actor, action, resource, metadata, timestamp
	FROM events
	ORDER BY timestamp DESC
	LIMIT ?`
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []audit.Event
	for rows.Next() {
		e, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// ListByResource returns events for one resource, oldest first. The
// resource string is the engine's "instruction/3" style key.
func (j *Journal) ListByResource(ctx context.Context, resource string) ([]audit.Event, error) {
	query := `
	SELECT event_id, event_type, actor, action, resource, metadata, timestamp
	FROM events
	WHERE resource = ?
	ORDER BY timestamp ASC`
	rows, err := j.db.QueryContext(ctx, query, resource)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []audit.Event
	for rows.Next() {
		e, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByAction returns how many events carry the given action.
func (j *Journal) CountByAction(ctx context.Context, action string) (int64, error) {
	var n int64
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE action = ?`, action).Scan(&n)
	return n, err
}

func scanEventRow(rows *sql.Rows) (audit.Event, error) {
	var (
		e        audit.Event
		kind     string
		metaJSON sql.NullString
		ts       string
	)
	if err := rows.Scan(&e.ID, &kind, &e.Actor, &e.Action, &e.Resource, &metaJSON, &ts); err != nil {
		return audit.Event{}, err
	}
	e.Type = audit.EventType(kind)
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &e.Metadata); err != nil {
			return audit.Event{}, fmt.Errorf("decode event metadata: %w", err)
		}
	}
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return audit.Event{}, fmt.Errorf("decode event timestamp: %w", err)
	}
	e.Timestamp = parsed
	return e, nil
}
