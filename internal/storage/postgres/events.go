package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

// EventLog is the Postgres-backed append-only change event store.
type EventLog struct {
	conn dbConn
}

// NewEventLog constructs an EventLog on an existing connection pool.
func NewEventLog(conn dbConn) (*EventLog, error) {
	if conn == nil {
		return nil, fmt.Errorf("db connection is required")
	}
	return &EventLog{conn: conn}, nil
}

// SaveEvents bulk-inserts the events in one batch. Past events are never
// mutated or deleted.
func (l *EventLog) SaveEvents(ctx context.Context, events []sentry.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}

	const query = `
INSERT INTO change_events (event_type, source_url, details, event_time)
VALUES ($1, $2, $3, $4)`

	batch := &pgx.Batch{}
	for _, ev := range events {
		details, err := json.Marshal(normalizeDetails(ev.Details))
		if err != nil {
			return &sentry.StorageError{Op: "marshal event details", Err: err}
		}
		batch.Queue(query, ev.EventType, ev.SourceURL, details, ev.Time)
	}

	results := l.conn.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for range events {
		if _, err := results.Exec(); err != nil {
			return &sentry.StorageError{Op: "save events", Err: err}
		}
	}
	return nil
}

// ListEvents returns events matching the query, oldest first.
func (l *EventLog) ListEvents(ctx context.Context, q sentry.EventQuery) ([]sentry.ChangeEvent, error) {
	query := `
SELECT event_type, source_url, details, event_time
FROM change_events
WHERE 1=1`
	args := []any{}

	if q.SourceURL != "" {
		args = append(args, q.SourceURL)
		query += fmt.Sprintf(" AND source_url = $%d", len(args))
	}
	if !q.Since.IsZero() {
		args = append(args, q.Since)
		query += fmt.Sprintf(" AND event_time >= $%d", len(args))
	}
	if !q.Until.IsZero() {
		args = append(args, q.Until)
		query += fmt.Sprintf(" AND event_time < $%d", len(args))
	}
	query += " ORDER BY event_time, id"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := l.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, &sentry.StorageError{Op: "list events", Err: err}
	}
	defer rows.Close()

	var out []sentry.ChangeEvent
	for rows.Next() {
		var (
			ev      sentry.ChangeEvent
			details []byte
		)
		if err := rows.Scan(&ev.EventType, &ev.SourceURL, &details, &ev.Time); err != nil {
			return nil, &sentry.StorageError{Op: "scan event", Err: err}
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &ev.Details); err != nil {
				return nil, &sentry.StorageError{Op: "decode event details", Err: err}
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, &sentry.StorageError{Op: "list events", Err: err}
	}
	return out, nil
}

func normalizeDetails(d map[string]any) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return d
}
