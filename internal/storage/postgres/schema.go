package postgres

import (
	"context"
	"fmt"
)

// Schema statements applied by EnsureSchema. Pages are keyed by URL; links are
// a simple edge set; change events are append-only.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL,
		content_text TEXT NOT NULL,
		first_visited TIMESTAMPTZ NOT NULL,
		last_visited TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS pages_content_hash_idx ON pages (content_hash)`,
	`CREATE TABLE IF NOT EXISTS links (
		from_url TEXT NOT NULL,
		to_url TEXT NOT NULL,
		PRIMARY KEY (from_url, to_url)
	)`,
	`CREATE TABLE IF NOT EXISTS change_events (
		id BIGSERIAL PRIMARY KEY,
		event_type TEXT NOT NULL,
		source_url TEXT NOT NULL,
		details JSONB NOT NULL DEFAULT '{}',
		event_time TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS change_events_source_time_idx ON change_events (source_url, event_time)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		subscription_id UUID PRIMARY KEY,
		rule_definition JSONB NOT NULL,
		notification_channel TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
}

// EnsureSchema creates the tables if they do not exist.
func EnsureSchema(ctx context.Context, conn dbConn) error {
	for _, stmt := range schemaStatements {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
