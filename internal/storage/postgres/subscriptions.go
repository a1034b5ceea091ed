package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

// Subscriptions is the Postgres-backed SubscriptionStore.
type Subscriptions struct {
	conn dbConn
}

// NewSubscriptions constructs a Subscriptions store on an existing pool.
func NewSubscriptions(conn dbConn) (*Subscriptions, error) {
	if conn == nil {
		return nil, fmt.Errorf("db connection is required")
	}
	return &Subscriptions{conn: conn}, nil
}

// ListActive returns all subscriptions with is_active = true.
func (s *Subscriptions) ListActive(ctx context.Context) ([]sentry.Subscription, error) {
	const query = `
SELECT subscription_id, rule_definition, notification_channel, is_active
FROM subscriptions
WHERE is_active = TRUE`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, &sentry.StorageError{Op: "list subscriptions", Err: err}
	}
	defer rows.Close()

	var out []sentry.Subscription
	for rows.Next() {
		var (
			sub  sentry.Subscription
			rule []byte
		)
		if err := rows.Scan(&sub.ID, &rule, &sub.Channel, &sub.IsActive); err != nil {
			return nil, &sentry.StorageError{Op: "scan subscription", Err: err}
		}
		if len(rule) > 0 {
			if err := json.Unmarshal(rule, &sub.Rule); err != nil {
				return nil, &sentry.StorageError{Op: "decode subscription rule", Err: err}
			}
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, &sentry.StorageError{Op: "list subscriptions", Err: err}
	}
	return out, nil
}

// Upsert inserts or replaces a subscription record.
func (s *Subscriptions) Upsert(ctx context.Context, sub sentry.Subscription) error {
	const query = `
INSERT INTO subscriptions (subscription_id, rule_definition, notification_channel, is_active)
VALUES ($1, $2, $3, $4)
ON CONFLICT (subscription_id) DO UPDATE SET
	rule_definition = EXCLUDED.rule_definition,
	notification_channel = EXCLUDED.notification_channel,
	is_active = EXCLUDED.is_active`

	rule, err := json.Marshal(sub.Rule)
	if err != nil {
		return &sentry.StorageError{Op: "marshal subscription rule", Err: err}
	}
	if _, err := s.conn.Exec(ctx, query, sub.ID, rule, sub.Channel, sub.IsActive); err != nil {
		return &sentry.StorageError{Op: "upsert subscription", Err: err}
	}
	return nil
}
