package memory

import (
	"context"
	"sync"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

// EventLog is an append-only in-memory change event store.
type EventLog struct {
	mu     sync.RWMutex
	events []sentry.ChangeEvent
}

// NewEventLog creates an empty event log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// SaveEvents appends the events. Nothing is ever mutated or deleted.
func (l *EventLog) SaveEvents(_ context.Context, events []sentry.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, events...)
	return nil
}

// ListEvents returns events matching the query in insertion order.
func (l *EventLog) ListEvents(_ context.Context, q sentry.EventQuery) ([]sentry.ChangeEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []sentry.ChangeEvent
	for _, ev := range l.events {
		if q.SourceURL != "" && ev.SourceURL != q.SourceURL {
			continue
		}
		if !q.Since.IsZero() && ev.Time.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && !ev.Time.Before(q.Until) {
			continue
		}
		out = append(out, ev)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}
