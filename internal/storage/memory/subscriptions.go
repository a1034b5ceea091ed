package memory

import (
	"context"
	"sync"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

// Subscriptions is an in-memory SubscriptionStore.
type Subscriptions struct {
	mu   sync.RWMutex
	subs map[string]sentry.Subscription
}

// NewSubscriptions creates an empty subscription store.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{subs: make(map[string]sentry.Subscription)}
}

// Upsert inserts or replaces a subscription.
func (s *Subscriptions) Upsert(_ context.Context, sub sentry.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.ID] = sub
	return nil
}

// ListActive returns subscriptions with IsActive set.
func (s *Subscriptions) ListActive(_ context.Context) ([]sentry.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []sentry.Subscription
	for _, sub := range s.subs {
		if sub.IsActive {
			out = append(out, sub)
		}
	}
	return out, nil
}
