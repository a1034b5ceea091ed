package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitesentry/sitesentry/internal/sentry"
	subsmem "github.com/sitesentry/sitesentry/internal/storage/memory"
)

type recordingNotifier struct {
	failChannels map[string]bool
	delivered    []string
}

func (n *recordingNotifier) Notify(_ context.Context, channel string, _ sentry.ChangeEvent) error {
	if n.failChannels[channel] {
		return errors.New("channel down")
	}
	n.delivered = append(n.delivered, channel)
	return nil
}

type failingSubStore struct{}

func (failingSubStore) ListActive(context.Context) ([]sentry.Subscription, error) {
	return nil, errors.New("connection refused")
}

func TestProcessEventNotifiesMatchingActiveSubscriptions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := subsmem.NewSubscriptions()
	require.NoError(t, store.Upsert(ctx, sentry.Subscription{
		ID:       "sub-modified",
		Rule:     map[string]any{"event_type": "ENTITY_PROPERTY_MODIFIED"},
		Channel:  "alerts",
		IsActive: true,
	}))
	require.NoError(t, store.Upsert(ctx, sentry.Subscription{
		ID:       "sub-removed",
		Rule:     map[string]any{"event_type": "ENTITY_REMOVED"},
		Channel:  "removals",
		IsActive: true,
	}))
	require.NoError(t, store.Upsert(ctx, sentry.Subscription{
		ID:       "sub-inactive",
		Rule:     map[string]any{"event_type": "ENTITY_PROPERTY_MODIFIED"},
		Channel:  "muted",
		IsActive: false,
	}))

	notifier := &recordingNotifier{}
	oracle := NewOracle(store, notifier, zap.NewNop())

	err := oracle.ProcessEvent(ctx, sentry.ChangeEvent{
		EventType: "ENTITY_PROPERTY_MODIFIED",
		SourceURL: "https://a",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"alerts"}, notifier.delivered)
}

func TestProcessEventIsolatesFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := subsmem.NewSubscriptions()
	require.NoError(t, store.Upsert(ctx, sentry.Subscription{
		ID:       "sub-bad-rule",
		Rule:     map[string]any{"not_a_rule_key": true},
		Channel:  "a",
		IsActive: true,
	}))
	require.NoError(t, store.Upsert(ctx, sentry.Subscription{
		ID:       "sub-bad-channel",
		Rule:     map[string]any{},
		Channel:  "down",
		IsActive: true,
	}))
	require.NoError(t, store.Upsert(ctx, sentry.Subscription{
		ID:       "sub-ok",
		Rule:     map[string]any{},
		Channel:  "ok",
		IsActive: true,
	}))

	notifier := &recordingNotifier{failChannels: map[string]bool{"down": true}}
	oracle := NewOracle(store, notifier, zap.NewNop())

	err := oracle.ProcessEvent(ctx, sentry.ChangeEvent{EventType: "PAGE_UNAVAILABLE"})
	require.NoError(t, err)
	require.Equal(t, []string{"ok"}, notifier.delivered)
}

func TestProcessEventSubscriptionStoreFailure(t *testing.T) {
	t.Parallel()

	oracle := NewOracle(failingSubStore{}, &recordingNotifier{}, zap.NewNop())
	err := oracle.ProcessEvent(context.Background(), sentry.ChangeEvent{EventType: "x"})

	var storageErr *sentry.StorageError
	require.ErrorAs(t, err, &storageErr)
	require.Equal(t, "list_subscriptions", storageErr.Op)
}
