package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

func TestEventLogAppendAndQuery(t *testing.T) {
	t.Parallel()

	l := NewEventLog()
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	events := []sentry.ChangeEvent{
		{EventType: "A", SourceURL: "https://x", Time: base},
		{EventType: "B", SourceURL: "https://y", Time: base.Add(time.Minute)},
		{EventType: "C", SourceURL: "https://x", Time: base.Add(2 * time.Minute)},
	}
	require.NoError(t, l.SaveEvents(ctx, events))

	got, err := l.ListEvents(ctx, sentry.EventQuery{SourceURL: "https://x"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "A", got[0].EventType)
	require.Equal(t, "C", got[1].EventType)

	got, err = l.ListEvents(ctx, sentry.EventQuery{
		Since: base.Add(30 * time.Second),
		Until: base.Add(90 * time.Second),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "B", got[0].EventType)

	got, err = l.ListEvents(ctx, sentry.EventQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestSubscriptionsListActiveFiltersInactive(t *testing.T) {
	t.Parallel()

	s := NewSubscriptions()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, sentry.Subscription{ID: "1", Channel: "a", IsActive: true}))
	require.NoError(t, s.Upsert(ctx, sentry.Subscription{ID: "2", Channel: "b", IsActive: false}))

	subs, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "1", subs[0].ID)
}
