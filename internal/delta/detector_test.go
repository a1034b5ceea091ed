package delta

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

type fakeDiffer struct {
	events  []sentry.ChangeEvent
	err     error
	gotOld  string
	gotNew  string
	invoked bool
}

func (f *fakeDiffer) Diff(_ context.Context, oldText, newText string) ([]sentry.ChangeEvent, error) {
	f.invoked = true
	f.gotOld = oldText
	f.gotNew = newText
	return f.events, f.err
}

func TestDetectChangesStampsSourceAndTime(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	differ := &fakeDiffer{
		events: []sentry.ChangeEvent{
			{EventType: "ENTITY_PROPERTY_MODIFIED", Details: map[string]any{"property": "price"}},
		},
	}
	d := New(differ, fakeClock{now: now}, zap.NewNop())

	events := d.DetectChanges(context.Background(), "https://a", "old", "new")
	require.True(t, differ.invoked)
	require.Equal(t, "old", differ.gotOld)
	require.Equal(t, "new", differ.gotNew)
	require.Len(t, events, 1)
	require.Equal(t, "https://a", events[0].SourceURL)
	require.Equal(t, now, events[0].Time)
}

func TestDetectChangesDifferFailureDegradesToEmpty(t *testing.T) {
	t.Parallel()

	differ := &fakeDiffer{err: errors.New("model unavailable")}
	d := New(differ, fakeClock{now: time.Now()}, zap.NewNop())

	events := d.DetectChanges(context.Background(), "https://a", "old", "new")
	require.Empty(t, events)
}

func TestDetectChangesNilDiffer(t *testing.T) {
	t.Parallel()

	d := New(nil, fakeClock{now: time.Now()}, zap.NewNop())
	require.Empty(t, d.DetectChanges(context.Background(), "https://a", "old", "new"))
}
