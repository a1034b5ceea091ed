package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

type stepClock struct {
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func TestArchiveUpsertIdempotent(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: time.Unix(1700000000, 0).UTC(), step: time.Second}
	a := NewArchive(clock)
	ctx := context.Background()

	require.NoError(t, a.UpsertPage(ctx, "https://a", "T", "h1", "text"))
	first, found, err := a.GetPage(ctx, "https://a")
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, a.UpsertPage(ctx, "https://a", "T", "h1", "text"))
	second, found, err := a.GetPage(ctx, "https://a")
	require.NoError(t, err)
	require.True(t, found)

	require.Equal(t, first.FirstVisited, second.FirstVisited, "first_visited must be set once")
	require.Equal(t, first.Title, second.Title)
	require.Equal(t, first.ContentHash, second.ContentHash)
	require.Equal(t, first.ContentText, second.ContentText)
	require.True(t, second.LastVisited.After(first.LastVisited), "last_visited must advance")
}

func TestArchiveUpsertOverwritesContent(t *testing.T) {
	t.Parallel()

	a := NewArchive(nil)
	ctx := context.Background()

	require.NoError(t, a.UpsertPage(ctx, "https://a", "Old", "h1", "old text"))
	require.NoError(t, a.UpsertPage(ctx, "https://a", "New", "h2", "new text"))

	page, found, err := a.GetPage(ctx, "https://a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "New", page.Title)
	require.Equal(t, "h2", page.ContentHash)
	require.Equal(t, "new text", page.ContentText)
}

func TestArchiveAddLinkIdempotent(t *testing.T) {
	t.Parallel()

	a := NewArchive(nil)
	ctx := context.Background()

	require.NoError(t, a.AddLink(ctx, "https://u", "https://v"))
	require.NoError(t, a.AddLink(ctx, "https://u", "https://v"))

	require.Len(t, a.Links(), 1)
	require.Equal(t, sentry.Link{From: "https://u", To: "https://v"}, a.Links()[0])
}

func TestArchiveGetContentByHash(t *testing.T) {
	t.Parallel()

	a := NewArchive(nil)
	ctx := context.Background()

	require.NoError(t, a.UpsertPage(ctx, "https://a", "T", "h1", "revision one"))

	text, found, err := a.GetContentByHash(ctx, "h1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "revision one", text)

	_, found, err = a.GetContentByHash(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)
}
