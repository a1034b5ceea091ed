package staticoracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

func TestScorerKeywordOverlap(t *testing.T) {
	t.Parallel()

	scorer := NewScorer()
	links := []sentry.DiscoveredLink{
		{URL: "https://shop.example.com/graphics-cards", AnchorText: "Graphics cards"},
		{URL: "https://shop.example.com/about", AnchorText: "About us"},
	}

	scored, err := scorer.Score(context.Background(), "track graphics card prices", links)
	require.NoError(t, err)
	require.Len(t, scored, 2)
	require.Greater(t, scored[0].Score, scored[1].Score)
	require.Zero(t, scored[1].Score)
}

func TestScorerEmptyGoal(t *testing.T) {
	t.Parallel()

	scored, err := NewScorer().Score(context.Background(), "", []sentry.DiscoveredLink{{URL: "https://a"}})
	require.NoError(t, err)
	require.Zero(t, scored[0].Score)
}

func TestDifferUnchangedText(t *testing.T) {
	t.Parallel()

	events, err := NewDiffer().Diff(context.Background(), "same", "same")
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestDifferChangedText(t *testing.T) {
	t.Parallel()

	events, err := NewDiffer().Diff(context.Background(), "old body", "new body text")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "DOCUMENT_REPLACED", events[0].EventType)
	require.Equal(t, len("old body"), events[0].Details["old_length"])
}
