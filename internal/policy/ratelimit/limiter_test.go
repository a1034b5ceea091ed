package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterBudgetExhaustion(t *testing.T) {
	t.Parallel()

	l := New(Config{RequestsPerInterval: 2, Interval: time.Minute})

	require.True(t, l.Allow("https://example.com/a"))
	require.True(t, l.Allow("https://example.com/b"))
	require.False(t, l.Allow("https://example.com/c"))
}

func TestLimiterTracksHostsIndependently(t *testing.T) {
	t.Parallel()

	l := New(Config{RequestsPerInterval: 1, Interval: time.Minute})

	require.True(t, l.Allow("https://a.com/x"))
	require.False(t, l.Allow("https://a.com/y"))
	require.True(t, l.Allow("https://b.com/x"))
}

func TestLimiterZeroBudgetDisablesLimiting(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("https://example.com"))
	}
}

func TestLimiterHostIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	l := New(Config{RequestsPerInterval: 1, Interval: time.Minute})
	require.True(t, l.Allow("https://Example.COM/a"))
	require.False(t, l.Allow("https://example.com/b"))
}
