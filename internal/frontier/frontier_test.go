package frontier

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrontierPriorityOrder(t *testing.T) {
	t.Parallel()

	f := New()
	f.AddURL("https://x", 0.9)
	f.AddURL("https://y", 0.5)

	url, ok := f.PopHighestPriority()
	require.True(t, ok)
	require.Equal(t, "https://x", url)

	url, ok = f.PopHighestPriority()
	require.True(t, ok)
	require.Equal(t, "https://y", url)

	_, ok = f.PopHighestPriority()
	require.False(t, ok)
}

func TestFrontierReAddRepositions(t *testing.T) {
	t.Parallel()

	f := New()
	f.AddURL("https://a", 0.2)
	f.AddURL("https://b", 0.5)
	f.AddURL("https://a", 0.8)

	require.Equal(t, 2, f.Size())

	url, ok := f.PopHighestPriority()
	require.True(t, ok)
	require.Equal(t, "https://a", url)
	require.Equal(t, 1, f.Size())
}

func TestFrontierTiesBreakByInsertionOrder(t *testing.T) {
	t.Parallel()

	f := New()
	f.AddURL("https://first", 0.5)
	f.AddURL("https://second", 0.5)
	f.AddURL("https://third", 0.5)

	for _, want := range []string{"https://first", "https://second", "https://third"} {
		url, ok := f.PopHighestPriority()
		require.True(t, ok)
		require.Equal(t, want, url)
	}
}

func TestFrontierConcurrentPopNeverDuplicates(t *testing.T) {
	t.Parallel()

	f := New()
	const n = 200
	for i := 0; i < n; i++ {
		f.AddURL(fmt.Sprintf("https://site-%03d", i), float64(i))
	}

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				url, ok := f.PopHighestPriority()
				if !ok {
					return
				}
				mu.Lock()
				seen[url]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
	for url, count := range seen {
		require.Equal(t, 1, count, "url %s popped more than once", url)
	}
	require.Equal(t, 0, f.Size())
}
