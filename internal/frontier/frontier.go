// Package frontier implements the priority queue of URLs awaiting a crawl.
package frontier

import (
	"container/heap"
	"sync"

	"github.com/sitesentry/sitesentry/internal/metrics"
)

// Frontier is an in-memory max-priority queue. Re-adding a URL repositions the
// existing entry (last write wins on priority); it never duplicates. Pop is
// atomic: two concurrent callers never receive the same URL.
type Frontier struct {
	mu      sync.Mutex
	heap    entryHeap
	entries map[string]*entry
	nextSeq uint64
}

type entry struct {
	url      string
	priority float64
	seq      uint64
	index    int
}

// New creates an empty Frontier.
func New() *Frontier {
	return &Frontier{entries: make(map[string]*entry)}
}

// AddURL inserts the URL or repositions it with the new priority.
func (f *Frontier) AddURL(url string, priority float64) {
	if url == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if e, ok := f.entries[url]; ok {
		e.priority = priority
		heap.Fix(&f.heap, e.index)
		return
	}
	e := &entry{url: url, priority: priority, seq: f.nextSeq}
	f.nextSeq++
	f.entries[url] = e
	heap.Push(&f.heap, e)
	metrics.SetFrontierSize(len(f.entries))
}

// PopHighestPriority removes and returns the highest-priority URL, or
// ok=false when the frontier is empty. Equal priorities pop in insertion order.
func (f *Frontier) PopHighestPriority() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.heap.Len() == 0 {
		return "", false
	}
	e := heap.Pop(&f.heap).(*entry)
	delete(f.entries, e.url)
	metrics.SetFrontierSize(len(f.entries))
	return e.url, true
}

// Size returns the number of queued URLs.
func (f *Frontier) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
