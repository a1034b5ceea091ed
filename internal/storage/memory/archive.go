// Package memory provides in-memory store implementations for tests and
// single-process runs without external services.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

// Archive is a mutex-guarded in-memory ArchiveStore.
type Archive struct {
	mu    sync.RWMutex
	pages map[string]sentry.Page
	links map[sentry.Link]struct{}
	clock sentry.Clock
}

// NewArchive creates an empty in-memory archive. A nil clock falls back to
// the wall clock.
func NewArchive(clock sentry.Clock) *Archive {
	return &Archive{
		pages: make(map[string]sentry.Page),
		links: make(map[sentry.Link]struct{}),
		clock: clock,
	}
}

func (a *Archive) now() time.Time {
	if a.clock != nil {
		return a.clock.Now()
	}
	return time.Now().UTC()
}

// GetPage loads the archive record for url.
func (a *Archive) GetPage(_ context.Context, url string) (sentry.Page, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.pages[url]
	return p, ok, nil
}

// UpsertPage creates or overwrites the page record. first_visited is set once.
func (a *Archive) UpsertPage(_ context.Context, url, title, contentHash, contentText string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	p, ok := a.pages[url]
	if !ok {
		p = sentry.Page{URL: url, FirstVisited: now}
	}
	p.Title = title
	p.ContentHash = contentHash
	p.ContentText = contentText
	p.LastVisited = now
	a.pages[url] = p
	return nil
}

// AddLink inserts the edge; duplicates are no-ops.
func (a *Archive) AddLink(_ context.Context, sourceURL, targetURL string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.links[sentry.Link{From: sourceURL, To: targetURL}] = struct{}{}
	return nil
}

// GetContentByHash returns a stored revision's text by hash.
func (a *Archive) GetContentByHash(_ context.Context, hash string) (string, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, p := range a.pages {
		if p.ContentHash == hash {
			return p.ContentText, true, nil
		}
	}
	return "", false, nil
}

// Links returns a copy of the edge set for inspection in tests.
func (a *Archive) Links() []sentry.Link {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]sentry.Link, 0, len(a.links))
	for l := range a.links {
		out = append(out, l)
	}
	return out
}
