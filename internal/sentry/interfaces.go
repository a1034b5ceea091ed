package sentry

import (
	"context"
	"time"
)

// Frontier schedules URLs by priority. Adding a known URL repositions it;
// equal priorities pop in insertion order.
type Frontier interface {
	AddURL(url string, priority float64)
	PopHighestPriority() (string, bool)
	Size() int
}

// ArchiveStore persists pages and the link graph. UpsertPage preserves
// FirstVisited for existing pages and always advances LastVisited.
type ArchiveStore interface {
	GetPage(ctx context.Context, url string) (Page, bool, error)
	UpsertPage(ctx context.Context, url, title, contentHash, contentText string) error
	AddLink(ctx context.Context, sourceURL, targetURL string) error
	GetContentByHash(ctx context.Context, hash string) (string, bool, error)
}

// EventStore is the append-only change event log.
type EventStore interface {
	SaveEvents(ctx context.Context, events []ChangeEvent) error
	ListEvents(ctx context.Context, q EventQuery) ([]ChangeEvent, error)
}

// SubscriptionStore lists the subscriptions eligible for notification.
type SubscriptionStore interface {
	ListActive(ctx context.Context) ([]Subscription, error)
}

// Fetcher retrieves a URL subject to the safety policy.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// RenderDetector decides whether a fetched response needs a headless
// browser pass to produce its real content.
type RenderDetector interface {
	ShouldRender(probe FetchResult) bool
}

// KnowledgeQueue hands extracted content to downstream consumers.
type KnowledgeQueue interface {
	Push(ctx context.Context, sourceURL, content string) error
}

// RelevanceScorer rates discovered links against the mission goal. Scores
// are in [0, 1] and the result preserves input order.
type RelevanceScorer interface {
	Score(ctx context.Context, goal string, links []DiscoveredLink) ([]ScoredLink, error)
}

// SemanticDiffer reports the meaningful changes between two revisions of a
// page's extracted text.
type SemanticDiffer interface {
	Diff(ctx context.Context, oldText, newText string) ([]ChangeEvent, error)
}

// Notifier delivers a change event on a named channel.
type Notifier interface {
	Notify(ctx context.Context, channel string, event ChangeEvent) error
}

// SnapshotStore archives raw page bodies keyed by content hash and returns
// a location URI.
type SnapshotStore interface {
	Put(ctx context.Context, hash, contentType string, body []byte) (string, error)
}

// Hasher fingerprints content for change detection.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock abstracts time for testable visit stamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints identifiers for subscriptions and requests.
type IDGenerator interface {
	NewID() (string, error)
}
