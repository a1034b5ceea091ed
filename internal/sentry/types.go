// Package sentry holds the domain types, capability interfaces, and error
// taxonomy shared by every subsystem of the monitoring crawler.
package sentry

import "time"

// Mission describes what the agent is wandering for.
type Mission struct {
	Goal string `json:"goal"`
}

// FrontierEntry is a URL waiting to be visited, with its crawl priority.
type FrontierEntry struct {
	URL      string  `json:"url"`
	Priority float64 `json:"priority"`
}

// Page is the archived record of a visited URL. FirstVisited is set once;
// LastVisited advances on every visit including unchanged ones.
type Page struct {
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	ContentHash  string    `json:"content_hash"`
	ContentText  string    `json:"content_text"`
	FirstVisited time.Time `json:"first_visited"`
	LastVisited  time.Time `json:"last_visited"`
}

// Link is a directed edge in the crawled link graph.
type Link struct {
	From string `json:"from_url"`
	To   string `json:"to_url"`
}

// ChangeEvent records one semantic change detected between two revisions of
// a page.
type ChangeEvent struct {
	EventType string         `json:"event_type"`
	SourceURL string         `json:"source_url"`
	Details   map[string]any `json:"details"`
	Time      time.Time      `json:"event_time"`
}

// Subscription ties a rule over change events to a notification channel.
type Subscription struct {
	ID       string         `json:"subscription_id"`
	Rule     map[string]any `json:"rule_definition"`
	Channel  string         `json:"notification_channel"`
	IsActive bool           `json:"is_active"`
}

// DiscoveredLink is an outbound link found while parsing a page, with the
// anchor text and nearby text used for relevance scoring.
type DiscoveredLink struct {
	URL        string `json:"url"`
	AnchorText string `json:"anchor_text"`
	Context    string `json:"context"`
}

// ScoredLink is a discovered link with its relevance to the mission goal.
type ScoredLink struct {
	DiscoveredLink
	Score float64 `json:"score"`
}

// ParsedDocument is the structured result of parsing a fetched page.
type ParsedDocument struct {
	Title       string
	ContentText string
	Links       []DiscoveredLink
}

// FetchResult is a completed fetch. Rendered marks bodies produced by the
// headless browser rather than the plain HTTP client.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	Duration    time.Duration
	Rendered    bool
}

// EventQuery filters the change event log. Zero values mean "no filter";
// Limit <= 0 means unlimited.
type EventQuery struct {
	SourceURL string
	Since     time.Time
	Until     time.Time
	Limit     int
}
