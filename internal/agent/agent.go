// Package agent runs the crawl loop: it pops the most promising URL from
// the frontier, fetches it through the safety gateway, extracts its content,
// detects changes against the archived version, fans out notifications, and
// schedules the links worth following next.
package agent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sitesentry/sitesentry/internal/metrics"
	"github.com/sitesentry/sitesentry/internal/sentry"
)

// Parser extracts structured content from raw HTML.
type Parser interface {
	Parse(htmlBody []byte, baseURL string) (sentry.ParsedDocument, error)
}

// ChangeDetector compares two content snapshots of the same URL.
type ChangeDetector interface {
	DetectChanges(ctx context.Context, url, oldText, newText string) []sentry.ChangeEvent
}

// EventProcessor fans a persisted change event out to subscribers.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, ev sentry.ChangeEvent) error
}

// Deps carries the agent's collaborators. Renderer, RenderDetector,
// Knowledge, Scorer, and Snapshots are optional; the rest are required.
type Deps struct {
	Frontier       sentry.Frontier
	Fetcher        sentry.Fetcher
	Renderer       sentry.Fetcher
	RenderDetector sentry.RenderDetector
	Parser         Parser
	Archive        sentry.ArchiveStore
	Events         sentry.EventStore
	Detector       ChangeDetector
	Notifications  EventProcessor
	Knowledge      sentry.KnowledgeQueue
	Scorer         sentry.RelevanceScorer
	Snapshots      sentry.SnapshotStore
	Hasher         sentry.Hasher
	Logger         *zap.Logger
}

// Config holds the mission parameters the agent steers by.
type Config struct {
	Mission            sentry.Mission
	RelevanceThreshold float64
	IdlePoll           time.Duration
}

type Agent struct {
	deps Deps
	cfg  Config
	log  *zap.Logger
}

func New(deps Deps, cfg Config) *Agent {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = time.Second
	}
	return &Agent{deps: deps, cfg: cfg, log: deps.Logger}
}

// Step processes at most one URL from the frontier. It returns false when
// the frontier is empty. Fetch, policy, and parse failures drop the URL
// without touching the archive; only storage failures surface as errors.
func (a *Agent) Step(ctx context.Context) (bool, error) {
	url, ok := a.deps.Frontier.PopHighestPriority()
	if !ok {
		return false, nil
	}
	log := a.log.With(zap.String("url", url))

	oldPage, oldFound, err := a.deps.Archive.GetPage(ctx, url)
	if err != nil {
		metrics.RecordStepFailure("archive_lookup")
		return true, err
	}

	result, err := a.fetch(ctx, url)
	if err != nil {
		a.recordDrop(log, err)
		return true, nil
	}

	doc, err := a.deps.Parser.Parse(result.Body, url)
	if err != nil {
		a.recordDrop(log, err)
		return true, nil
	}

	newHash, err := a.deps.Hasher.Hash([]byte(doc.ContentText))
	if err != nil {
		metrics.RecordStepFailure("hash")
		return true, &sentry.StorageError{Op: "hash_content", Err: err}
	}

	a.snapshot(ctx, log, newHash, result)

	contentChanged := oldFound && oldPage.ContentHash != newHash
	if contentChanged {
		if err := a.processChanges(ctx, log, url, oldPage.ContentHash, doc.ContentText); err != nil {
			return true, err
		}
	}

	a.pushKnowledge(ctx, log, url, doc.ContentText)

	a.scheduleLinks(ctx, log, doc.Links)

	if err := a.deps.Archive.UpsertPage(ctx, url, doc.Title, newHash, doc.ContentText); err != nil {
		metrics.RecordStepFailure("archive_upsert")
		return true, err
	}
	for _, link := range doc.Links {
		if err := a.deps.Archive.AddLink(ctx, url, link.URL); err != nil {
			metrics.RecordStepFailure("archive_link")
			return true, err
		}
	}

	metrics.RecordPageProcessed("ok")
	log.Debug("page processed",
		zap.Bool("first_visit", !oldFound),
		zap.Bool("changed", contentChanged),
		zap.Int("links", len(doc.Links)),
	)
	return true, nil
}

// fetch runs the base fetcher and, when the response looks like an
// unrendered client-side application, retries through the headless renderer.
func (a *Agent) fetch(ctx context.Context, url string) (sentry.FetchResult, error) {
	result, err := a.deps.Fetcher.Fetch(ctx, url)
	if err != nil {
		return sentry.FetchResult{}, err
	}

	if a.deps.Renderer != nil && a.deps.RenderDetector != nil && a.deps.RenderDetector.ShouldRender(result) {
		rendered, err := a.deps.Renderer.Fetch(ctx, url)
		if err != nil {
			// Renderer trouble should not cost us the plain response.
			a.log.Warn("headless render failed, using static response",
				zap.String("url", url), zap.Error(err))
			return result, nil
		}
		return rendered, nil
	}
	return result, nil
}

func (a *Agent) processChanges(ctx context.Context, log *zap.Logger, url, oldHash, newText string) error {
	oldText, found, err := a.deps.Archive.GetContentByHash(ctx, oldHash)
	if err != nil {
		metrics.RecordStepFailure("archive_content")
		return err
	}
	if !found {
		log.Warn("previous content missing from archive", zap.String("hash", oldHash))
		return nil
	}

	events := a.deps.Detector.DetectChanges(ctx, url, oldText, newText)
	if len(events) == 0 {
		return nil
	}

	if err := a.deps.Events.SaveEvents(ctx, events); err != nil {
		metrics.RecordStepFailure("event_save")
		return err
	}
	metrics.RecordChangeEvents(len(events))

	for _, ev := range events {
		if err := a.deps.Notifications.ProcessEvent(ctx, ev); err != nil {
			log.Warn("notification fan-out failed",
				zap.String("event_type", ev.EventType), zap.Error(err))
		}
	}
	return nil
}

func (a *Agent) snapshot(ctx context.Context, log *zap.Logger, hash string, result sentry.FetchResult) {
	if a.deps.Snapshots == nil {
		return
	}
	if _, err := a.deps.Snapshots.Put(ctx, hash, result.ContentType, result.Body); err != nil {
		log.Warn("snapshot store failed", zap.Error(err))
	}
}

func (a *Agent) pushKnowledge(ctx context.Context, log *zap.Logger, url, content string) {
	if a.deps.Knowledge == nil || content == "" {
		return
	}
	if err := a.deps.Knowledge.Push(ctx, url, content); err != nil {
		log.Warn("knowledge queue push failed", zap.Error(err))
	}
}

// scheduleLinks scores the outbound links against the mission goal and adds
// those at or above the relevance threshold to the frontier. A scorer
// failure skips scheduling for this page only.
func (a *Agent) scheduleLinks(ctx context.Context, log *zap.Logger, links []sentry.DiscoveredLink) {
	if a.deps.Scorer == nil || len(links) == 0 {
		return
	}
	scored, err := a.deps.Scorer.Score(ctx, a.cfg.Mission.Goal, links)
	if err != nil {
		log.Warn("relevance scoring failed", zap.Error(err))
		return
	}
	for _, s := range scored {
		if s.Score >= a.cfg.RelevanceThreshold {
			a.deps.Frontier.AddURL(s.URL, s.Score)
		}
	}
}

func (a *Agent) recordDrop(log *zap.Logger, err error) {
	var policyErr *sentry.PolicyViolation
	var fetchErr *sentry.FetchError
	var parseErr *sentry.ParseError
	switch {
	case errors.As(err, &policyErr):
		metrics.RecordStepFailure("policy")
		metrics.RecordPageProcessed("policy_violation")
		log.Info("url blocked by policy", zap.String("reason", policyErr.Reason))
	case errors.As(err, &fetchErr):
		metrics.RecordStepFailure("fetch")
		metrics.RecordPageProcessed("fetch_error")
		log.Warn("fetch failed", zap.Int("status", fetchErr.StatusCode), zap.Error(err))
	case errors.As(err, &parseErr):
		metrics.RecordStepFailure("parse")
		metrics.RecordPageProcessed("parse_error")
		log.Warn("parse failed", zap.Error(err))
	default:
		metrics.RecordStepFailure("unknown")
		metrics.RecordPageProcessed("error")
		log.Warn("step failed", zap.Error(err))
	}
}

// Run steps until the context is canceled, sleeping briefly whenever the
// frontier is empty. Storage failures are logged and the loop continues
// with the next URL.
func (a *Agent) Run(ctx context.Context) {
	for {
		progressed, err := a.Step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.log.Error("step failed", zap.Error(err))
		}
		if progressed {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(a.cfg.IdlePoll):
		}
	}
}
