// Package delta turns content revisions into structured change events.
package delta

import (
	"context"

	"go.uber.org/zap"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

// Detector compares two content revisions by delegating the "what changed"
// extraction to a semantic differ capability. It is invoked only when the
// archive's stored hash differs from the new content's hash.
type Detector struct {
	differ sentry.SemanticDiffer
	clock  sentry.Clock
	logger *zap.Logger
}

// New constructs a Detector.
func New(differ sentry.SemanticDiffer, clock sentry.Clock, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{differ: differ, clock: clock, logger: logger}
}

// DetectChanges produces zero or more change events describing the revision
// delta. A failing or absent differ degrades to an empty slice so that
// archive updates are never blocked on the external capability.
func (d *Detector) DetectChanges(ctx context.Context, url, oldText, newText string) []sentry.ChangeEvent {
	if d.differ == nil {
		return nil
	}

	events, err := d.differ.Diff(ctx, oldText, newText)
	if err != nil {
		d.logger.Warn("semantic diff failed, continuing without events",
			zap.String("url", url),
			zap.Error(err),
		)
		return nil
	}

	now := d.clock.Now()
	for i := range events {
		events[i].SourceURL = url
		if events[i].Time.IsZero() {
			events[i].Time = now
		}
	}
	return events
}
