// Package lognotifier delivers notifications to the process log. It is
// the default delivery backend and a useful stand-in during development.
package lognotifier

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

type Notifier struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{logger: logger}
}

func (n *Notifier) Notify(_ context.Context, channel string, ev sentry.ChangeEvent) error {
	n.logger.Info("change notification",
		zap.String("channel", channel),
		zap.String("event_type", ev.EventType),
		zap.String("source_url", ev.SourceURL),
		zap.Time("event_time", ev.Time),
		zap.Any("details", ev.Details),
		zap.Duration("age", time.Since(ev.Time)),
	)
	return nil
}
