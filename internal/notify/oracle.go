package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/sitesentry/sitesentry/internal/metrics"
	"github.com/sitesentry/sitesentry/internal/sentry"
)

// Oracle fans change events out to the subscribers whose rules match them.
type Oracle struct {
	subs     sentry.SubscriptionStore
	notifier sentry.Notifier
	logger   *zap.Logger
}

func NewOracle(subs sentry.SubscriptionStore, notifier sentry.Notifier, logger *zap.Logger) *Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{subs: subs, notifier: notifier, logger: logger}
}

// ProcessEvent evaluates every active subscription against the event and
// dispatches a notification for each match. A bad rule or a failed dispatch
// is logged and skipped so one subscriber can never block the rest; only
// failing to load the subscription list is an error.
func (o *Oracle) ProcessEvent(ctx context.Context, ev sentry.ChangeEvent) error {
	subs, err := o.subs.ListActive(ctx)
	if err != nil {
		return &sentry.StorageError{Op: "list_subscriptions", Err: err}
	}

	for _, sub := range subs {
		matched, err := RuleMatches(sub.Rule, ev)
		if err != nil {
			ruleErr := &sentry.RuleEvaluationError{SubscriptionID: sub.ID, Err: err}
			o.logger.Warn("subscription rule failed to evaluate",
				zap.String("subscription_id", sub.ID),
				zap.Error(ruleErr),
			)
			metrics.RecordNotification("rule_error")
			continue
		}
		if !matched {
			continue
		}

		if err := o.notifier.Notify(ctx, sub.Channel, ev); err != nil {
			o.logger.Warn("notification dispatch failed",
				zap.String("subscription_id", sub.ID),
				zap.String("channel", sub.Channel),
				zap.Error(err),
			)
			metrics.RecordNotification("error")
			continue
		}
		metrics.RecordNotification("ok")
	}
	return nil
}
