// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesProcessedTotal *prometheus.CounterVec
	stepFailuresTotal   *prometheus.CounterVec
	changeEventsTotal   prometheus.Counter
	notificationsTotal  *prometheus.CounterVec
	frontierSize        prometheus.Gauge

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		pagesProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentry_pages_processed_total",
				Help: "Pages processed by the agent, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		stepFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentry_step_failures_total",
				Help: "Agent step failures, labeled by pipeline stage.",
			},
			[]string{"stage"},
		)
		changeEventsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sentry_change_events_total",
				Help: "Change events produced by the delta detector.",
			},
		)
		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentry_notifications_total",
				Help: "Notification attempts, labeled by result.",
			},
			[]string{"result"},
		)
		frontierSize = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentry_frontier_size",
				Help: "Current number of entries in the frontier.",
			},
		)
	})
}

// RecordPageProcessed counts one completed step.
func RecordPageProcessed(outcome string) {
	if pagesProcessedTotal == nil {
		return
	}
	pagesProcessedTotal.WithLabelValues(outcome).Inc()
}

// RecordStepFailure counts a failure at the given pipeline stage.
func RecordStepFailure(stage string) {
	if stepFailuresTotal == nil {
		return
	}
	stepFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordChangeEvents counts emitted change events.
func RecordChangeEvents(n int) {
	if changeEventsTotal == nil || n <= 0 {
		return
	}
	changeEventsTotal.Add(float64(n))
}

// RecordNotification counts one notification attempt.
func RecordNotification(result string) {
	if notificationsTotal == nil {
		return
	}
	notificationsTotal.WithLabelValues(result).Inc()
}

// SetFrontierSize reports the current frontier depth.
func SetFrontierSize(n int) {
	if frontierSize == nil {
		return
	}
	frontierSize.Set(float64(n))
}
