// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_sends_total",
			Help: "Total notification send attempts by category and outcome",
		},
		[]string{"category", "outcome"},
	)

	BatchSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_batch_sent_total",
			Help: "Total notifications sent per batch pathway",
		},
		[]string{"pathway"},
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notifier_batch_duration_seconds",
			Help: "Duration of one batch run in seconds",
		},
		[]string{"pathway"},
	)

	RateLimitClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_rate_limit_closed_total",
			Help: "Times a batch stopped early because the rate window closed",
		},
		[]string{"pathway"},
	)

	RetryQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifier_retry_queue_depth",
			Help: "Entries remaining in the reschedule retry queue",
		},
	)
)
