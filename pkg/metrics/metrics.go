package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Dispatch related metrics
	NotificationsSent    *prometheus.CounterVec
	NotificationsSkipped *prometheus.CounterVec
	NotificationsFailed  *prometheus.CounterVec
	DispatchDuration     prometheus.Histogram
	DispatchRuns         *prometheus.CounterVec

	// Key-value store metrics
	KVOperations *prometheus.CounterVec
	KVLatency    *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_sent_total",
			Help:      "Total number of notifications sent per channel and type",
		}, []string{"channel", "type"}),
		NotificationsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_skipped_total",
			Help:      "Total number of notifications skipped by the idempotency ledger",
		}, []string{"channel", "type"}),
		NotificationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_failed_total",
			Help:      "Total number of failed notification sends",
		}, []string{"channel", "type"}),
		DispatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent running a dispatch cycle",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		DispatchRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_runs_total",
			Help:      "Total number of dispatch invocations per trigger",
		}, []string{"trigger"}),
		KVOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "kv_operations_total",
			Help:      "Total number of key-value store operations",
		}, []string{"operation", "status"}),
		KVLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "kv_operation_duration_seconds",
			Help:      "Key-value store operation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}
