// Package observability provides Prometheus metrics for the watcher.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the client.
type Metrics struct {
	// Sync metrics
	AccountUpdates  *prometheus.CounterVec
	DecodeErrors    *prometheus.CounterVec
	WatchedTargets  prometheus.Gauge
	ConnectionState prometheus.Gauge
	LastUpdateAt    prometheus.Gauge

	// Subscription metrics
	SubscriptionEvents *prometheus.CounterVec

	// Detector metrics
	ChangeEvents *prometheus.CounterVec

	// Persistence metrics
	SnapshotWrites      prometheus.Counter
	SnapshotWriteErrors prometheus.Counter
	JournalWrites       prometheus.Counter
	JournalWriteErrors  prometheus.Counter

	// Scan metrics
	ScanDuration prometheus.Histogram
	ScanErrors   prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "cryptoscore_client"
	}

	return &Metrics{
		AccountUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "account_updates_total",
			Help:      "Total decoded account observations by source and kind",
		}, []string{"source", "kind"}),
		DecodeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "decode_errors_total",
			Help:      "Total account payloads that failed to decode by kind",
		}, []string{"kind"}),
		WatchedTargets: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "watched_targets",
			Help:      "Current number of watched addresses",
		}),
		ConnectionState: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "connection_state",
			Help:      "Transport health: 0 disconnected, 1 connected, 2 degraded",
		}),
		LastUpdateAt: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "last_update_timestamp",
			Help:      "Unix timestamp of the last observed account update",
		}),

		SubscriptionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "events_total",
			Help:      "Total subscription lifecycle events by type",
		}, []string{"type"}),

		ChangeEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "change_events_total",
			Help:      "Total detected market changes by kind",
		}, []string{"kind"}),

		SnapshotWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "snapshot_writes_total",
			Help:      "Total market snapshot upserts",
		}),
		SnapshotWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "snapshot_write_errors_total",
			Help:      "Total failed market snapshot upserts",
		}),
		JournalWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "journal_writes_total",
			Help:      "Total change events journaled",
		}),
		JournalWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "journal_write_errors_total",
			Help:      "Total failed change event writes",
		}),

		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "scan_duration_seconds",
			Help:      "Program account scan duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ScanErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "scan_errors_total",
			Help:      "Total failed program account scans",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
