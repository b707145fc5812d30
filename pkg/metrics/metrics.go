// Package metrics exposes Prometheus metrics for sync runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRuns counts completed sync runs by outcome.
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notionsync_runs_total",
		Help: "Total sync runs by status",
	}, []string{"status", "kind"})

	// Records counts records moving through the pipeline stages.
	Records = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notionsync_records_total",
		Help: "Total records by pipeline stage",
	}, []string{"stage"})

	// RecordErrors counts records dropped per stage.
	RecordErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notionsync_record_errors_total",
		Help: "Total per-record errors by pipeline stage",
	}, []string{"stage"})

	// ColumnsCreated counts destination columns provisioned.
	ColumnsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notionsync_columns_created_total",
		Help: "Total destination columns provisioned",
	})

	// RunDuration observes end-to-end sync run duration.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notionsync_run_duration_seconds",
		Help:    "Sync run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

// ObserveRun records the aggregate metrics of one finished run.
func ObserveRun(status, kind string, duration time.Duration, fetched, transformed, synced int) {
	SyncRuns.WithLabelValues(status, kind).Inc()
	RunDuration.Observe(duration.Seconds())
	Records.WithLabelValues("fetched").Add(float64(fetched))
	Records.WithLabelValues("transformed").Add(float64(transformed))
	Records.WithLabelValues("synced").Add(float64(synced))
}
