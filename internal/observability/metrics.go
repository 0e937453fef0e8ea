package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	syncPasses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vitalsync",
		Subsystem: "engine",
		Name:      "sync_passes_total",
		Help:      "Sync passes by outcome (succeeded, failed, rejected).",
	}, []string{"outcome"})

	fetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vitalsync",
		Subsystem: "engine",
		Name:      "metric_fetch_failures_total",
		Help:      "Per-metric fetch failures, by metric kind.",
	}, []string{"kind"})

	storeWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vitalsync",
		Subsystem: "store",
		Name:      "writes_total",
		Help:      "Backend writes by table (snapshot, history) and outcome.",
	}, []string{"table", "outcome"})

	lastSyncGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vitalsync",
		Subsystem: "engine",
		Name:      "last_sync_timestamp_seconds",
		Help:      "Unix timestamp of the most recent completed sync pass.",
	})
)

func init() {
	prometheus.MustRegister(syncPasses, fetchFailures, storeWrites, lastSyncGauge)
}

// RecordPass counts a completed sync pass by outcome.
func RecordPass(outcome string) {
	syncPasses.WithLabelValues(outcome).Inc()
}

// RecordFetchFailure counts a per-metric fetch failure.
func RecordFetchFailure(kind string) {
	fetchFailures.WithLabelValues(kind).Inc()
}

// RecordWrite counts a backend write attempt.
func RecordWrite(table, outcome string) {
	storeWrites.WithLabelValues(table, outcome).Inc()
}

// RecordLastSync updates the last-sync watermark gauge.
func RecordLastSync(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastSyncGauge.Set(float64(ts.Unix()))
}
