// v1
// metrics.go
package internal

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the service's Prometheus collectors.
type Metrics struct {
	rowsIngested    *prometheus.CounterVec
	rowsDropped     *prometheus.CounterVec
	pipelineRuns    prometheus.Counter
	pipelineSeconds prometheus.Histogram
	hiveCount       prometheus.Gauge
	snapshotsOut    prometheus.Counter
	snapshotErrors  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rowsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_rows_ingested_total",
			Help: "Raw export rows accepted into the window buffer, by source.",
		}, []string{"source"}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_rows_dropped_total",
			Help: "Raw rows or pipeline warnings recorded, by reason.",
		}, []string{"reason"}),
		pipelineRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_pipeline_runs_total",
			Help: "Full pipeline recomputations.",
		}),
		pipelineSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "telemetry_pipeline_duration_seconds",
			Help:    "Histogram of pipeline run durations.",
			Buckets: prometheus.DefBuckets,
		}),
		hiveCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "telemetry_hive_count",
			Help: "Device count observed by the latest pipeline run.",
		}),
		snapshotsOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_snapshots_published_total",
			Help: "Snapshot messages published to the snapshot topic.",
		}),
		snapshotErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_snapshot_errors_total",
			Help: "Snapshot publish failures.",
		}),
	}
	reg.MustRegister(
		m.rowsIngested,
		m.rowsDropped,
		m.pipelineRuns,
		m.pipelineSeconds,
		m.hiveCount,
		m.snapshotsOut,
		m.snapshotErrors,
	)
	return m
}

// observeRun records one pipeline run's duration and outcome.
func (m *Metrics) observeRun(seconds float64, res Result) {
	m.pipelineRuns.Inc()
	m.pipelineSeconds.Observe(seconds)
	m.hiveCount.Set(float64(res.HiveCount))
	for _, w := range res.Warnings {
		m.rowsDropped.WithLabelValues(string(w.Kind)).Inc()
	}
}

// MetricsHandler serves the Prometheus exposition endpoint.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
