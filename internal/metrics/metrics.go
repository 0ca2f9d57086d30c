// Package metrics provides Prometheus metrics for workspace persistence.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	autosaveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marktex_autosave_total",
			Help: "Total number of snapshot writes by outcome",
		},
		[]string{"status"},
	)

	autosaveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marktex_autosave_duration_seconds",
			Help:    "Time to serialize and write a workspace snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)

	snapshotBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marktex_snapshot_bytes",
			Help: "Size of the last written workspace snapshot",
		},
	)

	hydrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marktex_hydrations_total",
			Help: "Total number of workspace hydrations by source",
		},
		[]string{"source"},
	)

	assetEncodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marktex_asset_encode_failures_total",
			Help: "Binary assets that could not be encoded into a snapshot",
		},
	)

	assetDecodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marktex_asset_decode_failures_total",
			Help: "Persisted asset payloads that could not be decoded",
		},
	)

	workspaceFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marktex_workspace_files",
			Help: "Number of files and folders in the workspace tree",
		},
	)
)

// RecordAutosave records one snapshot write attempt.
func RecordAutosave(success bool, duration time.Duration, size int) {
	status := "success"
	if !success {
		status = "error"
	}
	autosaveTotal.WithLabelValues(status).Inc()
	autosaveDuration.Observe(duration.Seconds())
	if success {
		snapshotBytes.Set(float64(size))
	}
}

// RecordHydration records where the workspace came from: "snapshot" or "default".
func RecordHydration(source string) {
	hydrationsTotal.WithLabelValues(source).Inc()
}

// RecordEncodeFailure counts an asset dropped from a snapshot payload.
func RecordEncodeFailure() {
	assetEncodeFailures.Inc()
}

// RecordDecodeFailure counts an asset payload that could not be restored.
func RecordDecodeFailure() {
	assetDecodeFailures.Inc()
}

// SetWorkspaceFiles sets the tree size gauge.
func SetWorkspaceFiles(n int) {
	workspaceFiles.Set(float64(n))
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
