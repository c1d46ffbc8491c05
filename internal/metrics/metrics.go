// Package metrics holds the Prometheus collectors for note activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EntriesAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vodnote_entries_added_total",
		Help: "Total number of notes added one at a time",
	})

	EntriesImportedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vodnote_entries_imported_total",
		Help: "Total number of notes created by bulk import",
	})

	EntriesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vodnote_entries_deleted_total",
		Help: "Total number of notes deleted, including by clear",
	})

	ImportFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vodnote_import_failures_total",
		Help: "Total number of imports that recognised no lines",
	})

	ExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodnote_exports_total",
		Help: "Total number of exports by sink",
	}, []string{"sink"})

	Entries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vodnote_entries",
		Help: "Number of notes in the current collection",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vodnote_http_request_duration_seconds",
		Help:    "Web UI request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Export sinks.
const (
	SinkClipboard = "clipboard"
	SinkStdout    = "stdout"
	SinkFile      = "file"
	SinkHTTP      = "http"
)

// IncExport records an export to sink.
func IncExport(sink string) {
	if sink == "" {
		sink = "unknown"
	}
	ExportsTotal.WithLabelValues(sink).Inc()
}
