// Package metrics provides Prometheus metrics for the file transfer server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connection metrics
	connectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "binxfer_connections_active",
			Help: "Number of connected clients",
		},
	)

	connectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "binxfer_connections_total",
			Help: "Total number of accepted client connections",
		},
	)

	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binxfer_commands_total",
			Help: "Total number of commands received, by verb",
		},
		[]string{"command"},
	)

	// Transfer metrics
	transfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binxfer_transfers_total",
			Help: "Total number of payload transfers",
		},
		[]string{"direction", "result"},
	)

	transferBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binxfer_transfer_bytes_total",
			Help: "Total payload bytes moved",
		},
		[]string{"direction"},
	)

	// Index metrics
	indexFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "binxfer_index_files",
			Help: "Number of files in the latest directory index snapshot",
		},
	)

	indexRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "binxfer_index_rebuild_duration_seconds",
			Help:    "Time to rebuild the directory index",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Transfer directions.
const (
	DirectionUpload   = "upload"
	DirectionDownload = "download"
)

// Transfer results.
const (
	ResultSaved    = "saved"
	ResultCorrupt  = "corrupt"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ConnectionOpened records a newly accepted client.
func ConnectionOpened() {
	connectionsTotal.Inc()
	connectionsActive.Inc()
}

// ConnectionClosed records a client leaving.
func ConnectionClosed() {
	connectionsActive.Dec()
}

// RecordCommand counts a received command. Unknown verbs are folded into one label.
func RecordCommand(verb string) {
	commandsTotal.WithLabelValues(verb).Inc()
}

// RecordTransfer records a finished payload transfer.
func RecordTransfer(direction, result string, bytes int64) {
	transfersTotal.WithLabelValues(direction, result).Inc()
	if bytes > 0 {
		transferBytes.WithLabelValues(direction).Add(float64(bytes))
	}
}

// RecordIndexRebuild records one directory index rebuild.
func RecordIndexRebuild(duration time.Duration, files int) {
	indexRebuildDuration.Observe(duration.Seconds())
	indexFiles.Set(float64(files))
}
