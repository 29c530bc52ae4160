// Package metrics provides Prometheus metrics for device transfers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	bytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mtp_bytes_downloaded_total",
			Help: "Total bytes read from device content",
		},
	)

	bytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mtp_bytes_uploaded_total",
			Help: "Total bytes written to device content",
		},
	)

	transfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtp_transfers_total",
			Help: "Total number of file transfers",
		},
		[]string{"direction", "path", "status"},
	)

	transferDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mtp_transfer_duration_seconds",
			Help:    "File transfer duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"direction"},
	)

	walkEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mtp_walk_entries_total",
			Help: "Total tree entries visited by walks",
		},
	)

	walkErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mtp_walk_errors_total",
			Help: "Total per-entry errors encountered during walks",
		},
	)

	deletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtp_deletes_total",
			Help: "Total number of delete operations",
		},
		[]string{"status"},
	)
)

// RecordDownload records a completed (or failed) download.
func RecordDownload(bytes int64, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	} else {
		bytesDownloaded.Add(float64(bytes))
	}
	transfersTotal.WithLabelValues("download", "stream", status).Inc()
	transferDuration.WithLabelValues("download").Observe(duration.Seconds())
}

// RecordUpload records a completed (or failed) upload. The path label
// distinguishes the direct streaming path from the staged fallback.
func RecordUpload(bytes int64, staged bool, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	} else {
		bytesUploaded.Add(float64(bytes))
	}
	path := "stream"
	if staged {
		path = "staged"
	}
	transfersTotal.WithLabelValues("upload", path, status).Inc()
	transferDuration.WithLabelValues("upload").Observe(duration.Seconds())
}

// RecordWalkEntry counts one visited tree entry.
func RecordWalkEntry() {
	walkEntries.Inc()
}

// RecordWalkError counts one per-entry walk failure.
func RecordWalkError() {
	walkErrors.Inc()
}

// RecordDelete records a delete outcome.
func RecordDelete(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	deletesTotal.WithLabelValues(status).Inc()
}

// Serve exposes /metrics on addr in a background goroutine. Returns the
// server so callers can shut it down.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
