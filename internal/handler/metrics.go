package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/lockbox/lockbox/internal/metrics"
)

// MetricsHandler serves GET /metrics. It delegates to a Prometheus
// exporter when one is configured and otherwise renders the in-memory
// counters in text exposition format.
type MetricsHandler struct {
	exporter    http.Handler
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler picks the exposition for recorder.
func NewMetricsHandler(recorder metrics.Recorder) *MetricsHandler {
	h := &MetricsHandler{}
	switch rec := recorder.(type) {
	case *metrics.PrometheusRecorder:
		h.exporter = rec.Handler()
	case metrics.Snapshotter:
		h.snapshotter = rec
	}
	return h
}

// Metrics writes the current metrics.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.exporter != nil {
		h.exporter.ServeHTTP(w, r)
		return
	}
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "lockbox_users_registered_total %d\n", snap.UsersRegistered)
	writeLabeled(w, "lockbox_logins_total", "outcome", snap.Logins)
	writeLabeled(w, "lockbox_tokens_rejected_total", "reason", snap.TokensRejected)
	writeLabeled(w, "lockbox_secret_operations_total", "op", snap.SecretOperations)
	writeMetric(w, "lockbox_decrypt_failures_total %d\n", snap.DecryptFailures)
	writeMetric(w, "lockbox_http_request_duration_seconds_count %d\n", snap.Requests)
	writeMetric(w, "lockbox_http_request_duration_seconds_sum %.6f\n", float64(snap.RequestTotalNs)/1e9)
}

func writeLabeled(w http.ResponseWriter, name, label string, counts map[string]uint64) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, k, counts[k])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
