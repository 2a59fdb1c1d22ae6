package middleware

import (
	"net/http"
	"time"

	"github.com/lockbox/lockbox/internal/metrics"
)

// Metrics records request latency by method, route pattern and status.
// Route patterns keep secret IDs out of label values.
func Metrics(recorder metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			recorder.ObserveRequest(r.Method, routePattern(r), rec.status, time.Since(start))
		})
	}
}
