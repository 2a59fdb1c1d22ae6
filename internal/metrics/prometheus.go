package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lockbox"

// PrometheusRecorder implements Recorder on a private Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	usersRegistered  prometheus.Counter
	logins           *prometheus.CounterVec
	tokensRejected   *prometheus.CounterVec
	secretOperations *prometheus.CounterVec
	decryptFailures  prometheus.Counter
	requestDuration  *prometheus.HistogramVec
}

// NewPrometheus creates a recorder with its own registry, including the
// Go runtime and process collectors.
func NewPrometheus() *PrometheusRecorder {
	p := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		usersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_registered_total",
			Help:      "Accounts created.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		tokensRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_rejected_total",
			Help:      "Bearer tokens rejected by reason.",
		}, []string{"reason"}),
		secretOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secret_operations_total",
			Help:      "Successful vault operations by kind.",
		}, []string{"op"}),
		decryptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decrypt_failures_total",
			Help:      "Stored ciphertexts that failed to open under the current key.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	p.registry.MustRegister(
		p.usersRegistered,
		p.logins,
		p.tokensRejected,
		p.secretOperations,
		p.decryptFailures,
		p.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return p
}

// Registry returns the registry backing this recorder.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// IncUserRegistered increments the registration counter.
func (p *PrometheusRecorder) IncUserRegistered() {
	p.usersRegistered.Inc()
}

// IncLogin increments the login counter for outcome.
func (p *PrometheusRecorder) IncLogin(outcome string) {
	p.logins.WithLabelValues(outcome).Inc()
}

// IncTokenRejected increments the rejected token counter for reason.
func (p *PrometheusRecorder) IncTokenRejected(reason string) {
	p.tokensRejected.WithLabelValues(reason).Inc()
}

// IncSecretOperation increments the vault operation counter for op.
func (p *PrometheusRecorder) IncSecretOperation(op string) {
	p.secretOperations.WithLabelValues(op).Inc()
}

// IncDecryptFailure increments the decrypt failure counter.
func (p *PrometheusRecorder) IncDecryptFailure() {
	p.decryptFailures.Inc()
}

// ObserveRequest records request latency.
func (p *PrometheusRecorder) ObserveRequest(method, route string, status int, duration time.Duration) {
	p.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}
