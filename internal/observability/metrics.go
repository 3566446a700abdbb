package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	readRetries     prometheus.Counter
	gatewayFailures *prometheus.CounterVec
	verifications   *prometheus.CounterVec
	saveOutcomes    *prometheus.CounterVec
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seikyu_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seikyu_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	readRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seikyu_gateway_read_retries_total",
		Help: "Read statements retried after a transient bridge failure.",
	})
	gatewayFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seikyu_gateway_failures_total",
		Help: "Gateway failures surfaced to callers by kind.",
	}, []string{"kind"})
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seikyu_write_verifications_total",
		Help: "Write verification probes by outcome (accepted or rethrown).",
	}, []string{"outcome"})
	saveOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seikyu_saves_total",
		Help: "Multi-statement save outcomes (ok, warning, error).",
	}, []string{"entity", "outcome"})
	registry.MustRegister(requests, duration, readRetries, gatewayFailures, verifications, saveOutcomes)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		readRetries:     readRetries,
		gatewayFailures: gatewayFailures,
		verifications:   verifications,
		saveOutcomes:    saveOutcomes,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ReadRetried counts a single retried read attempt.
func (m *Metrics) ReadRetried() {
	if m == nil {
		return
	}
	m.readRetries.Inc()
}

// GatewayFailure counts a failure surfaced to a gateway caller.
func (m *Metrics) GatewayFailure(kind string) {
	if m == nil {
		return
	}
	m.gatewayFailures.WithLabelValues(kind).Inc()
}

// VerificationResolved counts a write verification outcome.
func (m *Metrics) VerificationResolved(outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
}

// SaveOutcome counts the final outcome of a save sequence.
func (m *Metrics) SaveOutcome(entity, outcome string) {
	if m == nil {
		return
	}
	m.saveOutcomes.WithLabelValues(entity, outcome).Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
