// Package observability wires Prometheus metrics for the HTTP surface and
// the authorization and rate limiting decision points.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the process registry and the application collectors.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	authzDenials *prometheus.CounterVec
	rateLimited  *prometheus.CounterVec
}

// NewMetrics builds the registry with Go runtime and process collectors
// registered.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hemam_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hemam_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		authzDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hemam_authz_denials_total",
			Help: "Authorization denials by error code.",
		}, []string{"code"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hemam_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by endpoint class.",
		}, []string{"class"}),
	}
	registry.MustRegister(m.httpRequests, m.httpDuration, m.authzDenials, m.rateLimited)
	return m
}

// Handler returns the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// AuthzDenied counts one authorization denial.
func (m *Metrics) AuthzDenied(code string) {
	m.authzDenials.WithLabelValues(code).Inc()
}

// RateLimited counts one rejected request for an endpoint class.
func (m *Metrics) RateLimited(class string) {
	m.rateLimited.WithLabelValues(class).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.httpRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
