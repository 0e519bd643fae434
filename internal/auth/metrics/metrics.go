// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tenantauth_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantauth_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenantauth_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// AuditDropped counts events discarded because the audit buffer was full.
	AuditDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tenantauth_audit_dropped_total",
		Help: "Audit events dropped because the buffer was full.",
	})

	// AuditSinkErrors counts failed writes per sink.
	AuditSinkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantauth_audit_sink_errors_total",
			Help: "Audit events a sink failed to persist.",
		},
		[]string{"sink"},
	)

	// AuditWritten counts events persisted per sink.
	AuditWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantauth_audit_written_total",
			Help: "Audit events persisted.",
		},
		[]string{"sink"},
	)

	// AuthDecisions counts access control outcomes by operation.
	AuthDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantauth_authz_decisions_total",
			Help: "Access control decisions by operation and outcome code.",
		},
		[]string{"operation", "outcome"},
	)

	// RateLimited counts requests rejected by a rate limiter.
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantauth_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		},
		[]string{"limiter"},
	)
)

// Init registers every collector with the default registry.
func Init() {
	Register(prometheus.DefaultRegisterer)
}

// Register registers every collector with reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		AuditDropped,
		AuditSinkErrors,
		AuditWritten,
		AuthDecisions,
		RateLimited,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records in-flight count, totals and latency. Requests are
// labelled by their ServeMux pattern so path parameters do not explode
// label cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
