package metrics

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTP and admin action metrics, registered on the MetricsManager registry
// the first time they are recorded. They stay nil while business metrics
// are disabled.
var (
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPActiveConnections prometheus.Gauge
	AdminActionsTotal     *prometheus.CounterVec

	httpMetricsOnce sync.Once
)

// Admin action results
const (
	ResultSuccess  = "success"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultConflict = "conflict"
	ResultError    = "error"
)

// BusinessMetricsEnabled reports whether ENABLE_BUSINESS_METRICS is on
func BusinessMetricsEnabled() bool {
	return os.Getenv("ENABLE_BUSINESS_METRICS") == "true"
}

func initializeHTTPMetrics() {
	httpMetricsOnce.Do(func() {
		HTTPRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		)

		HTTPRequestDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status"},
		)

		HTTPActiveConnections = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_active_connections",
				Help: "Number of active HTTP connections",
			},
		)

		AdminActionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_actions_total",
				Help: "Total number of admin actions by outcome",
			},
			[]string{"action", "result"}, // result: success, not_found, invalid, conflict, error
		)

		GetInstance().registry.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			HTTPActiveConnections,
			AdminActionsTotal,
		)
	})
}

// RecordHTTPRequest records metrics for an HTTP request. endpoint should be
// the route template so ids do not explode the label set.
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if !BusinessMetricsEnabled() {
		return
	}
	initializeHTTPMetrics()

	status := strconv.Itoa(statusCode)
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// RecordAdminAction counts one admin action and its outcome
func RecordAdminAction(action, result string) {
	if !BusinessMetricsEnabled() {
		return
	}
	initializeHTTPMetrics()

	AdminActionsTotal.WithLabelValues(action, result).Inc()
}

// IncActiveConnections increments active connections
func IncActiveConnections() {
	if !BusinessMetricsEnabled() {
		return
	}
	initializeHTTPMetrics()

	HTTPActiveConnections.Inc()
}

// DecActiveConnections decrements active connections
func DecActiveConnections() {
	if !BusinessMetricsEnabled() {
		return
	}
	initializeHTTPMetrics()

	HTTPActiveConnections.Dec()
}
