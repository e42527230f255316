package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics for application monitoring. All metrics are
// registered in the default registry and exposed via /metrics.

var (
	// httpRequestsTotal counts all HTTP requests by method, path, and status.
	// Use for request rate monitoring and error rate calculation.
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration measures request processing time.
	// Use for latency analysis and SLO tracking (P50, P95, P99).
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// httpResponseSize tracks response body sizes for bandwidth monitoring.
	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// activeSessions tracks the number of unexpired sessions, refreshed
	// by the background sweep.
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "timely_active_sessions",
			Help: "Number of active user sessions",
		},
	)

	// authAttemptsTotal counts sign-in attempts by result.
	//
	// Labels: result (success, invalid_state, exchange_failed, ...)
	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timely_auth_attempts_total",
			Help: "Total number of OAuth sign-in attempts",
		},
		[]string{"result"},
	)

	// tokenRefreshTotal counts Google access-token refreshes by result.
	// A rising failure rate usually means revoked grants.
	tokenRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timely_token_refresh_total",
			Help: "Total number of Google token refresh attempts",
		},
		[]string{"result"},
	)

	// calendarRequestsTotal counts upstream Google Calendar API calls.
	//
	// Labels: operation (list_calendars, list_events), status (success, error)
	calendarRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timely_calendar_requests_total",
			Help: "Total number of Google Calendar API requests",
		},
		[]string{"operation", "status"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpResponseSize)
	prometheus.MustRegister(activeSessions)
	prometheus.MustRegister(authAttemptsTotal)
	prometheus.MustRegister(tokenRefreshTotal)
	prometheus.MustRegister(calendarRequestsTotal)
}

// Metrics creates middleware for collecting HTTP metrics: request count,
// duration, and response size for every request that passes through.
//
// The middleware wraps the response writer to capture status code and
// bytes written, which are not normally accessible.
//
// Usage:
//
//	r.Use(middleware.Metrics())
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status and size
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(ww.Status())

			httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			httpResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(ww.BytesWritten()))
		})
	}
}

// MetricsHandler returns the Prometheus metrics HTTP handler, exposing
// all registered metrics in text exposition format for scraping.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// IncrementAuthAttempts increments the sign-in attempts counter.
//
// Example:
//
//	middleware.IncrementAuthAttempts("invalid_state")
func IncrementAuthAttempts(result string) {
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// IncrementTokenRefresh increments the Google token refresh counter.
func IncrementTokenRefresh(result string) {
	tokenRefreshTotal.WithLabelValues(result).Inc()
}

// IncrementCalendarRequest increments the upstream Calendar API counter.
//
// Example:
//
//	middleware.IncrementCalendarRequest("list_events", "error")
func IncrementCalendarRequest(operation, status string) {
	calendarRequestsTotal.WithLabelValues(operation, status).Inc()
}

// SetActiveSessions sets the active sessions gauge. Called by the
// session sweep loop after each pass.
func SetActiveSessions(count float64) {
	activeSessions.Set(count)
}
