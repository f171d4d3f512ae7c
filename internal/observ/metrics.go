package observ

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// PaymentsInitiated counts mpesa initiations by outcome of the
	// dispatch ("dispatched" or "gateway_error").
	PaymentsInitiated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_initiated_total",
			Help: "Total number of mpesa payment initiations",
		},
		[]string{"outcome"},
	)

	// PaymentsResolved counts callback resolutions by final status.
	PaymentsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_resolved_total",
			Help: "Total number of payment callback resolutions",
		},
		[]string{"status"},
	)
)

// RegisterMetrics registers all collectors. Call once at startup.
func RegisterMetrics() {
	prometheus.MustRegister(
		requestCounter,
		requestDuration,
		PaymentsInitiated,
		PaymentsResolved,
	)
}

// MetricsMiddleware records a counter and duration sample per request,
// labelled by route template (not the raw URL, to keep cardinality bounded).
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		requestCounter.WithLabelValues(c.Request.Method, path, status).Inc()
		requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler exposes the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
