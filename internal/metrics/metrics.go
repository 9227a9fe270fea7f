// Package metrics exposes Prometheus instrumentation for the webhook surface
// and for outbound gateway fetches. Labels are kept low-cardinality: routes
// use the registered Gin pattern (instance ids and secrets never become
// label values), gateway fetches are labelled by logical operation.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	gatewayReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of outbound payment gateway requests.",
		},
		[]string{"operation", "outcome"},
	)

	gatewayLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Duration of outbound payment gateway requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, gatewayReqs, gatewayLat)
}

// Middleware records request counts and latency per route pattern.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveGateway records one outbound gateway fetch.
// outcome is "complete" or "complete_error", matching the fetch log labels.
func ObserveGateway(operation, outcome string, duration time.Duration) {
	gatewayReqs.WithLabelValues(operation, outcome).Inc()
	gatewayLat.WithLabelValues(operation).Observe(duration.Seconds())
}
