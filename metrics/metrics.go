// Package metrics exposes Prometheus collectors for the scraping pipeline
// and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fetch metrics
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "souschef_fetch_total",
			Help: "Page fetches by engine and outcome",
		},
		[]string{"engine", "outcome"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "souschef_fetch_duration_seconds",
			Help:    "Page fetch duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"engine"},
	)

	// Extraction metrics
	ExtractTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "souschef_extract_total",
			Help: "Recipe extraction outcomes by winning strategy (\"none\" when no strategy matched)",
		},
		[]string{"strategy"},
	)

	// Cache metrics
	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "souschef_cache_operations_total",
			Help: "Cache operations by operation and result",
		},
		[]string{"op", "result"},
	)

	// Rate limiting
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "souschef_ratelimit_decisions_total",
			Help: "Rate limiter decisions",
		},
		[]string{"decision"},
	)

	// Video lookup
	VideoLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "souschef_video_lookups_total",
			Help: "Video lookups by outcome",
		},
		[]string{"outcome"},
	)

	VideoBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "souschef_video_breaker_state",
			Help: "Video lookup circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "souschef_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "souschef_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)
)

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		method := c.Request.Method
		APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		APIRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
