// Package httpapi exposes the proxy's REST surface: a gin router, the
// middleware stack, and handlers that map classified fetch errors onto HTTP
// status codes.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// RequestIDHeader is the HTTP header carrying the request ID.
const RequestIDHeader = "X-Request-ID"

// requestIDKey is the gin context key for the request ID.
const requestIDKey = "request_id"

// Prometheus metrics for the HTTP surface.
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"route", "method", "status_class"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Request latency in seconds",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"route", "method"})

	httpInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "http_inprogress_total",
		Help: "Number of in-progress HTTP requests",
	})
)

// RequestID ensures each request carries a unique ID. A client-provided
// X-Request-ID is kept, otherwise a UUID is generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// GetRequestID retrieves the request ID from the gin context.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(requestIDKey); exists {
		if requestID, ok := id.(string); ok {
			return requestID
		}
	}
	return ""
}

// Recovery recovers from handler panics and returns a 500 error.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Str("request_id", GetRequestID(c)).
					Interface("panic", err).
					Str("path", c.Request.URL.Path).
					Msg("PANIC recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"detail": "An unexpected error occurred",
				})
			}
		}()
		c.Next()
	}
}

// RequestLogger logs one structured line per request, leveled by status code.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		logger := log.With().
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status_code", status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Str("ip", c.ClientIP()).
			Logger()

		switch {
		case status >= 500:
			logger.Error().Msg("HTTP request")
		case status >= 400:
			logger.Warn().Msg("HTTP request")
		default:
			logger.Info().Msg("HTTP request")
		}
	}
}

// apiKeyHeader is the header checked by APIKeyAuth.
const apiKeyHeader = "X-API-Key"

// APIKeyAuth validates the X-API-Key header against the configured key.
// An empty configured key disables authentication.
func APIKeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}

		provided := c.GetHeader(apiKeyHeader)
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "API key required"})
			return
		}
		if provided != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid API key"})
			return
		}
		c.Next()
	}
}

// HTTPMetrics records request counts, latency, and in-progress concurrency.
// Routes are labeled by template (e.g. /quote/:symbol) to keep cardinality
// bounded.
func HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInProgress.Inc()
		start := time.Now()

		c.Next()

		httpInProgress.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		statusClass := strconv.Itoa(c.Writer.Status()/100) + "xx"

		httpRequestsTotal.WithLabelValues(route, method, statusClass).Inc()
		httpRequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
