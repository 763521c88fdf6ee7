package httpmiddleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "staffattend",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route and status.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route", "status"})

// Logger logs one line per request with zap and records latency. Paths in
// skip are neither logged nor measured.
func Logger(log *zap.Logger, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}
	return func(c *gin.Context) {
		if skipped[c.Request.URL.Path] {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Observe(latency.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
