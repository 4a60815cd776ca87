package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts and latencies by route template, so
// session ids never become label values.
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		active := m.HTTPActiveRequests.WithLabelValues(method)
		active.Inc()
		start := time.Now()

		c.Next()

		active.Dec()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		prometheus.RecordHTTPRequest(m, method, path, c.Writer.Status(), time.Since(start), int64(c.Writer.Size()))
	}
}
