package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request count, latency and in-flight requests. Paths are
// labelled by route template so certificate numbers do not become labels.
func Metrics(metrics *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}
		method := c.Request.Method
		active := metrics.HTTPActiveRequests.WithLabelValues(method)
		active.Inc()
		start := time.Now()

		c.Next()

		active.Dec()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		prometheus.RecordHTTPRequest(metrics, method, path, c.Writer.Status(), time.Since(start))
	}
}
