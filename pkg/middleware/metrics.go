package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/odfmonitor/odf-monitor/pkg/metrics"
)

// RequestMetrics records request latency by route template.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
