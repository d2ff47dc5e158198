package middleware

import (
	"strconv"
	"time"

	"github.com/fundgate/ledger-core/internal/platform/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request counts and latency by route pattern
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		metrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
