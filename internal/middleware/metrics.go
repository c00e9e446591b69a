package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harmonic-labs/academy-api/internal/service"
)

// Metrics records request duration and status per route. The templated
// route path keeps label cardinality bounded; unmatched requests fall
// back to the raw URL path.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
