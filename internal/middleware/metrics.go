package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pbis-api/internal/service"
)

// Metrics observes every request on the given metrics service. Unmatched routes share a
// single label so scanners cannot blow up the series count.
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
			route = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
