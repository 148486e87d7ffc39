package middleware

import (
	"strings"
	"time"

	"tvtime-service/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics returns a middleware that records API metrics
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only track API endpoints
		if !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		metrics.RecordAPIRequest(c.Request.Method, endpointLabel(c), c.Writer.Status(), time.Since(start))
	}
}

// endpointLabel groups requests by route template so ids do not explode label cardinality
func endpointLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
