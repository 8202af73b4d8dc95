package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware records request counts and latencies per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
