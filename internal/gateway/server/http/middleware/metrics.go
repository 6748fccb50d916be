package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/apiredirector/gateway/internal/observability"
)

// Metrics returns a middleware that records request counts, latency,
// and in-flight gauge per route.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		m.IncActiveRequests()
		defer m.DecActiveRequests()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}
