// Package middleware provides the gin middleware chain for the
// gateway HTTP server.
package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/apiredirector/gateway/internal/gateway/response"
	"github.com/apiredirector/gateway/internal/observability"
)

// Recovery returns a middleware that recovers from handler panics and
// writes a generic 500 envelope. Panic values never reach the client.
func Recovery(logger observability.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					observability.Any("error", err),
					observability.String("method", c.Request.Method),
					observability.String("path", c.Request.URL.Path),
					observability.String("client_ip", c.ClientIP()),
					observability.ByteString("stack", debug.Stack()),
				)

				response.InternalError(c, "internal server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}
