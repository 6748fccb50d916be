package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/apiredirector/gateway/internal/gateway/response"
	"github.com/apiredirector/gateway/internal/observability"
)

// IPRateLimitConfig configures the global per-IP limiter. This is a
// coarse flood-protection layer in front of the per-credential quota
// enforced by the proxy pipeline.
type IPRateLimitConfig struct {
	// RequestsPerSecond is the sustained rate allowed per client IP.
	RequestsPerSecond float64

	// Burst is the instantaneous burst allowed per client IP.
	Burst int

	// SkipPaths lists paths exempt from the limiter.
	SkipPaths []string

	Logger  observability.Logger
	Metrics *observability.Metrics
}

// IPRateLimit returns a middleware that token-bucket limits each
// client IP. Exhausted buckets get a 429 envelope.
func IPRateLimit(config IPRateLimitConfig) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = observability.NopLogger()
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	skipPaths := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	var limiters sync.Map

	limiterFor := func(ip string) *rate.Limiter {
		if v, ok := limiters.Load(ip); ok {
			return v.(*rate.Limiter)
		}
		v, _ := limiters.LoadOrStore(ip, rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst))
		return v.(*rate.Limiter)
	}

	return func(c *gin.Context) {
		if skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if !limiterFor(ip).Allow() {
			config.Logger.Warn("ip rate limit exceeded",
				observability.String("client_ip", ip),
				observability.String("path", c.Request.URL.Path),
			)
			if config.Metrics != nil {
				config.Metrics.IncRateLimitHit("ip")
			}
			response.TooManyRequests(c, "too many requests", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
