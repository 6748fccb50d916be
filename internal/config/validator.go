package config

import (
	"github.com/apiredirector/gateway/internal/util"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return util.NewConfigError("", "configuration is nil")
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return util.NewConfigError("server.port", "must be between 1 and 65535")
	}

	if cfg.Upstream.GoogleMapsAPIKey == "" {
		return util.NewConfigError("upstream.googleMapsApiKey", "must be set")
	}

	if cfg.Upstream.Timeout <= 0 {
		return util.NewConfigError("upstream.timeout", "must be positive")
	}

	if cfg.RateLimit.DefaultRequests < 1 {
		return util.NewConfigError("rateLimit.defaultRequests", "must be at least 1")
	}

	if cfg.RateLimit.DefaultWindowSeconds < 1 {
		return util.NewConfigError("rateLimit.defaultWindowSeconds", "must be at least 1")
	}

	if cfg.RateLimit.Global.Enabled && cfg.RateLimit.Global.RequestsPerSecond < 1 {
		return util.NewConfigError("rateLimit.global.requestsPerSecond", "must be at least 1")
	}

	if cfg.Metrics.Enabled && (cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535) {
		return util.NewConfigError("metrics.port", "must be between 1 and 65535")
	}

	return nil
}
