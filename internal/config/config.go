// Package config provides configuration types and loading for the gateway.
//
// Configuration is read from a YAML file with ${VAR} and ${VAR:-default}
// environment variable substitution, so deployment environments can inject
// secrets (upstream API keys, the credential spec) without the core packages
// ever touching the process environment directly.
package config

import "time"

// Config is the root gateway configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Audit     AuditConfig     `yaml:"audit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds the inbound HTTP listener configuration.
type ServerConfig struct {
	Address         string   `yaml:"address"`
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout"`
	IdleTimeout     Duration `yaml:"idleTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
}

// UpstreamConfig holds configuration for outbound dispatch to upstream
// providers.
type UpstreamConfig struct {
	// GoogleMapsAPIKey is the server-held provider credential. It is
	// injected by the google-maps proxy variant and must never be
	// supplied by or echoed back to callers.
	GoogleMapsAPIKey string `yaml:"googleMapsApiKey"`

	// Timeout bounds every outbound dispatch.
	Timeout Duration `yaml:"timeout"`

	// CircuitBreaker protects the gateway from a failing upstream.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// CircuitBreakerConfig holds circuit breaker settings for upstream dispatch.
type CircuitBreakerConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Threshold int      `yaml:"threshold"`
	Timeout   Duration `yaml:"timeout"`
}

// AuthConfig holds caller authentication configuration.
type AuthConfig struct {
	// CredentialSpec is the static credential list in the form
	// "key1:name1:perm1,perm2;key2:name2:perm1".
	CredentialSpec string `yaml:"credentialSpec"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	// DefaultRequests is the per-credential fixed window budget.
	DefaultRequests int `yaml:"defaultRequests"`

	// DefaultWindowSeconds is the per-credential window length.
	DefaultWindowSeconds int `yaml:"defaultWindowSeconds"`

	// Global configures the inbound per-client-IP limiter that protects
	// the gateway itself, independent of credential budgets.
	Global GlobalRateLimitConfig `yaml:"global"`
}

// GlobalRateLimitConfig holds inbound per-client rate limiting settings.
type GlobalRateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerSecond int  `yaml:"requestsPerSecond"`
	Burst             int  `yaml:"burst"`
}

// AuditConfig holds audit logging configuration.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`

	// QueueSize bounds the async audit event queue. Events beyond the
	// bound are dropped and counted, never blocking a request.
	QueueSize int `yaml:"queueSize"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			IdleTimeout:     Duration(120 * time.Second),
			ShutdownTimeout: Duration(30 * time.Second),
		},
		Upstream: UpstreamConfig{
			Timeout: Duration(10 * time.Second),
			CircuitBreaker: CircuitBreakerConfig{
				Threshold: 5,
				Timeout:   Duration(30 * time.Second),
			},
		},
		RateLimit: RateLimitConfig{
			DefaultRequests:      100,
			DefaultWindowSeconds: 3600,
			Global: GlobalRateLimitConfig{
				RequestsPerSecond: 100,
				Burst:             50,
			},
		},
		Audit: AuditConfig{
			QueueSize: 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
	}
}

// applyDefaults fills in zero values with defaults.
func (c *Config) applyDefaults() {
	def := Default()

	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = def.Server.IdleTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = def.Upstream.Timeout
	}
	if c.Upstream.CircuitBreaker.Threshold == 0 {
		c.Upstream.CircuitBreaker.Threshold = def.Upstream.CircuitBreaker.Threshold
	}
	if c.Upstream.CircuitBreaker.Timeout == 0 {
		c.Upstream.CircuitBreaker.Timeout = def.Upstream.CircuitBreaker.Timeout
	}
	if c.RateLimit.DefaultRequests == 0 {
		c.RateLimit.DefaultRequests = def.RateLimit.DefaultRequests
	}
	if c.RateLimit.DefaultWindowSeconds == 0 {
		c.RateLimit.DefaultWindowSeconds = def.RateLimit.DefaultWindowSeconds
	}
	if c.RateLimit.Global.RequestsPerSecond == 0 {
		c.RateLimit.Global.RequestsPerSecond = def.RateLimit.Global.RequestsPerSecond
	}
	if c.RateLimit.Global.Burst == 0 {
		c.RateLimit.Global.Burst = def.RateLimit.Global.Burst
	}
	if c.Audit.QueueSize == 0 {
		c.Audit.QueueSize = def.Audit.QueueSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = def.Metrics.Port
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = def.Metrics.Path
	}
}

// Window returns the per-credential window as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.DefaultWindowSeconds) * time.Second
}
