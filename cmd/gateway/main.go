// Package main is the entry point for the API redirector gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apiredirector/gateway/internal/audit"
	"github.com/apiredirector/gateway/internal/auth"
	"github.com/apiredirector/gateway/internal/config"
	"github.com/apiredirector/gateway/internal/gateway"
	"github.com/apiredirector/gateway/internal/gateway/server/http/middleware"
	"github.com/apiredirector/gateway/internal/health"
	"github.com/apiredirector/gateway/internal/observability"
	"github.com/apiredirector/gateway/internal/proxy"
	"github.com/apiredirector/gateway/internal/proxy/googlemaps"
	"github.com/apiredirector/gateway/internal/ratelimit"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags.configPath, logger)
	app := initApplication(cfg, logger)

	run(app, flags.configPath, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("GATEWAY_CONFIG_PATH", "configs/gateway.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("GATEWAY_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("GATEWAY_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("gateway version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) *config.Config {
	logger.Info("starting gateway",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	if err := config.Validate(cfg); err != nil {
		logger.Fatal("invalid configuration", observability.Error(err))
	}

	return cfg
}

// application holds all application components.
type application struct {
	server      *gateway.Server
	registry    *auth.Registry
	limiter     *ratelimit.FixedWindowLimiter
	auditLogger *audit.Logger
	checker     *health.Checker
	metrics     *observability.Metrics
	config      *config.Config
}

// initApplication wires all application components.
func initApplication(cfg *config.Config, logger observability.Logger) *application {
	metrics := observability.NewMetrics("gateway")
	metrics.SetBuildInfo(version)

	defaults := auth.Quota{
		MaxRequests: cfg.RateLimit.DefaultRequests,
		Window:      cfg.RateLimit.Window(),
	}
	registry := auth.NewRegistry(auth.ParseCredentialSpec(cfg.Auth.CredentialSpec, defaults))
	logger.Info("credentials loaded", observability.Int("count", registry.Count()))

	var recorder audit.Recorder = audit.NopRecorder{}
	var auditLogger *audit.Logger
	if cfg.Audit.Enabled {
		auditLogger = audit.NewLogger(logger, cfg.Audit.QueueSize,
			audit.WithOnDrop(metrics.IncAuditDropped))
		recorder = auditLogger
	}

	authenticator := auth.NewAuthenticator(registry,
		auth.WithAuditRecorder(recorder),
		auth.WithLogger(logger),
	)

	limiter := ratelimit.NewFixedWindowLimiter(ratelimit.WithLogger(logger))

	maps := googlemaps.New(cfg.Upstream.GoogleMapsAPIKey)
	services := proxy.NewRegistry(maps)

	dispatcherOpts := []proxy.DispatcherOption{
		proxy.WithTimeout(cfg.Upstream.Timeout.Duration()),
		proxy.WithDispatcherLogger(logger),
		proxy.WithDispatcherMetrics(metrics),
	}
	if cfg.Upstream.CircuitBreaker.Enabled {
		dispatcherOpts = append(dispatcherOpts, proxy.WithCircuitBreaker(
			cfg.Upstream.CircuitBreaker.Threshold,
			cfg.Upstream.CircuitBreaker.Timeout.Duration(),
		))
	}
	dispatcher := proxy.NewDispatcher(dispatcherOpts...)

	pipeline := gateway.NewPipeline(authenticator, limiter, services, dispatcher,
		gateway.WithAuditRecorder(recorder),
		gateway.WithLogger(logger),
		gateway.WithMetrics(metrics),
	)

	checker := health.NewChecker(version, services)
	handlers := gateway.NewHandlers(pipeline, maps, checker)

	server := gateway.NewServer(&gateway.ServerConfig{
		Address:      cfg.Server.Address,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  cfg.Server.IdleTimeout.Duration(),
	}, logger)

	server.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.LoggingWithConfig(middleware.LoggingConfig{
			Logger:    logger,
			SkipPaths: []string{"/health"},
		}),
		middleware.Metrics(metrics),
	)
	if cfg.RateLimit.Global.Enabled {
		server.Use(middleware.IPRateLimit(middleware.IPRateLimitConfig{
			RequestsPerSecond: float64(cfg.RateLimit.Global.RequestsPerSecond),
			Burst:             cfg.RateLimit.Global.Burst,
			SkipPaths:         []string{"/health"},
			Logger:            logger,
			Metrics:           metrics,
		}))
	}

	gateway.RegisterRoutes(server.Engine(), handlers)

	return &application{
		server:      server,
		registry:    registry,
		limiter:     limiter,
		auditLogger: auditLogger,
		checker:     checker,
		metrics:     metrics,
		config:      cfg,
	}
}

// run starts the gateway and blocks until shutdown.
func run(app *application, configPath string, logger observability.Logger) {
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	app.limiter.StartCleanup(cleanupCtx, 10*time.Minute)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.server.Start()
	}()

	startMetricsServerIfEnabled(app, logger)
	watcher := startConfigWatcher(app, configPath, logger)

	waitForShutdown(app, watcher, serverErr, logger)
}

// startMetricsServerIfEnabled serves Prometheus metrics on a separate
// listener so the scrape surface stays off the public port.
func startMetricsServerIfEnabled(app *application, logger observability.Logger) {
	if !app.config.Metrics.Enabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle(app.config.Metrics.Path, app.metrics.Handler())

	addr := fmt.Sprintf(":%d", app.config.Metrics.Port)
	go func() {
		logger.Info("metrics server starting", observability.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", observability.Error(err))
		}
	}()
}

// startConfigWatcher hot-reloads credentials when the config file
// changes. Server topology changes still require a restart.
func startConfigWatcher(app *application, configPath string, logger observability.Logger) *config.Watcher {
	watcher, err := config.NewWatcher(configPath, func(newCfg *config.Config) {
		defaults := auth.Quota{
			MaxRequests: newCfg.RateLimit.DefaultRequests,
			Window:      newCfg.RateLimit.Window(),
		}
		app.registry.Replace(auth.ParseCredentialSpec(newCfg.Auth.CredentialSpec, defaults))
		logger.Info("credentials reloaded", observability.Int("count", app.registry.Count()))
	}, config.WithLogger(logger))
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
	}
	return watcher
}

// waitForShutdown blocks on a signal or server failure, then shuts
// everything down gracefully.
func waitForShutdown(app *application, watcher *config.Watcher, serverErr <-chan error, logger observability.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", observability.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", observability.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		app.config.Server.ShutdownTimeout.Duration())
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if err := app.server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if app.auditLogger != nil {
		app.auditLogger.Close()
	}

	logger.Info("gateway stopped")
}
