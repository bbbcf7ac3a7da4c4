package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/healthsphere/admin/internal/config"
	"github.com/healthsphere/admin/internal/dashboard"
	"github.com/healthsphere/admin/internal/platform/apiclient"
	"github.com/healthsphere/admin/internal/platform/middleware"
	"github.com/healthsphere/admin/internal/platform/websocket"
	"github.com/healthsphere/admin/internal/reference"
	"github.com/healthsphere/admin/internal/registry"
	"github.com/healthsphere/admin/internal/web"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "admin-server",
		Short: "HealthSphere hospital admin console",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sandboxCmd())
	rootCmd.AddCommand(calendarCmd())
	rootCmd.AddCommand(checkCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the admin console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newClient(cfg *config.Config, logger zerolog.Logger, metrics *apiclient.Metrics) *apiclient.Client {
	return apiclient.New(apiclient.Config{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.APITimeout,
		SigningKey: cfg.APISigningKey,
		Issuer:     cfg.APITokenIssuer,
		Audience:   cfg.APITokenAudience,
		Logger:     logger,
		Metrics:    metrics,
	})
}

// console is the assembled admin console.
type console struct {
	echo      *echo.Echo
	hub       *websocket.Hub
	snapshots *dashboard.Store
}

// newConsole wires the console's routes and middleware.
func newConsole(cfg *config.Config, logger zerolog.Logger) (*console, error) {
	catalog, err := reference.Load(cfg.ReferenceFile)
	if err != nil {
		return nil, err
	}
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	client := newClient(cfg, logger, apiclient.NewMetrics(reg))

	hub := websocket.NewHub(logger)
	snapshots := dashboard.NewStore(cfg.SnapshotTTL)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	timeoutCfg := middleware.DefaultTimeoutConfig()
	timeoutCfg.Timeout = cfg.RequestTimeout
	e.Use(middleware.RequestTimeout(timeoutCfg))

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}
	e.Use(middleware.RateLimit(rateLimitCfg))

	web.NewHandler(web.Config{
		Registry:      registry.New(client, catalog),
		Source:        dashboard.ClientSource{Client: client},
		Backend:       client,
		Snapshots:     snapshots,
		Events:        hub,
		Catalog:       catalog,
		AddDelay:      cfg.AddRedirectDelay,
		SecureCookies: cfg.TLSEnabled,
		Logger:        logger,
	}).RegisterRoutes(e)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return &console{echo: e, hub: hub, snapshots: snapshots}, nil
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		logger := newLogger(nil)
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)

	app, err := newConsole(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build console")
	}

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	app.snapshots.StartCleanup(cleanupCtx, time.Minute)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("backend", cfg.APIBaseURL).Msg("starting admin console")
		var err error
		if cfg.TLSEnabled {
			err = app.echo.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = app.echo.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	app.hub.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.echo.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
