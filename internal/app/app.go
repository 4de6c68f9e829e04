package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/foxzi/leadmail/internal/api"
	"github.com/foxzi/leadmail/internal/campaign"
	"github.com/foxzi/leadmail/internal/config"
	"github.com/foxzi/leadmail/internal/dkim"
	"github.com/foxzi/leadmail/internal/mailer"
	"github.com/foxzi/leadmail/internal/metrics"
	"github.com/foxzi/leadmail/internal/store"
	"github.com/foxzi/leadmail/internal/web/static"
)

// shutdownTimeout bounds graceful shutdown, including in-flight campaigns
const shutdownTimeout = 30 * time.Second

// App is the main application
type App struct {
	config        *config.Config
	store         store.Store
	runner        *campaign.Runner
	apiServer     *api.Server
	metricsServer *metrics.Server
	logger        *slog.Logger
}

// New creates a new application
func New(cfg *config.Config, version string) (*App, error) {
	logger := NewLogger(cfg.Logging, os.Stdout)

	st, err := OpenStore(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metrics.SetGlobal(m)
	}

	runner, err := NewRunner(st, cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	opts := []api.Option{
		api.WithStatic(static.Handler()),
		api.WithVersion(version),
	}
	if m != nil {
		opts = append(opts, api.WithMetrics(m))
	}
	apiServer := api.NewServer(st, runner, &cfg.Server, logger, opts...)

	a := &App{
		config:    cfg,
		store:     st,
		runner:    runner,
		apiServer: apiServer,
		logger:    logger,
	}
	if m != nil {
		a.metricsServer = metrics.NewServer(m, cfg.Metrics.ListenAddr, cfg.Metrics.Path, logger.With("component", "metrics"))
	}
	return a, nil
}

// NewRunner builds the campaign runner, signing outgoing mail when DKIM is
// configured
func NewRunner(st store.Store, cfg *config.Config, logger *slog.Logger) (*campaign.Runner, error) {
	opts := []campaign.Option{campaign.WithLogger(logger)}

	if cfg.Mailer.DKIM.Enabled {
		signer, err := dkim.LoadSigner(cfg.Mailer.DKIM.KeyFile, cfg.Mailer.DKIM.Domain, cfg.Mailer.DKIM.Selector)
		if err != nil {
			return nil, fmt.Errorf("failed to load DKIM key: %w", err)
		}
		mailLogger := logger.With("component", "mailer")
		opts = append(opts, campaign.WithTransportFactory(func(mc mailer.Config) campaign.Transport {
			return mailer.New(mc, mailer.WithSigner(signer), mailer.WithLogger(mailLogger))
		}))
		logger.Info("DKIM signing enabled", "domain", signer.Domain(), "selector", signer.Selector())
	}

	return campaign.NewRunner(st, campaign.Config{
		Concurrency: cfg.Campaign.Concurrency,
		Async:       cfg.Campaign.Async,
		Mailer: mailer.Config{
			HeloName:        cfg.Mailer.HeloName,
			ConnectTimeout:  cfg.Mailer.ConnectTimeout,
			GreetingTimeout: cfg.Mailer.GreetingTimeout,
			SocketTimeout:   cfg.Mailer.SocketTimeout,
		},
	}, opts...), nil
}

// Store returns the open storage backend
func (a *App) Store() store.Store {
	return a.store
}

// Run starts all components and waits for shutdown
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting leadmail",
		"api_addr", a.config.Server.ListenAddr,
		"storage", a.config.Storage.Driver,
		"concurrency", a.config.Campaign.Concurrency,
		"async", a.config.Campaign.Async,
	)

	// Create context that listens for signals
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 2)

	go func() {
		if err := a.apiServer.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	if a.metricsServer != nil {
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	// Wait for shutdown signal or error
	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("server error", "error", err)
		runErr = err
		cancel()
	}

	if err := a.Shutdown(context.Background()); err != nil {
		return err
	}
	return runErr
}

// Shutdown stops accepting requests, waits for running campaigns and closes
// storage
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("api server shutdown error", "error", err)
	}

	done := make(chan struct{})
	go func() {
		a.runner.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		a.logger.Warn("campaigns still running at shutdown")
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown error", "error", err)
		}
	}

	if err := a.store.Close(); err != nil {
		a.logger.Error("storage close error", "error", err)
		return fmt.Errorf("failed to close storage: %w", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// NewLogger creates a logger based on configuration
func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
