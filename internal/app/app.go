// Package app wires the watch daemon: a queue store reloaded on an
// interval, Prometheus metrics and the HTTP server exposing both.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/foxzi/postq/internal/api"
	"github.com/foxzi/postq/internal/config"
	"github.com/foxzi/postq/internal/control"
	"github.com/foxzi/postq/internal/headers"
	"github.com/foxzi/postq/internal/metrics"
	"github.com/foxzi/postq/internal/postfix"
	"github.com/foxzi/postq/internal/queue"
	"github.com/foxzi/postq/internal/source"
)

// App is the watch daemon
type App struct {
	config    *config.Config
	store     *queue.Store
	apiServer *api.Server
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates a new watch daemon
func New(cfg *config.Config) (*App, error) {
	logger := SetupLogger(cfg.Logging)
	runner := postfix.ExecRunner{}

	var src source.Listing
	if cfg.Store.ListingFile != "" {
		src = source.NewFile(cfg.Store.ListingFile)
	} else {
		src = source.NewCommand(cfg.Postfix.Postqueue, runner)
	}

	store := queue.NewStore(src, queue.WithLogger(logger.With("component", "store")))
	loader := headers.NewLoader(cfg.Postfix.Postcat, runner, logger.With("component", "headers"))
	dispatcher := control.NewDispatcher(cfg.Postfix.Postsuper, runner, logger.With("component", "control"))
	m := metrics.New()

	apiServer := api.NewServer(store, loader, dispatcher, m, cfg.Watch.AllowedIPs, logger.With("component", "api"))

	return &App{
		config:    cfg,
		store:     store,
		apiServer: apiServer,
		metrics:   m,
		logger:    logger,
	}, nil
}

// Run starts the daemon and blocks until ctx is cancelled or the HTTP
// server fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.reload(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := a.apiServer.ListenAndServe(a.config.Watch.ListenAddr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("watch HTTP server: %w", err)
		}
	}()

	ticker := time.NewTicker(a.config.Watch.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutdown signal received")
			return a.Shutdown(context.Background())
		case err := <-errCh:
			a.logger.Error("server error", "error", err)
			return err
		case <-ticker.C:
			a.reload(ctx)
		}
	}
}

// reload refreshes the snapshot and the gauges derived from it. A
// failed load keeps the previous snapshot and its gauges.
func (a *App) reload(ctx context.Context) {
	err := a.store.Load(ctx)
	a.metrics.ObserveLoad(err)
	if err != nil {
		a.logger.Error("snapshot reload failed", "error", err)
		return
	}

	sum, err := a.store.Summary(ctx)
	if err != nil {
		a.logger.Error("snapshot summary failed", "error", err)
		return
	}
	a.metrics.ObserveSnapshot(sum)
}

// Shutdown gracefully shuts down the daemon
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("api server shutdown error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// SetupLogger creates a logger based on configuration
func SetupLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
