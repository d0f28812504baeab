package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/server24/provisiond/internal/infra/config"
	"github.com/server24/provisiond/internal/infra/persistence"
	"github.com/server24/provisiond/internal/infra/xray"
	"github.com/server24/provisiond/internal/metrics"
	"github.com/server24/provisiond/internal/service"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("provisiond failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("app", "provisiond")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("PROVISIOND_CONFIG_PATH"))
	if err != nil {
		return err
	}

	pool, err := persistence.NewConnectionPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	subscribers := persistence.NewSubscriberRepository(pool, logger)
	credentials := persistence.NewCredentialRepository(pool, logger)

	store := xray.NewFileStore(cfg.Xray.ConfigPath, logger)
	reloader, err := xray.NewCommandReloader(cfg.Xray.ReloadCommand, cfg.Xray.ReloadTimeout, logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	engine := service.NewProvisioner(cfg, subscribers, credentials, store, reloader,
		metrics.New(registry), logger)

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Listen, registry, logger)
	}

	watcher, err := xray.NewDocumentWatcher(cfg.Xray.ConfigPath, logger)
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Heal any drift accumulated while we were down before settling
	// into the watch loop.
	if _, err := engine.Reconcile(ctx); err != nil {
		logger.Warn("initial reconcile failed", "error", err)
	}

	logger.Info("provisiond started",
		"document", cfg.Xray.ConfigPath, "protocol", cfg.Xray.Protocol)

	reconciler := service.NewReconciler(engine, cfg.Xray.SyncInterval, watcher.Events(), logger)
	return reconciler.Run(ctx)
}

func serveMetrics(listen string, registry *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics listener failed", "error", err)
	}
}
