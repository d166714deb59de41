package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ressarcimento/internal/backend"
	"ressarcimento/internal/cli"
	apphttp "ressarcimento/internal/http"
	"ressarcimento/internal/ledger"
	"ressarcimento/internal/log"
	"ressarcimento/internal/metrics"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	m := metrics.New(prometheus.DefaultRegisterer)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).
		CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	l, load := ledger.Open(loadCtx, store.Repository, ledger.Options{
		Publisher: store.Publisher,
		Observer:  m,
		WeekStart: cfg.WeekStartDay(),
		Logger:    logger.WithComponent(log.ComponentLedger).Slog(),
	})
	cancelLoad()
	if load.Failed() {
		// Keep serving: the page shows the error and offers a retry.
		logger.Error("Initial load failed, mutations disabled until reload",
			log.FieldError, load.Err, log.FieldBackend, cfg.DataBackend)
	} else {
		logger.Info("Records loaded", "status", load.Status.String(), log.FieldCount, load.Count)
	}

	srv := apphttp.NewServer(":"+cfg.Port, l, apphttp.Options{
		Logger:       logger,
		Metrics:      m,
		Gatherer:     prometheus.DefaultGatherer,
		ExportPrefix: cfg.ExportPrefix,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := store.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting ressarcimento server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		log.FieldWeekStart, cfg.WeekStartDay().String(),
		"amqp_enabled", store.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
