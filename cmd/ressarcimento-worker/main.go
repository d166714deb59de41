package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ressarcimento/internal/amqp"
	"ressarcimento/internal/backend"
	"ressarcimento/internal/cli"
	"ressarcimento/internal/config"
	"ressarcimento/internal/log"
	"ressarcimento/internal/metrics"
	"ressarcimento/internal/sheets/google"
	"ressarcimento/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting ressarcimento-worker", log.FieldOperation, log.OpStartup)

	m := metrics.New(prometheus.DefaultRegisterer)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// The worker only reads the primary store; it must not announce changes itself.
	bcfg.AMQPURL = ""
	primary, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).
		CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize primary store", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	target, err := google.New(context.Background(), bcfg.Sheets)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", target.SheetName())

	// Initialize AMQP client for consuming messages
	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	var metricsSrv *http.Server
	if cfg.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.Handler())
		mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		})
		metricsSrv = &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics listener failed", log.FieldError, err, "addr", cfg.WorkerMetricsAddr)
			}
		}()
	}

	cleanup := func(ctx context.Context) {
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(ctx)
		}
		if err := consumer.Close(); err != nil {
			logger.Error("AMQP close error", log.FieldError, err)
		}
		if err := primary.Close(); err != nil {
			logger.Error("Primary store cleanup error", log.FieldError, err)
		}
	}
	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, cleanup)

	mirror := worker.NewMirror(primary.Repository, target, m, logger.WithComponent(log.ComponentWorker).Slog())
	logger.Info("Mirroring ledger to Google Sheets",
		"queue", cfg.AMQPQueue,
		"interval", cfg.MirrorInterval.String())

	if err := mirror.Run(ctx, consumer, cfg.MirrorInterval); err != nil {
		logger.Error("Worker stopped", log.FieldError, err)
		cleanup(context.Background())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
