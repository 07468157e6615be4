package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"lifedash/internal/amqp"
	"lifedash/internal/cache"
	"lifedash/internal/cli"
	"lifedash/internal/config"
	"lifedash/internal/log"
	ports "lifedash/internal/sheets"
	gsheet "lifedash/internal/sheets/google"
	mem "lifedash/internal/sheets/memory"
	"lifedash/internal/worker"
)

const memoryDedupSize = 10000

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		cli.Fatal(nil, "Failed to load .env", err)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(nil, "Configuration validation failed", err)
	}

	logger, err := cli.SetupLogger(cfg, log.ComponentWorker)
	if err != nil {
		cli.Fatal(nil, "Failed to set up logging", err)
	}
	logger.Info("Starting lifedash-worker", log.FieldOperation, log.OpStartup)

	if cfg.AMQPURL == "" {
		cli.Fatal(logger, "Worker cannot start", errors.New("AMQP_URL is required"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exporter, err := newExporter(ctx, cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}

	dedup, closeDedup, err := newDeduper(cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize dedup store", err)
	}
	defer closeDedup()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(exporter, dedup)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := exportWorker.Run(gctx, amqpClient)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		logger.Info("Metrics server listening", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		cli.Fatal(logger, "Worker stopped with error", err)
	}
	logger.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}

func newExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (ports.EntryExporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled, exporting to memory")
		return mem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

// newDeduper prefers Redis so several workers share one view of processed
// deliveries. Without REDIS_URL an in-process LRU is used.
func newDeduper(cfg *config.Config, logger *log.Logger) (worker.Deduper, func(), error) {
	if cfg.RedisURL != "" {
		rdb, err := worker.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using Redis dedup store", "ttl", cfg.DedupTTL.String())
		return worker.NewRedisDeduper(rdb, cfg.DedupTTL), func() { _ = rdb.Close() }, nil
	}

	dedup := worker.NewMemoryDeduper(memoryDedupSize, cfg.DedupTTL)
	manager := cache.NewManager()
	manager.Register(dedup.Cache())
	manager.StartCleanup(5 * time.Minute)
	logger.Info("Using in-memory dedup store", "ttl", cfg.DedupTTL.String())
	return dedup, manager.Stop, nil
}
