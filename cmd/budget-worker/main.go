package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgeting/internal/amqp"
	"budgeting/internal/backend"
	"budgeting/internal/cli"
	"budgeting/internal/log"
	"budgeting/internal/services"
	"budgeting/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentWorker, os.Getenv("LOG_LEVEL"))
	logger.Info("Starting budget-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.OpenStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	// the worker only reads the ledger
	ledgerConfig := services.DefaultLedgerConfig()
	ledgerConfig.RecordEvents = false
	ledger := services.NewLedgerService(store, ledgerConfig)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid export backend configuration", log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	exporter, err := backend.NewFactory(logger).CreateExporter(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to create exporter", log.FieldError, err, "backend", backendConfig.Type.String())
		os.Exit(1)
	}
	defer exporter.Close()
	logger.Info("Exporter ready", "backend", backendConfig.Type.String())

	exportWorker := worker.NewExportWorker(ledger, exporter.Exporter, logger)

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err, log.FieldErrorType, log.ErrorTypeNetwork)
			os.Exit(1)
		}
		defer amqpClient.Close()
	} else {
		logger.Info("AMQP disabled, exporting on schedule only")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// catch up on anything missed while the worker was down
	if n, err := exportWorker.ExportCurrentMonths(ctx); err != nil {
		logger.Error("Startup export incomplete", log.FieldError, err, "exported", n)
	} else {
		logger.Info("Startup export complete", "exported", n)
	}

	g, gctx := errgroup.WithContext(ctx)
	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeLedgerEvents(gctx, exportWorker.HandleLedgerEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		ticker := time.NewTicker(cfg.MonthCloseInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				n, err := exportWorker.ExportCurrentMonths(gctx)
				if err != nil {
					logger.Error("Periodic export incomplete", log.FieldError, err, "exported", n)
					continue
				}
				exported, failed := exportWorker.Stats()
				logger.Info("Periodic export complete",
					"exported", n, "exported_total", exported, "failed_total", failed)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
