package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgeting/internal/amqp"
	"budgeting/internal/cli"
	apphttp "budgeting/internal/http"
	"budgeting/internal/log"
	"budgeting/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentApp, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.LogLevel != "" {
		logger = cli.SetupLogger(log.ComponentApp, cfg.LogLevel)
	}

	store := cli.OpenStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	ledgerConfig := services.DefaultLedgerConfig()
	ledgerConfig.EnforceSpendingLimit = cfg.EnforceSpendingLimit
	// without a broker nobody consumes the outbox
	ledgerConfig.RecordEvents = cfg.AMQPEnabled()
	ledger := services.NewLedgerService(store, ledgerConfig)

	var (
		amqpClient *amqp.Client
		outbox     *services.OutboxProcessor
	)
	if cfg.AMQPEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// events stay in the outbox until the broker is reachable again
			logger.Warn("Failed to initialize AMQP client, ledger events will not be published",
				log.FieldError, err, log.FieldErrorType, log.ErrorTypeNetwork)
		} else {
			defer amqpClient.Close()

			outboxConfig := services.DefaultOutboxProcessorConfig()
			outboxConfig.BatchSize = cfg.OutboxBatchSize
			outboxConfig.PollInterval = cfg.OutboxInterval
			outbox = services.NewOutboxProcessor(store, amqpClient, outboxConfig)
			if err := outbox.Start(context.Background()); err != nil {
				logger.Error("Failed to start outbox processor", log.FieldError, err)
				os.Exit(1)
			}
			logger.Info("Outbox processor started",
				"exchange", cfg.AMQPExchange, "interval", cfg.OutboxInterval, "batch_size", cfg.OutboxBatchSize)
		}
	} else {
		logger.Info("AMQP disabled, ledger events are not recorded")
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledger, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if outbox != nil {
			if err := outbox.Stop(ctx); err != nil {
				logger.Error("Outbox processor shutdown error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting budget server",
		"port", cfg.Port,
		"rate_limit_per_minute", cfg.RateLimitPerMinute,
		"enforce_spending_limit", cfg.EnforceSpendingLimit)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
