package main

import (
	"flag"
	"os"
	"time"

	"budgeting/internal/amqp"
	"budgeting/internal/cli"
	"budgeting/internal/log"
	"budgeting/internal/services"
)

func main() {
	once := flag.Bool("once", false, "close due months once and exit")
	flag.Parse()

	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentMonthClose, os.Getenv("LOG_LEVEL"))
	logger.Info("Starting month-close")
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.OpenStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	ledgerConfig := services.DefaultLedgerConfig()
	ledgerConfig.RecordEvents = cfg.AMQPEnabled()
	ledger := services.NewLedgerService(store, ledgerConfig)
	processor := services.NewMonthCloseProcessor(ledger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Frozen rollovers are written with an outbox event; publish them here
	// too so a one-shot run does not depend on the API server's processor.
	var outbox *services.OutboxProcessor
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, events stay in the outbox",
				log.FieldError, err, log.FieldErrorType, log.ErrorTypeNetwork)
		} else {
			defer client.Close()
			outboxConfig := services.DefaultOutboxProcessorConfig()
			outboxConfig.BatchSize = cfg.OutboxBatchSize
			outbox = services.NewOutboxProcessor(store, client, outboxConfig)
		}
	}

	run := func(now time.Time) {
		count, err := processor.CloseDueMonths(ctx, now)
		if err != nil {
			logger.Error("Month close failed", log.FieldError, err)
			return
		}
		published := 0
		if outbox != nil {
			published = outbox.ProcessBatch(ctx)
		}
		logger.Info("Month close complete",
			"plans_processed", count,
			"events_published", published,
			"next_check", now.Add(cfg.MonthCloseInterval).Format("15:04:05"))
	}

	logger.Info("Month close configured", "interval", cfg.MonthCloseInterval, "sqlite_db", cfg.SQLiteDBPath)
	run(time.Now())
	if *once {
		return
	}

	ticker := time.NewTicker(cfg.MonthCloseInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			logger.Info("Month-close shutdown complete")
			return
		case now := <-ticker.C:
			run(now)
		}
	}
}
