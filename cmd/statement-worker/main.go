package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"familybank/internal/amqp"
	"familybank/internal/config"
	"familybank/internal/statement"
	"familybank/internal/statement/google"
	stmem "familybank/internal/statement/memory"
	"familybank/internal/storage"
	"familybank/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting statement-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var appender statement.Appender
	if cli, err := google.NewFromEnv(ctx); err != nil {
		logger.Warn("Google Sheets unavailable, statement entries stay in memory", "error", err)
		appender = stmem.New()
	} else {
		appender = cli
		logger.Info("Google Sheets appender initialized")
	}

	exporter := worker.NewStatementWorker(repo, appender, cfg.ExportBatchSize, logger)

	// Consume recorded-transaction messages when a broker is configured.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			err := amqpClient.ConsumeTransactionRecorded(ctx, func(msg *amqp.TransactionRecordedMessage) error {
				return exporter.HandleMessage(ctx, msg)
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("Consumer stopped", "error", err)
				cancel()
			}
		}()
	} else {
		logger.Info("AMQP disabled, exporting through the backup sweep only")
	}

	// Backup sweep picks up anything the broker missed.
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	if exported, err := exporter.RunBackupSweep(ctx); err != nil {
		logger.Error("Initial sweep failed", "error", err)
	} else if exported > 0 {
		logger.Info("Initial sweep complete", "exported", exported)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				exported, err := exporter.RunBackupSweep(ctx)
				if err != nil {
					logger.Error("Backup sweep failed", "error", err)
				} else if exported > 0 {
					logger.Info("Backup sweep complete", "exported", exported)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("statement-worker stopped")
}
