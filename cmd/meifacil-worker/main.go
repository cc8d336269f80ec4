package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meifacil/internal/amqp"
	"meifacil/internal/cli"
	"meifacil/internal/export"
	"meifacil/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("worker")

	logger.Info("Starting meifacil-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// The worker is pointless without a spreadsheet destination.
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the export worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exporter, err := export.NewSheetsExporterFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	exportWorker := worker.NewExportWorker(repo, exporter, cfg.ExportBatchSize)

	// On startup, drain jobs left pending by a previous run
	logger.Info("Performing startup export check...")
	if err := exportWorker.StartupExportCheck(ctx); err != nil {
		logger.Error("Failed startup export check", "error", err)
		// Don't exit - continue with normal operation
	}

	// Consume export requests, redialing on connection loss
	go func() {
		err := amqp.ConsumeWithReconnect(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			exportWorker.HandleExportMessage)
		if err != nil && err != context.Canceled {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()

	// Periodic sweep for jobs whose message was lost
	ticker := time.NewTicker(cfg.ExportInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := exportWorker.ProcessPendingExports(ctx); err != nil {
					logger.Error("Periodic export sweep failed", "error", err)
				}
			}
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	// Give the worker time to finish the current job
	logger.Info("Shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
