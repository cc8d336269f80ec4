package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meifacil/internal/amqp"
	"meifacil/internal/cli"
	apphttp "meifacil/internal/http"
	"meifacil/internal/plan"
	"meifacil/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("server")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// AMQP is optional: without a broker, exports fall back to the worker's
	// periodic sweep.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, export requests will rely on the periodic sweep", "error", err)
		} else {
			amqpClient = client
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	entitlements := plan.Entitlements{Plan: plan.Plan(cfg.Plan), Admin: cfg.Admin}

	transactions := services.NewTransactionService(repo, entitlements)
	dashboard := services.NewDashboardService(repo, entitlements, cfg.AnnualRevenueCapCents, cfg.MeiSettingsID)
	exports := services.NewExportService(repo, amqpClient, entitlements)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:             ":" + cfg.Port,
		Entitlements:     entitlements,
		MeiSettingsID:    cfg.MeiSettingsID,
		CompanyProfileID: cfg.CompanyProfileID,
	}, repo, transactions, dashboard, exports)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting meifacil server", "port", cfg.Port, "plan", cfg.Plan)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
