package worker

import (
	"context"
	"fmt"
	"log/slog"

	"meifacil/internal/amqp"
	"meifacil/internal/core"
	"meifacil/internal/storage"
)

// SheetsExporter pushes a full ledger snapshot to the export destination.
type SheetsExporter interface {
	Export(ctx context.Context, txs []core.Transaction) error
}

// ExportWorker drains spreadsheet export jobs. Each job replaces the whole
// sheet with the current ledger, so processing the newest pending job is
// always safe.
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	exporter  SheetsExporter
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, exporter SheetsExporter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleExportMessage processes a single export request from AMQP.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ExportRequestMessage) error {
	slog.InfoContext(ctx, "Processing export request",
		"job_id", msg.JobID,
		"requested_at", msg.RequestedAt)

	job, err := w.storage.GetExportJob(ctx, msg.JobID)
	if err != nil {
		return fmt.Errorf("get export job: %w", err)
	}

	// The sweep may already have handled this job.
	if job.Status == storage.ExportCompleted {
		slog.InfoContext(ctx, "Export job already completed, skipping", "job_id", job.ID)
		return nil
	}
	if job.Status == storage.ExportFailed {
		slog.WarnContext(ctx, "Export job exhausted its attempts, skipping", "job_id", job.ID)
		return nil
	}

	return w.runExportJob(ctx, job.ID)
}

// ProcessPendingExports processes queued export jobs.
// This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) error {
	pending, err := w.storage.ListPendingExportJobs(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending export jobs: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending export jobs", "count", len(pending))

	for _, job := range pending {
		if err := w.runExportJob(ctx, job.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to process export job",
				"job_id", job.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupExportCheck drains jobs left pending by a previous run.
// Useful to recover from missed AMQP messages or worker downtime.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	pending, err := w.storage.ListPendingExportJobs(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending export jobs for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending export jobs found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending export jobs on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, job := range pending {
		if err := w.runExportJob(ctx, job.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to process export job during startup",
				"job_id", job.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export check completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ExportWorker) runExportJob(ctx context.Context, jobID string) error {
	if err := w.storage.MarkExportProcessing(ctx, jobID); err != nil {
		return fmt.Errorf("mark export processing: %w", err)
	}

	txs, err := w.storage.ListTransactions(ctx)
	if err != nil {
		return w.failExportJob(ctx, jobID, fmt.Errorf("list transactions: %w", err))
	}

	if err := w.exporter.Export(ctx, txs); err != nil {
		return w.failExportJob(ctx, jobID, fmt.Errorf("export to sheets: %w", err))
	}

	if err := w.storage.MarkExportCompleted(ctx, jobID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark export completed", "job_id", jobID, "error", err)
		// Don't return an error here - the export actually worked
	}

	slog.InfoContext(ctx, "Successfully exported ledger",
		"job_id", jobID,
		"transactions", len(txs))

	return nil
}

func (w *ExportWorker) failExportJob(ctx context.Context, jobID string, cause error) error {
	if markErr := w.storage.MarkExportFailed(ctx, jobID, cause.Error()); markErr != nil {
		slog.ErrorContext(ctx, "Failed to mark export failed",
			"job_id", jobID, "error", markErr)
	}
	return cause
}
