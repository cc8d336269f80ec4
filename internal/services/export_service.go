package services

import (
	"context"
	"fmt"
	"log/slog"

	"meifacil/internal/amqp"
	"meifacil/internal/plan"
	"meifacil/internal/storage"
)

// ExportService accepts spreadsheet export requests. The job row is the
// source of truth; the AMQP message only wakes the worker up, so a failed
// publish degrades to the worker's periodic sweep instead of failing the
// request.
type ExportService struct {
	storage      *storage.SQLiteRepository
	amqpClient   *amqp.Client
	entitlements plan.Entitlements
}

func NewExportService(storage *storage.SQLiteRepository, amqpClient *amqp.Client, entitlements plan.Entitlements) *ExportService {
	return &ExportService{
		storage:      storage,
		amqpClient:   amqpClient,
		entitlements: entitlements,
	}
}

// RequestSheetsExport enqueues an export job and notifies the worker.
func (s *ExportService) RequestSheetsExport(ctx context.Context) (storage.ExportJob, error) {
	if !s.entitlements.HasProAccess() {
		return storage.ExportJob{}, plan.ErrProRequired
	}

	job, err := s.storage.EnqueueExportJob(ctx)
	if err != nil {
		return storage.ExportJob{}, fmt.Errorf("enqueue export: %w", err)
	}

	if err := s.publishExportRequest(ctx, job.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export request",
			"job_id", job.ID, "error", err)
		// Don't fail the request - the periodic sweep will pick the job up
	}

	return job, nil
}

// JobStatus looks up one export job for polling.
func (s *ExportService) JobStatus(ctx context.Context, id string) (storage.ExportJob, error) {
	return s.storage.GetExportJob(ctx, id)
}

func (s *ExportService) publishExportRequest(ctx context.Context, jobID string) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, relying on periodic sweep", "job_id", jobID)
		return nil
	}
	return s.amqpClient.PublishExportRequest(ctx, jobID)
}
