package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Export job lifecycle states.
const (
	ExportPending    = "pending"
	ExportProcessing = "processing"
	ExportCompleted  = "completed"
	ExportFailed     = "failed"
)

// maxExportAttempts is how many times a job may be picked up before it is
// marked failed for good.
const maxExportAttempts = 3

// ExportJob tracks one asynchronous spreadsheet export. The AMQP message is
// only a pointer to this row; the row is the source of truth, which lets the
// periodic sweep recover jobs whose message was lost.
type ExportJob struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// EnqueueExportJob inserts a pending job row and returns it.
func (r *SQLiteRepository) EnqueueExportJob(ctx context.Context) (ExportJob, error) {
	now := time.Now().UTC()
	job := ExportJob{
		ID:        uuid.NewString(),
		Status:    ExportPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO export_jobs (id, status, attempts, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)`,
		job.ID, job.Status, now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return ExportJob{}, fmt.Errorf("enqueue export job: %w", err)
	}

	slog.InfoContext(ctx, "Export job enqueued", "job_id", job.ID)
	return job, nil
}

// GetExportJob fetches one job row.
func (r *SQLiteRepository) GetExportJob(ctx context.Context, id string) (ExportJob, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, status, attempts, last_error, created_at, updated_at, completed_at
		FROM export_jobs WHERE id = ?`, id)
	job, err := scanExportJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ExportJob{}, fmt.Errorf("export job %s: %w", id, sql.ErrNoRows)
		}
		return ExportJob{}, err
	}
	return job, nil
}

// ListPendingExportJobs returns jobs waiting to be processed, oldest first.
// Jobs that already burned through their attempts are skipped.
func (r *SQLiteRepository) ListPendingExportJobs(ctx context.Context, limit int) ([]ExportJob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, status, attempts, last_error, created_at, updated_at, completed_at
		FROM export_jobs
		WHERE status = ? AND attempts < ?
		ORDER BY created_at ASC
		LIMIT ?`, ExportPending, maxExportAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending export jobs: %w", err)
	}
	defer rows.Close()

	var out []ExportJob
	for rows.Next() {
		job, err := scanExportJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export jobs: %w", err)
	}
	return out, nil
}

// MarkExportProcessing moves a job to processing and counts the attempt.
func (r *SQLiteRepository) MarkExportProcessing(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs
		SET status = ?, attempts = attempts + 1, updated_at = ?
		WHERE id = ?`,
		ExportProcessing, time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("mark export processing: %w", err)
	}
	return nil
}

// MarkExportCompleted finishes a job.
func (r *SQLiteRepository) MarkExportCompleted(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs
		SET status = ?, last_error = NULL, updated_at = ?, completed_at = ?
		WHERE id = ?`,
		ExportCompleted, now, now, id)
	if err != nil {
		return fmt.Errorf("mark export completed: %w", err)
	}

	slog.InfoContext(ctx, "Export job completed", "job_id", id)
	return nil
}

// MarkExportFailed records a failure. Jobs with attempts left go back to
// pending for the periodic sweep; exhausted jobs stay failed.
func (r *SQLiteRepository) MarkExportFailed(ctx context.Context, id string, cause string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs
		SET status = CASE WHEN attempts >= ? THEN ? ELSE ? END,
		    last_error = ?, updated_at = ?
		WHERE id = ?`,
		maxExportAttempts, ExportFailed, ExportPending,
		cause, time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("mark export failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("export job %s: %w", id, sql.ErrNoRows)
	}

	slog.WarnContext(ctx, "Export job failed", "job_id", id, "cause", cause)
	return nil
}

func scanExportJob(row rowScanner) (ExportJob, error) {
	var (
		job          ExportJob
		lastError    sql.NullString
		createdAtStr string
		updatedAtStr string
		completedAt  sql.NullString
	)
	if err := row.Scan(&job.ID, &job.Status, &job.Attempts, &lastError,
		&createdAtStr, &updatedAtStr, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ExportJob{}, err
		}
		return ExportJob{}, fmt.Errorf("scan export job: %w", err)
	}

	job.LastError = lastError.String

	createdAt, err := time.Parse(timeLayout, createdAtStr)
	if err != nil {
		return ExportJob{}, fmt.Errorf("parse stored created_at %q: %w", createdAtStr, err)
	}
	job.CreatedAt = createdAt

	updatedAt, err := time.Parse(timeLayout, updatedAtStr)
	if err != nil {
		return ExportJob{}, fmt.Errorf("parse stored updated_at %q: %w", updatedAtStr, err)
	}
	job.UpdatedAt = updatedAt

	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return ExportJob{}, fmt.Errorf("parse stored completed_at %q: %w", completedAt.String, err)
		}
		job.CompletedAt = &t
	}

	return job, nil
}
