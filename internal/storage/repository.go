package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"meifacil/internal/core"

	_ "modernc.org/sqlite"
)

// timeLayout is how timestamps are stored; transaction dates use plain
// YYYY-MM-DD so SQL-side ordering matches calendar order.
const (
	timeLayout = time.RFC3339Nano
	dateLayout = "2006-01-02"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable, used by readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateTransaction stores a validated transaction, assigning its ID and
// creation timestamp.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	tx.ID = uuid.NewString()
	tx.CreatedAt = time.Now().UTC()

	var attachmentURL, attachmentFilename sql.NullString
	if tx.Attachment != nil {
		attachmentURL = sql.NullString{String: tx.Attachment.URL, Valid: true}
		attachmentFilename = sql.NullString{String: tx.Attachment.Filename, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, date, description, amount_cents, type, category, attachment_url, attachment_filename, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.Date.Format(dateLayout),
		tx.Description,
		tx.Amount.Cents,
		string(tx.Type),
		nullIfEmpty(tx.Category),
		attachmentURL,
		attachmentFilename,
		tx.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"type", tx.Type,
		"amount_cents", tx.Amount.Cents,
		"date", tx.Date.Format(dateLayout))

	return tx, nil
}

// ListTransactions returns the full ledger, most recent date first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, description, amount_cents, type, category, attachment_url, attachment_filename, created_at
		FROM transactions
		ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// GetTransaction retrieves a single transaction by ID.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, date, description, amount_cents, type, category, attachment_url, attachment_filename, created_at
		FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, sql.ErrNoRows)
		}
		return core.Transaction{}, err
	}
	return tx, nil
}

// CountTransactions returns how many transactions the ledger holds. The
// plan gate checks this before accepting a new entry.
func (r *SQLiteRepository) CountTransactions(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

// DeleteTransaction removes a transaction. Deleting an absent ID succeeds.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.InfoContext(ctx, "Delete of absent transaction treated as success", "id", id)
		return nil
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx                 core.Transaction
		dateStr            string
		category           sql.NullString
		attachmentURL      sql.NullString
		attachmentFilename sql.NullString
		createdAtStr       string
	)
	if err := row.Scan(&tx.ID, &dateStr, &tx.Description, &tx.Amount.Cents, &tx.Type,
		&category, &attachmentURL, &attachmentFilename, &createdAtStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", dateStr, err)
	}
	tx.Date = date
	tx.Category = category.String

	if attachmentURL.Valid {
		tx.Attachment = &core.Attachment{
			URL:      attachmentURL.String,
			Filename: attachmentFilename.String,
		}
	}

	createdAt, err := time.Parse(timeLayout, createdAtStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored created_at %q: %w", createdAtStr, err)
	}
	tx.CreatedAt = createdAt

	return tx, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
