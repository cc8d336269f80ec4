package services

import (
	"context"
	"fmt"
	"log/slog"

	"meifacil/internal/core"
	"meifacil/internal/plan"
	"meifacil/internal/storage"
)

// TransactionService orchestrates ledger writes: validation, the free-plan
// cap and persistence.
type TransactionService struct {
	storage      *storage.SQLiteRepository
	entitlements plan.Entitlements
}

func NewTransactionService(storage *storage.SQLiteRepository, entitlements plan.Entitlements) *TransactionService {
	return &TransactionService{
		storage:      storage,
		entitlements: entitlements,
	}
}

// Create validates and stores a transaction, enforcing the free-plan cap.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	count, err := s.storage.CountTransactions(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("count transactions: %w", err)
	}
	if !s.entitlements.CanAddTransaction(count) {
		slog.InfoContext(ctx, "Transaction rejected by plan cap",
			"plan", s.entitlements.Plan,
			"count", count,
			"limit", plan.MaxFreeTransactions)
		return core.Transaction{}, plan.ErrTransactionLimit
	}

	saved, err := s.storage.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	return saved, nil
}

// Get fetches a single transaction by ID.
func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.storage.GetTransaction(ctx, id)
}

// List returns the full ledger, most recent date first.
func (s *TransactionService) List(ctx context.Context) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx)
}

// Delete removes a transaction; deleting an absent ID succeeds.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	return s.storage.DeleteTransaction(ctx, id)
}

// Count reports the ledger size, used by the plan usage view.
func (s *TransactionService) Count(ctx context.Context) (int, error) {
	return s.storage.CountTransactions(ctx)
}
