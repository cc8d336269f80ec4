package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"meifacil/internal/core"
	"meifacil/internal/plan"
	"meifacil/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "meifacil.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleTx(desc string) core.Transaction {
	return core.Transaction{
		Date:        core.NewDate(2025, 3, 1),
		Description: desc,
		Amount:      core.Money{Cents: 1000},
		Type:        core.Income,
	}
}

func TestTransactionServiceCreate(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewTransactionService(repo, plan.Entitlements{Plan: plan.Paid})

	saved, err := svc.Create(context.Background(), sampleTx("Venda"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if saved.ID == "" {
		t.Error("Create() should return the stored transaction with its ID")
	}

	if _, err := svc.Create(context.Background(), core.Transaction{}); err == nil {
		t.Error("Create() should reject invalid transactions")
	}
}

func TestTransactionServiceFreePlanCap(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewTransactionService(repo, plan.Entitlements{Plan: plan.Free})
	ctx := context.Background()

	for i := 0; i < plan.MaxFreeTransactions; i++ {
		if _, err := svc.Create(ctx, sampleTx(fmt.Sprintf("Venda %d", i))); err != nil {
			t.Fatalf("Create(%d) error = %v", i, err)
		}
	}

	_, err := svc.Create(ctx, sampleTx("Uma a mais"))
	if !errors.Is(err, plan.ErrTransactionLimit) {
		t.Fatalf("Create() at cap error = %v, want ErrTransactionLimit", err)
	}

	count, _ := svc.Count(ctx)
	if count != plan.MaxFreeTransactions {
		t.Errorf("Count() = %d, want %d", count, plan.MaxFreeTransactions)
	}
}

func TestTransactionServiceAdminBypassesCap(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewTransactionService(repo, plan.Entitlements{Plan: plan.Free, Admin: true})
	ctx := context.Background()

	for i := 0; i < plan.MaxFreeTransactions+1; i++ {
		if _, err := svc.Create(ctx, sampleTx(fmt.Sprintf("Venda %d", i))); err != nil {
			t.Fatalf("Create(%d) error = %v", i, err)
		}
	}
}

func TestDashboardServiceSummary(t *testing.T) {
	repo := newTestRepo(t)
	txSvc := NewTransactionService(repo, plan.Entitlements{Plan: plan.Paid})
	ctx := context.Background()

	entries := []core.Transaction{
		{Date: core.NewDate(2025, 3, 1), Description: "Venda", Amount: core.Money{Cents: 100000}, Type: core.Income, Category: "Venda de Produtos"},
		{Date: core.NewDate(2025, 3, 15), Description: "Aluguel", Amount: core.Money{Cents: 20000}, Type: core.Expense, Category: "Aluguel (Espaço/Equipamento)"},
		{Date: core.NewDate(2025, 3, 20), Description: "Taxa avulsa", Amount: core.Money{Cents: 5000}, Type: core.Expense},
	}
	for _, tx := range entries {
		if _, err := txSvc.Create(ctx, tx); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	dash := NewDashboardService(repo, plan.Entitlements{Plan: plan.Free},
		8_100_000, "00000000-0000-0000-0000-000000000000")
	dash.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }

	got, err := dash.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	if got.TotalIncome.Cents != 100000 || got.TotalExpenses.Cents != 25000 || got.NetBalance.Cents != 75000 {
		t.Errorf("totals = %+v", got)
	}
	if got.RevenueCap.Status != "ok" {
		t.Errorf("RevenueCap.Status = %q, want ok", got.RevenueCap.Status)
	}
	if got.RevenueCapDisplay != "R$1.000,00 de R$81.000,00" {
		t.Errorf("RevenueCapDisplay = %q", got.RevenueCapDisplay)
	}
	if got.DAS.Status != "upcoming" || got.DAS.DaysRemaining != 10 {
		t.Errorf("DAS = %+v, want upcoming in 10 days", got.DAS)
	}
	if got.DASN.Status != "open" || got.DASN.ReferenceYear != 2024 {
		t.Errorf("DASN = %+v", got.DASN)
	}
	if got.PlanUsage.TransactionCount != 3 || got.PlanUsage.TransactionLimit != plan.MaxFreeTransactions {
		t.Errorf("PlanUsage = %+v", got.PlanUsage)
	}
}

func TestExportServiceGating(t *testing.T) {
	repo := newTestRepo(t)
	free := NewExportService(repo, nil, plan.Entitlements{Plan: plan.Free})

	if _, err := free.RequestSheetsExport(context.Background()); !errors.Is(err, plan.ErrProRequired) {
		t.Fatalf("RequestSheetsExport() error = %v, want ErrProRequired", err)
	}

	paid := NewExportService(repo, nil, plan.Entitlements{Plan: plan.Paid})
	job, err := paid.RequestSheetsExport(context.Background())
	if err != nil {
		t.Fatalf("RequestSheetsExport() error = %v", err)
	}
	if job.Status != storage.ExportPending {
		t.Errorf("job status = %q, want pending", job.Status)
	}

	// Without a broker the job is still queued for the periodic sweep.
	got, err := paid.JobStatus(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("JobStatus() error = %v", err)
	}
	if got.ID != job.ID {
		t.Errorf("JobStatus() = %+v", got)
	}
}
