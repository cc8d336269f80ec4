package services

import (
	"context"
	"fmt"
	"time"

	"meifacil/internal/core"
	"meifacil/internal/plan"
	"meifacil/internal/storage"
	"meifacil/internal/tax"
)

// DashboardSummary is everything the main screen shows at a glance.
type DashboardSummary struct {
	TotalIncome       core.Money      `json:"total_income"`
	TotalExpenses     core.Money      `json:"total_expenses"`
	NetBalance        core.Money      `json:"net_balance"`
	RevenueCap        tax.CapProgress `json:"revenue_cap"`
	RevenueCapDisplay string          `json:"revenue_cap_display"`
	DAS               tax.DASInfo     `json:"das"`
	DASN              tax.DASNInfo    `json:"dasn"`
	PlanUsage         PlanUsage       `json:"plan_usage"`
}

// PlanUsage reports ledger consumption against the free-plan cap.
type PlanUsage struct {
	Plan             plan.Plan `json:"plan"`
	TransactionCount int       `json:"transaction_count"`
	TransactionLimit int       `json:"transaction_limit,omitempty"` // 0 = unlimited
}

// DashboardService assembles the summary from the ledger, the stored DAS
// flag and the obligation calendar.
type DashboardService struct {
	storage      *storage.SQLiteRepository
	entitlements plan.Entitlements
	capCents     int64
	settingsID   string
	now          func() time.Time
}

func NewDashboardService(storage *storage.SQLiteRepository, entitlements plan.Entitlements, capCents int64, settingsID string) *DashboardService {
	return &DashboardService{
		storage:      storage,
		entitlements: entitlements,
		capCents:     capCents,
		settingsID:   settingsID,
		now:          time.Now,
	}
}

// Summary computes the dashboard view. Annual revenue counts every income
// entry in the ledger.
func (s *DashboardService) Summary(ctx context.Context) (DashboardSummary, error) {
	txs, err := s.storage.ListTransactions(ctx)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("list transactions: %w", err)
	}

	now := s.now().UTC()

	settings, err := s.storage.GetMeiSettings(ctx, s.settingsID, now)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("get mei settings: %w", err)
	}

	var income, expenses int64
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			income += tx.Amount.Cents
		case core.Expense:
			expenses += tx.Amount.Cents
		}
	}

	summary := DashboardSummary{
		TotalIncome:       core.Money{Cents: income},
		TotalExpenses:     core.Money{Cents: expenses},
		NetBalance:        core.Money{Cents: income - expenses},
		RevenueCap:        tax.RevenueCapProgress(income, s.capCents),
		RevenueCapDisplay: core.FormatBRL(income) + " de " + core.FormatBRL(s.capCents),
		DAS:               tax.DASForMonth(now, settings.DASPaidThisMonth),
		DASN:              tax.DASNForToday(now),
		PlanUsage: PlanUsage{
			Plan:             s.entitlements.Plan,
			TransactionCount: len(txs),
		},
	}
	if !s.entitlements.HasProAccess() {
		summary.PlanUsage.TransactionLimit = plan.MaxFreeTransactions
	}

	return summary, nil
}
