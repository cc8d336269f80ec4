package report

import (
	"testing"

	"meifacil/internal/core"
)

func tx(id, date, desc string, cents int64, typ core.TransactionType, category string) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		ID:          id,
		Date:        d,
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Type:        typ,
		Category:    category,
	}
}

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilter(t *testing.T) {
	ledger := []core.Transaction{
		tx("a", "2025-03-01", "Venda de bolo", 100000, core.Income, "Venda de Produtos"),
		tx("b", "2025-03-15", "Aluguel da loja", 20000, core.Expense, "Aluguel (Espaço/Equipamento)"),
		tx("c", "2025-03-20", "Taxa avulsa", 5000, core.Expense, ""),
		tx("d", "2024-12-31", "Venda de fim de ano", 30000, core.Income, "Venda de Produtos"),
	}

	min := int64(10000)
	max := int64(50000)

	tests := []struct {
		name    string
		filters core.ReportFilters
		want    []string
	}{
		{
			name:    "empty filters match everything",
			filters: core.ReportFilters{},
			want:    []string{"a", "b", "c", "d"},
		},
		{
			name: "date range is inclusive on both ends",
			filters: core.ReportFilters{
				DateRange: core.DateRange{From: core.NewDate(2025, 3, 1), To: core.NewDate(2025, 3, 15)},
			},
			want: []string{"a", "b"},
		},
		{
			name: "inverted range yields empty result",
			filters: core.ReportFilters{
				DateRange: core.DateRange{From: core.NewDate(2025, 6, 1), To: core.NewDate(2025, 1, 1)},
			},
			want: []string{},
		},
		{
			name: "open-ended from",
			filters: core.ReportFilters{
				DateRange: core.DateRange{From: core.NewDate(2025, 1, 1)},
			},
			want: []string{"a", "b", "c"},
		},
		{
			name:    "empty type set is permissive",
			filters: core.ReportFilters{TransactionTypes: nil},
			want:    []string{"a", "b", "c", "d"},
		},
		{
			name:    "type filter",
			filters: core.ReportFilters{TransactionTypes: []core.TransactionType{core.Expense}},
			want:    []string{"b", "c"},
		},
		{
			name:    "category filter skips uncategorized",
			filters: core.ReportFilters{Categories: []string{"Venda de Produtos", "Aluguel (Espaço/Equipamento)"}},
			want:    []string{"a", "b", "d"},
		},
		{
			name:    "amount bounds",
			filters: core.ReportFilters{AmountMinCents: &min, AmountMaxCents: &max},
			want:    []string{"b", "d"},
		},
		{
			name:    "description match is case-insensitive",
			filters: core.ReportFilters{DescriptionContains: "VENDA"},
			want:    []string{"a", "d"},
		},
		{
			name: "clauses combine with AND",
			filters: core.ReportFilters{
				DateRange:           core.DateRange{From: core.NewDate(2025, 1, 1), To: core.NewDate(2025, 12, 31)},
				TransactionTypes:    []core.TransactionType{core.Income},
				DescriptionContains: "bolo",
			},
			want: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(ledger, tt.filters))
			if !equalIDs(got, tt.want) {
				t.Errorf("Filter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterPreservesInput(t *testing.T) {
	ledger := []core.Transaction{
		tx("a", "2025-03-01", "Venda", 100, core.Income, ""),
		tx("b", "2025-04-01", "Compra", 200, core.Expense, ""),
	}

	Filter(ledger, core.ReportFilters{TransactionTypes: []core.TransactionType{core.Income}})

	if ledger[0].ID != "a" || ledger[1].ID != "b" {
		t.Error("Filter() must not mutate its input")
	}
}
