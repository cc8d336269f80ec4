package report

import (
	"sort"
	"strconv"

	"meifacil/internal/core"
)

// monthAbbr holds pt-BR short month names, January first.
var monthAbbr = [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// Summary bundles the three derived views of a filtered ledger.
type Summary struct {
	Monthly           []core.MonthlySummary  `json:"monthly"`
	ExpenseByCategory []core.CategorySummary `json:"expenseByCategory"`
	IncomeByCategory  []core.CategorySummary `json:"incomeByCategory"`
}

// MonthLabel renders a (year, month) pair the way report rows are labeled,
// e.g. "mar/2025".
func MonthLabel(year, month int) string {
	return monthAbbr[month-1] + "/" + strconv.Itoa(year)
}

type monthlyTotals struct {
	year     int
	month    int
	receitas int64
	despesas int64
}

// Aggregate reduces an already-filtered ledger into monthly totals and
// per-category sums. It is a pure function: same input, same output, no
// mutation of its argument.
//
// Monthly rows are keyed by calendar year and month and sorted
// chronologically, so dez/2024 sorts before jan/2025. Category views only
// count transactions that carry a category; uncategorized amounts still show
// up in the monthly totals.
func Aggregate(txs []core.Transaction) Summary {
	byMonth := make(map[int]*monthlyTotals)
	expenseByCat := make(map[string]int64)
	incomeByCat := make(map[string]int64)

	for _, tx := range txs {
		year, month := tx.Date.Year(), tx.Date.Month()
		key := year*100 + month
		mt, ok := byMonth[key]
		if !ok {
			mt = &monthlyTotals{year: year, month: month}
			byMonth[key] = mt
		}

		switch tx.Type {
		case core.Income:
			mt.receitas += tx.Amount.Cents
			if tx.Category != "" {
				incomeByCat[tx.Category] += tx.Amount.Cents
			}
		case core.Expense:
			mt.despesas += tx.Amount.Cents
			if tx.Category != "" {
				expenseByCat[tx.Category] += tx.Amount.Cents
			}
		}
	}

	keys := make([]int, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	monthly := make([]core.MonthlySummary, 0, len(keys))
	for _, k := range keys {
		mt := byMonth[k]
		monthly = append(monthly, core.MonthlySummary{
			Month:    MonthLabel(mt.year, mt.month),
			Receitas: core.Money{Cents: mt.receitas},
			Despesas: core.Money{Cents: mt.despesas},
			Saldo:    core.Money{Cents: mt.receitas - mt.despesas},
		})
	}

	return Summary{
		Monthly:           monthly,
		ExpenseByCategory: sortedCategories(expenseByCat),
		IncomeByCategory:  sortedCategories(incomeByCat),
	}
}

// sortedCategories orders sums descending by value; equal values fall back
// to name order so the output is deterministic.
func sortedCategories(sums map[string]int64) []core.CategorySummary {
	out := make([]core.CategorySummary, 0, len(sums))
	for name, cents := range sums {
		out = append(out, core.CategorySummary{Name: name, Value: core.Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value.Cents != out[j].Value.Cents {
			return out[i].Value.Cents > out[j].Value.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}
