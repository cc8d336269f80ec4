package core

// MonthlySummary is one row of the month-by-month report view. Month is a
// pt-BR label like "mar/2025"; rows are ordered chronologically.
type MonthlySummary struct {
	Month    string `json:"month"`
	Receitas Money  `json:"Receitas"`
	Despesas Money  `json:"Despesas"`
	Saldo    Money  `json:"Saldo"`
}

// CategorySummary represents an amount aggregated by category name.
type CategorySummary struct {
	Name  string `json:"name"`
	Value Money  `json:"value"`
}
