package core

import (
	"errors"
	"strings"
	"time"
)

// Visualization types accepted on a saved report configuration.
const (
	VisualizationTable            = "table"
	VisualizationLineChart        = "line_chart"
	VisualizationPieChartExpenses = "pie_chart_expenses"
	VisualizationPieChartIncome   = "pie_chart_income"
	VisualizationDefaultDashboard = "default_dashboard_layout"
)

// DefaultSelectedFields is the column set applied when a report is saved
// without an explicit field selection.
var DefaultSelectedFields = []string{"date", "description", "amount", "type", "category"}

var (
	ErrMissingReportName     = errors.New("missing report name")
	ErrMissingSelectedFields = errors.New("missing selected fields")
	ErrMissingVisualization  = errors.New("missing visualization type")
)

type (
	// DateRange bounds a report to calendar dates, inclusive on both ends.
	// Either side may be left unset.
	DateRange struct {
		From Date `json:"from"`
		To   Date `json:"to"`
	}

	// ReportFilters is the declarative description of a report run. All
	// clauses are combined with AND; empty type and category sets match
	// everything, amounts are optional bounds in cents, and the description
	// clause is a case-insensitive substring match.
	ReportFilters struct {
		DateRange           DateRange         `json:"dateRange"`
		TransactionTypes    []TransactionType `json:"transactionTypes"`
		Categories          []string          `json:"categories"`
		AmountMinCents      *int64            `json:"amountMin"`
		AmountMaxCents      *int64            `json:"amountMax"`
		DescriptionContains string            `json:"descriptionContains,omitempty"`
	}

	// SavedReportConfig is a named, persisted ReportFilters plus presentation
	// metadata. An empty ID marks a config that has not been stored yet.
	SavedReportConfig struct {
		ID                  string         `json:"id,omitempty"`
		ReportName          string         `json:"report_name"`
		Filters             ReportFilters  `json:"filters"`
		SelectedFields      []string       `json:"selected_fields"`
		VisualizationType   string         `json:"visualization_type"`
		VisualizationConfig map[string]any `json:"visualization_config,omitempty"`
		UpdatedAt           time.Time      `json:"updated_at,omitempty"`
	}
)

// FullYear returns filters covering an entire calendar year with both
// transaction types selected.
func FullYear(year int) ReportFilters {
	return ReportFilters{
		DateRange: DateRange{
			From: NewDate(year, 1, 1),
			To:   NewDate(year, 12, 31),
		},
		TransactionTypes: []TransactionType{Income, Expense},
	}
}

func (c SavedReportConfig) Validate() error {
	if strings.TrimSpace(c.ReportName) == "" {
		return ErrMissingReportName
	}
	if len(c.SelectedFields) == 0 {
		return ErrMissingSelectedFields
	}
	if strings.TrimSpace(c.VisualizationType) == "" {
		return ErrMissingVisualization
	}
	return nil
}
