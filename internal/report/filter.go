package report

import (
	"strings"
	"time"

	"meifacil/internal/core"
)

// Evaluator is the compiled form of core.ReportFilters. Compile precomputes
// the day bounds, lookup sets and lowered needle once, so Matches stays a
// plain AND of comparisons when applied over a full ledger.
type Evaluator struct {
	from    time.Time
	to      time.Time
	hasFrom bool
	hasTo   bool

	types      map[core.TransactionType]struct{}
	categories map[string]struct{}

	minCents *int64
	maxCents *int64

	needle string
}

// Compile builds an Evaluator from declarative filters. Empty type and
// category sets are permissive. The date range is inclusive on both ends:
// from is anchored at start of day, to at end of day.
func Compile(f core.ReportFilters) *Evaluator {
	e := &Evaluator{
		minCents: f.AmountMinCents,
		maxCents: f.AmountMaxCents,
		needle:   strings.ToLower(strings.TrimSpace(f.DescriptionContains)),
	}

	if !f.DateRange.From.IsEmpty() {
		d := f.DateRange.From
		e.from = time.Date(d.Year(), time.Month(d.Month()), d.Day(), 0, 0, 0, 0, time.UTC)
		e.hasFrom = true
	}
	if !f.DateRange.To.IsEmpty() {
		d := f.DateRange.To
		e.to = time.Date(d.Year(), time.Month(d.Month()), d.Day(), 23, 59, 59, 999999999, time.UTC)
		e.hasTo = true
	}

	if len(f.TransactionTypes) > 0 {
		e.types = make(map[core.TransactionType]struct{}, len(f.TransactionTypes))
		for _, tt := range f.TransactionTypes {
			e.types[tt] = struct{}{}
		}
	}
	if len(f.Categories) > 0 {
		e.categories = make(map[string]struct{}, len(f.Categories))
		for _, c := range f.Categories {
			e.categories[c] = struct{}{}
		}
	}

	return e
}

// Matches reports whether the transaction satisfies every filter clause.
func (e *Evaluator) Matches(tx core.Transaction) bool {
	if e.hasFrom && tx.Date.Before(e.from) {
		return false
	}
	if e.hasTo && tx.Date.After(e.to) {
		return false
	}
	if e.types != nil {
		if _, ok := e.types[tx.Type]; !ok {
			return false
		}
	}
	if e.categories != nil {
		// A category filter never matches uncategorized transactions.
		if tx.Category == "" {
			return false
		}
		if _, ok := e.categories[tx.Category]; !ok {
			return false
		}
	}
	if e.minCents != nil && tx.Amount.Cents < *e.minCents {
		return false
	}
	if e.maxCents != nil && tx.Amount.Cents > *e.maxCents {
		return false
	}
	if e.needle != "" && !strings.Contains(strings.ToLower(tx.Description), e.needle) {
		return false
	}
	return true
}

// Apply filters the ledger, preserving input order. An inverted date range
// simply yields an empty result.
func (e *Evaluator) Apply(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if e.Matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// Filter is a convenience for a single compile-and-apply pass.
func Filter(txs []core.Transaction, f core.ReportFilters) []core.Transaction {
	return Compile(f).Apply(txs)
}
