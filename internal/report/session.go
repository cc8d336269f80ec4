package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"meifacil/internal/core"
)

// State tracks where a session is in its lifecycle.
type State int

const (
	StateLoading State = iota
	StateReady
	StateFaulted
)

// ErrProRequired is returned by Load when the session owner's plan does not
// include custom reports.
var ErrProRequired = errors.New("custom reports require a paid plan")

// TransactionSource supplies the full ledger a report session works over.
type TransactionSource interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
}

// ConfigStore persists saved report configurations.
//
// ListConfigs returns configs sorted by report name. UpsertConfig inserts
// when the config has no ID and updates otherwise, returning the stored
// config and whether an existing row was updated. DeleteConfig is idempotent:
// deleting an absent ID succeeds.
type ConfigStore interface {
	ListConfigs(ctx context.Context) ([]core.SavedReportConfig, error)
	UpsertConfig(ctx context.Context, cfg core.SavedReportConfig) (core.SavedReportConfig, bool, error)
	DeleteConfig(ctx context.Context, id string) error
}

// Session holds the state of one user's report screen: the loaded ledger,
// the saved configurations, the active filters and the derived views. All
// recomputation goes through the pure Filter/Aggregate functions; there is
// no hidden reactivity.
//
// A Session is not safe for concurrent use. The HTTP layer builds one per
// request.
type Session struct {
	source       TransactionSource
	store        ConfigStore
	hasProAccess bool
	now          func() time.Time

	state     State
	lastError error

	transactions []core.Transaction
	configs      []core.SavedReportConfig

	filters  core.ReportFilters
	filtered []core.Transaction
	summary  Summary

	configActionInFlight bool
}

func NewSession(source TransactionSource, store ConfigStore, hasProAccess bool) *Session {
	return &Session{
		source:       source,
		store:        store,
		hasProAccess: hasProAccess,
		now:          time.Now,
	}
}

// Load fetches the ledger and the saved configurations concurrently, then
// applies the default filters (the inferred year, both transaction types).
// A failed ledger fetch leaves the session Faulted and retryable; a failed
// config fetch degrades to an empty config list.
func (s *Session) Load(ctx context.Context) error {
	if !s.hasProAccess {
		s.state = StateFaulted
		s.lastError = ErrProRequired
		return ErrProRequired
	}

	s.state = StateLoading
	s.lastError = nil

	var (
		txs     []core.Transaction
		configs []core.SavedReportConfig
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.source.ListTransactions(gctx)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		configs, err = s.store.ListConfigs(gctx)
		if err != nil {
			// Saved configs are not load-bearing for the report itself.
			slog.ErrorContext(gctx, "Failed to load saved report configs", "error", err)
			configs = nil
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.state = StateFaulted
		s.lastError = err
		return err
	}

	s.transactions = txs
	s.configs = configs
	sortConfigsByName(s.configs)

	s.ApplyFilters(core.FullYear(s.defaultYear()))
	s.state = StateReady
	return nil
}

// defaultYear picks the year the report opens on: the current year when the
// ledger has entries in it, otherwise the most recent year with data,
// otherwise the current year.
func (s *Session) defaultYear() int {
	current := s.now().UTC().Year()
	latest := 0
	for _, tx := range s.transactions {
		y := tx.Date.Year()
		if y == current {
			return current
		}
		if y > latest {
			latest = y
		}
	}
	if latest > 0 {
		return latest
	}
	return current
}

// ApplyFilters replaces the active filters and recomputes the derived views.
func (s *Session) ApplyFilters(f core.ReportFilters) {
	s.filters = f
	s.filtered = Filter(s.transactions, f)
	s.summary = Aggregate(s.filtered)
}

// SaveConfig persists the active filters under the given name. When editing
// an existing config its ID and presentation metadata carry over; otherwise
// the defaults apply. On success the in-memory list is updated and re-sorted;
// on failure nothing changes and the error is retained in LastError.
func (s *Session) SaveConfig(ctx context.Context, name string, editing *core.SavedReportConfig) (core.SavedReportConfig, bool, error) {
	cfg := core.SavedReportConfig{
		ReportName:        name,
		Filters:           s.filters,
		SelectedFields:    core.DefaultSelectedFields,
		VisualizationType: core.VisualizationDefaultDashboard,
	}
	if editing != nil {
		cfg.ID = editing.ID
		if len(editing.SelectedFields) > 0 {
			cfg.SelectedFields = editing.SelectedFields
		}
		if editing.VisualizationType != "" {
			cfg.VisualizationType = editing.VisualizationType
		}
		cfg.VisualizationConfig = editing.VisualizationConfig
	}

	s.configActionInFlight = true
	defer func() { s.configActionInFlight = false }()

	saved, updated, err := s.store.UpsertConfig(ctx, cfg)
	if err != nil {
		s.lastError = err
		return core.SavedReportConfig{}, false, err
	}

	if updated {
		for i := range s.configs {
			if s.configs[i].ID == saved.ID {
				s.configs[i] = saved
				break
			}
		}
	} else {
		s.configs = append(s.configs, saved)
	}
	sortConfigsByName(s.configs)

	s.lastError = nil
	return saved, updated, nil
}

// LoadConfig applies a saved configuration's filters to the session. The
// presentation metadata is the caller's concern.
func (s *Session) LoadConfig(cfg core.SavedReportConfig) {
	s.ApplyFilters(cfg.Filters)
}

// DeleteConfig removes a saved configuration. The in-memory list only drops
// the entry once the store confirms the delete.
func (s *Session) DeleteConfig(ctx context.Context, id string) error {
	s.configActionInFlight = true
	defer func() { s.configActionInFlight = false }()

	if err := s.store.DeleteConfig(ctx, id); err != nil {
		s.lastError = err
		return err
	}

	for i := range s.configs {
		if s.configs[i].ID == id {
			s.configs = append(s.configs[:i], s.configs[i+1:]...)
			break
		}
	}
	s.lastError = nil
	return nil
}

func (s *Session) State() State                      { return s.state }
func (s *Session) LastError() error                  { return s.lastError }
func (s *Session) Filters() core.ReportFilters       { return s.filters }
func (s *Session) Filtered() []core.Transaction      { return s.filtered }
func (s *Session) Summary() Summary                  { return s.summary }
func (s *Session) Configs() []core.SavedReportConfig { return s.configs }
func (s *Session) ConfigActionInFlight() bool        { return s.configActionInFlight }

func sortConfigsByName(configs []core.SavedReportConfig) {
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].ReportName < configs[j].ReportName
	})
}
