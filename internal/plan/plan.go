// Package plan captures what the configured subscription allows. Billing and
// plan resolution live outside this service; the plan simply arrives via
// configuration.
package plan

import "errors"

type Plan string

const (
	Free Plan = "free"
	Paid Plan = "paid"
)

// MaxFreeTransactions caps how many transactions a free plan may hold.
const MaxFreeTransactions = 50

var (
	ErrProRequired      = errors.New("feature requires a paid plan")
	ErrTransactionLimit = errors.New("free plan transaction limit reached")
	ErrUnknownPlan      = errors.New("unknown plan")
)

// Entitlements resolves feature access from the plan plus an admin override.
type Entitlements struct {
	Plan  Plan
	Admin bool
}

func (p Plan) Validate() error {
	switch p {
	case Free, Paid:
		return nil
	default:
		return ErrUnknownPlan
	}
}

// HasProAccess reports whether gated features (custom reports, exports) are
// available. Admins always pass.
func (e Entitlements) HasProAccess() bool {
	return e.Admin || e.Plan == Paid
}

// CanAddTransaction checks the free-plan cap against the current ledger size.
func (e Entitlements) CanAddTransaction(current int) bool {
	if e.HasProAccess() {
		return true
	}
	return current < MaxFreeTransactions
}
