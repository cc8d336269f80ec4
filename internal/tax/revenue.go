package tax

// DefaultAnnualRevenueCapCents is the MEI gross revenue ceiling (R$81.000,00).
const DefaultAnnualRevenueCapCents int64 = 8_100_000

type CapStatus string

const (
	CapOK       CapStatus = "ok"
	CapWarning  CapStatus = "warning"
	CapCritical CapStatus = "critical"
)

// CapProgress reports how much of the annual revenue cap has been consumed.
type CapProgress struct {
	RevenueCents int64     `json:"revenue_cents"`
	CapCents     int64     `json:"cap_cents"`
	Percent      float64   `json:"percent"`
	Status       CapStatus `json:"status"`
}

// RevenueCapProgress computes cap consumption. Above 80% the status turns to
// warning, above 95% to critical.
func RevenueCapProgress(revenueCents, capCents int64) CapProgress {
	p := CapProgress{
		RevenueCents: revenueCents,
		CapCents:     capCents,
		Status:       CapOK,
	}
	if capCents <= 0 {
		return p
	}
	p.Percent = float64(revenueCents) / float64(capCents) * 100

	switch {
	case p.Percent > 95:
		p.Status = CapCritical
	case p.Percent > 80:
		p.Status = CapWarning
	}
	return p
}
