// Package tax computes the MEI obligation calendar: the monthly DAS payment
// slip, the annual DASN-SIMEI declaration window and the annual revenue cap.
// Everything here is pure date math over an injected "today" so callers and
// tests control the clock.
package tax

import "time"

// DASDueDay is the day of the month the DAS payment is due.
const DASDueDay = 20

// Official portals for generating the DAS slip and submitting the DASN.
const (
	DASPaymentURL     = "https://www8.receita.fazenda.gov.br/SimplesNacional/Aplicacoes/ATSPO/pgmei.app/Identificacao"
	DASNSubmissionURL = "https://www8.receita.fazenda.gov.br/SimplesNacional/Aplicacoes/ATSPO/dasnsimei.app/Identificacao"
)

type DASStatus string

const (
	DASPaid     DASStatus = "paid"
	DASUpcoming DASStatus = "upcoming"
	DASDueToday DASStatus = "due_today"
	DASOverdue  DASStatus = "overdue"
)

// DASInfo describes the state of the current month's DAS payment.
type DASInfo struct {
	Status        DASStatus `json:"status"`
	DueDate       string    `json:"due_date"` // YYYY-MM-DD
	DaysRemaining int       `json:"days_remaining"`
	PaymentURL    string    `json:"payment_url"`
}

// DASForMonth evaluates the DAS deadline of today's month. The paid flag
// comes from the stored settings; everything else is derived from the date.
func DASForMonth(today time.Time, paid bool) DASInfo {
	day := startOfDay(today)
	due := time.Date(day.Year(), day.Month(), DASDueDay, 0, 0, 0, 0, day.Location())

	info := DASInfo{
		DueDate:    due.Format("2006-01-02"),
		PaymentURL: DASPaymentURL,
	}

	switch {
	case paid:
		info.Status = DASPaid
	case day.Before(due):
		info.Status = DASUpcoming
		info.DaysRemaining = int(due.Sub(day).Hours() / 24)
	case day.Equal(due):
		info.Status = DASDueToday
	default:
		info.Status = DASOverdue
	}
	return info
}

type DASNStatus string

const (
	DASNOpen   DASNStatus = "open"
	DASNClosed DASNStatus = "out_of_period"
)

// DASNInfo describes the annual declaration window. The declaration filed
// between January and May 31 covers the previous calendar year.
type DASNInfo struct {
	Status        DASNStatus `json:"status"`
	ReferenceYear int        `json:"reference_year"`
	DueDate       string     `json:"due_date"` // YYYY-MM-DD
	DaysRemaining int        `json:"days_remaining"`
	SubmissionURL string     `json:"submission_url"`
}

// DASNForToday evaluates the DASN-SIMEI window relative to today.
func DASNForToday(today time.Time) DASNInfo {
	day := startOfDay(today)
	year := day.Year()
	due := time.Date(year, time.May, 31, 0, 0, 0, 0, day.Location())

	info := DASNInfo{
		ReferenceYear: year - 1,
		DueDate:       due.Format("2006-01-02"),
		SubmissionURL: DASNSubmissionURL,
	}

	if !day.After(due) {
		info.Status = DASNOpen
		info.DaysRemaining = int(due.Sub(day).Hours() / 24)
	} else {
		// June onwards: the next window (for this year) opens next January.
		info.Status = DASNClosed
	}
	return info
}

// DASPaidStillCurrent reports whether a stored das-paid flag is still valid.
// The flag resets implicitly when it was last updated in a prior month.
func DASPaidStillCurrent(updatedAt, today time.Time) bool {
	return updatedAt.Year() == today.Year() && updatedAt.Month() == today.Month()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
