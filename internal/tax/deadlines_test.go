package tax

import (
	"testing"
	"time"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestDASForMonth(t *testing.T) {
	tests := []struct {
		name     string
		today    time.Time
		paid     bool
		want     DASStatus
		wantDays int
	}{
		{"paid wins over everything", day(2025, 3, 25), true, DASPaid, 0},
		{"before the 20th", day(2025, 3, 10), false, DASUpcoming, 10},
		{"day before due", day(2025, 3, 19), false, DASUpcoming, 1},
		{"on the 20th", day(2025, 3, 20), false, DASDueToday, 0},
		{"after the 20th", day(2025, 3, 21), false, DASOverdue, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DASForMonth(tt.today, tt.paid)
			if got.Status != tt.want {
				t.Errorf("Status = %q, want %q", got.Status, tt.want)
			}
			if got.DaysRemaining != tt.wantDays {
				t.Errorf("DaysRemaining = %d, want %d", got.DaysRemaining, tt.wantDays)
			}
			if got.DueDate != "2025-03-20" {
				t.Errorf("DueDate = %q, want 2025-03-20", got.DueDate)
			}
		})
	}
}

func TestDASForMonthIgnoresTimeOfDay(t *testing.T) {
	lateEvening := time.Date(2025, 3, 19, 23, 45, 0, 0, time.UTC)
	got := DASForMonth(lateEvening, false)
	if got.Status != DASUpcoming || got.DaysRemaining != 1 {
		t.Errorf("got %+v, want upcoming with 1 day remaining", got)
	}
}

func TestDASNForToday(t *testing.T) {
	t.Run("inside the window", func(t *testing.T) {
		got := DASNForToday(day(2025, 3, 1))
		if got.Status != DASNOpen {
			t.Fatalf("Status = %q, want open", got.Status)
		}
		if got.ReferenceYear != 2024 {
			t.Errorf("ReferenceYear = %d, want 2024", got.ReferenceYear)
		}
		if got.DueDate != "2025-05-31" {
			t.Errorf("DueDate = %q, want 2025-05-31", got.DueDate)
		}
		if got.DaysRemaining != 91 {
			t.Errorf("DaysRemaining = %d, want 91", got.DaysRemaining)
		}
	})

	t.Run("last day of the window", func(t *testing.T) {
		got := DASNForToday(day(2025, 5, 31))
		if got.Status != DASNOpen || got.DaysRemaining != 0 {
			t.Errorf("got %+v, want open with 0 days remaining", got)
		}
	})

	t.Run("after the window", func(t *testing.T) {
		got := DASNForToday(day(2025, 8, 10))
		if got.Status != DASNClosed {
			t.Errorf("Status = %q, want out_of_period", got.Status)
		}
		if got.ReferenceYear != 2024 {
			t.Errorf("ReferenceYear = %d, want 2024", got.ReferenceYear)
		}
	})
}

func TestDASPaidStillCurrent(t *testing.T) {
	today := day(2025, 3, 15)

	if !DASPaidStillCurrent(day(2025, 3, 2), today) {
		t.Error("flag updated this month should remain valid")
	}
	if DASPaidStillCurrent(day(2025, 2, 28), today) {
		t.Error("flag from a prior month should reset")
	}
	if DASPaidStillCurrent(day(2024, 3, 15), today) {
		t.Error("flag from the same month last year should reset")
	}
}

func TestRevenueCapProgress(t *testing.T) {
	tests := []struct {
		name    string
		revenue int64
		want    CapStatus
	}{
		{"well below cap", 4_000_000, CapOK},
		{"exactly 80 percent", 6_480_000, CapOK},
		{"just above 80 percent", 6_500_000, CapWarning},
		{"just above 95 percent", 7_800_000, CapCritical},
		{"over the cap", 9_000_000, CapCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RevenueCapProgress(tt.revenue, DefaultAnnualRevenueCapCents)
			if got.Status != tt.want {
				t.Errorf("Status = %q, want %q (percent %.1f)", got.Status, tt.want, got.Percent)
			}
		})
	}

	zero := RevenueCapProgress(1000, 0)
	if zero.Status != CapOK || zero.Percent != 0 {
		t.Errorf("zero cap should report ok with 0%%, got %+v", zero)
	}
}
