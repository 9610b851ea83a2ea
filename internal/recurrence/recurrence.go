// Package recurrence computes payment, extension, and cancelation dates for
// recurring contracts. All functions are pure: the caller supplies "today".
package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// Cycle is a payment cycle code as stored on a contract.
type Cycle string

const (
	CycleMonthly    Cycle = "m"
	CycleQuarterly  Cycle = "q"
	CycleHalfYearly Cycle = "h"
	CycleYearly     Cycle = "y"
)

// ErrInvalidCycle is returned for a payment cycle code outside the fixed set.
var ErrInvalidCycle = errors.New("invalid payment cycle")

type cycleInfo struct {
	name   string
	months int
}

var cycles = map[Cycle]cycleInfo{
	CycleMonthly:    {name: "monthly", months: 1},
	CycleQuarterly:  {name: "quarterly", months: 3},
	CycleHalfYearly: {name: "half-yearly", months: 6},
	CycleYearly:     {name: "yearly", months: 12},
}

// CycleMonths returns the length of a payment cycle in months.
func CycleMonths(c Cycle) (int, error) {
	info, ok := cycles[c]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCycle, string(c))
	}
	return info.months, nil
}

// MustCycleMonths is CycleMonths for codes that were validated on the way in.
// An unknown code here is a programming error.
func MustCycleMonths(c Cycle) int {
	months, err := CycleMonths(c)
	if err != nil {
		panic(err)
	}
	return months
}

// CycleName returns the human-readable name of a cycle, or "" if unknown.
func CycleName(c Cycle) string {
	return cycles[c].name
}

// IsValidCycle reports whether c is one of the known cycle codes.
func IsValidCycle(c Cycle) bool {
	_, ok := cycles[c]
	return ok
}

// Terms holds the contract fields the engine needs.
// Zero or nil durations mean "not set".
type Terms struct {
	DateStart         time.Time
	CancelationPeriod *int
	MinimumDuration   *int
	RenewalDuration   *int
	Amount            float64
	PaymentDate       *time.Time
	PaymentCycle      Cycle
}

// NextPaymentDate reports the payment date in today's month if the contract
// is due this month and the anchor day has been reached. It never looks at
// future months.
func NextPaymentDate(t Terms, today time.Time) (time.Time, bool) {
	if t.PaymentDate == nil {
		return time.Time{}, false
	}
	months := MustCycleMonths(t.PaymentCycle)
	anchor := *t.PaymentDate

	matchMonth := (int(today.Month())-int(anchor.Month()))%months == 0
	matchDay := today.Day() >= anchor.Day()
	if !matchMonth || !matchDay {
		return time.Time{}, false
	}

	return PaymentDateIn(t, today.Year(), today.Month(), today.Location()), true
}

// PaymentDateIn returns the anchor day placed in the given month, clamped to
// the month's last day (anchor 31 in February gives Feb 28 or 29).
func PaymentDateIn(t Terms, year int, month time.Month, loc *time.Location) time.Time {
	day := 1
	if t.PaymentDate != nil {
		day = t.PaymentDate.Day()
	}
	return clampedDate(year, month, day, loc)
}

// AmountPerYear scales the per-cycle amount to a yearly amount.
func AmountPerYear(t Terms) float64 {
	months := MustCycleMonths(t.PaymentCycle)
	return t.Amount * (12 / float64(months))
}

// NextExtensionDate returns the first automatic renewal date on or after today.
// Contracts without both a minimum and a renewal duration never extend.
func NextExtensionDate(t Terms, today time.Time) (time.Time, bool) {
	if !isSet(t.MinimumDuration) || !isSet(t.RenewalDuration) {
		return time.Time{}, false
	}

	today = truncateDay(today)
	extension := AddMonths(truncateDay(t.DateStart), *t.MinimumDuration)
	for extension.Before(today) {
		extension = AddMonths(extension, *t.RenewalDuration)
	}
	return extension, true
}

// NextCancelationDate is the last day notice can be given before the next
// extension: extension minus the cancelation period minus one day.
func NextCancelationDate(t Terms, today time.Time) (time.Time, bool) {
	extension, ok := NextExtensionDate(t, today)
	if !ok {
		return time.Time{}, false
	}

	cancelation := extension
	if isSet(t.CancelationPeriod) {
		cancelation = AddMonths(cancelation, -*t.CancelationPeriod)
	}
	return cancelation.AddDate(0, 0, -1), true
}

// IsCancelationDueSoon reports whether the next cancelation date falls within
// one month of today.
func IsCancelationDueSoon(t Terms, today time.Time) bool {
	cancelation, ok := NextCancelationDate(t, today)
	if !ok {
		return false
	}
	return cancelation.Before(AddMonths(truncateDay(today), 1))
}

// Schedule bundles every derived date of a contract for one point in time.
type Schedule struct {
	NextPaymentDate      *time.Time `json:"next_payment_date"`
	AmountPerYear        float64    `json:"amount_per_year"`
	NextExtensionDate    *time.Time `json:"next_extension_date"`
	NextCancelationDate  *time.Time `json:"next_cancelation_date"`
	IsCancelationShortly bool       `json:"is_cancelation_shortly"`
}

// Compute evaluates all schedule fields of t at today.
func Compute(t Terms, today time.Time) Schedule {
	s := Schedule{
		AmountPerYear:        AmountPerYear(t),
		IsCancelationShortly: IsCancelationDueSoon(t, today),
	}
	if d, ok := NextPaymentDate(t, today); ok {
		s.NextPaymentDate = &d
	}
	if d, ok := NextExtensionDate(t, today); ok {
		s.NextExtensionDate = &d
	}
	if d, ok := NextCancelationDate(t, today); ok {
		s.NextCancelationDate = &d
	}
	return s
}

// AddMonths adds n months to d, clamping the day to the end of the target
// month (Jan 31 + 1 month = Feb 28 or 29).
func AddMonths(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, d.Location())
	return clampedDate(first.Year(), first.Month(), day, d.Location())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func clampedDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func isSet(v *int) bool {
	return v != nil && *v > 0
}
