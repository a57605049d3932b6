// Package accounting attributes recurring subscription and income amounts to
// reporting periods.
//
// This file holds one charge-counting strategy per frequency. Each strategy
// answers two questions: how many charges fall inside a covered interval, and
// when the n-th charge after an anchor date happens.
package accounting

import (
	"fmt"
	"math"
	"spendwise/internal/core"
)

// ChargeCounter is the strategy interface for a billing frequency.
type ChargeCounter interface {
	// Charges returns the number of charges attributable to a non-empty
	// half-open interval. It is never less than one.
	Charges(iv core.Interval) int
	// ChargeDate returns the date of the n-th charge counted from anchor,
	// where n == 0 is the anchor itself.
	ChargeDate(anchor core.Date, n int) core.Date
}

// MonthlyCounter charges once per calendar month touched by the interval.
type MonthlyCounter struct{}

func (MonthlyCounter) Charges(iv core.Interval) int {
	last := iv.Last()
	months := (last.Year()-iv.Start.Year())*12 + (last.Month() - iv.Start.Month()) + 1
	return max(1, months)
}

func (MonthlyCounter) ChargeDate(anchor core.Date, n int) core.Date {
	return anchor.AddMonths(n)
}

// WeeklyCounter charges every seven days starting at the interval start.
type WeeklyCounter struct{}

func (WeeklyCounter) Charges(iv core.Interval) int {
	return max(1, int(math.Ceil(float64(iv.Days())/7)))
}

func (WeeklyCounter) ChargeDate(anchor core.Date, n int) core.Date {
	return anchor.AddDays(7 * n)
}

// YearlyCounter charges once per started 365 days of the interval, so an
// interval spanning a leap day can count one more charge than calendar
// anniversaries would.
type YearlyCounter struct{}

func (YearlyCounter) Charges(iv core.Interval) int {
	return max(1, int(math.Ceil(float64(iv.Days())/365)))
}

func (YearlyCounter) ChargeDate(anchor core.Date, n int) core.Date {
	return anchor.AddYears(n)
}

// chargeCounters maps frequencies to their strategies.
var chargeCounters = map[core.Frequency]ChargeCounter{
	core.Weekly:  WeeklyCounter{},
	core.Monthly: MonthlyCounter{},
	core.Yearly:  YearlyCounter{},
}

// GetChargeCounter returns the strategy for a frequency.
func GetChargeCounter(frequency core.Frequency) (ChargeCounter, error) {
	counter, ok := chargeCounters[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return counter, nil
}

// RegisterChargeCounter adds or replaces the strategy for a frequency.
// It must be called before any Engine is used concurrently.
func RegisterChargeCounter(frequency core.Frequency, counter ChargeCounter) {
	chargeCounters[frequency] = counter
}

// counterFor resolves a record's frequency, treating empty and unknown
// values as monthly.
func counterFor(frequency core.Frequency) (core.Frequency, ChargeCounter) {
	if counter, err := GetChargeCounter(frequency); err == nil {
		return frequency, counter
	}
	return core.Monthly, chargeCounters[core.Monthly]
}
