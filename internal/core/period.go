package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type PeriodKind int

const (
	PeriodMonth PeriodKind = iota
	PeriodYear
	PeriodAllTime
)

func (k PeriodKind) String() string {
	switch k {
	case PeriodMonth:
		return "month"
	case PeriodYear:
		return "year"
	case PeriodAllTime:
		return "all"
	}
	return "unknown"
}

// CalendarPeriod is a reporting window selector. Year and Month are only
// meaningful for the kinds that use them.
type CalendarPeriod struct {
	Kind  PeriodKind
	Year  int
	Month int
}

// Interval is a half-open range of civil dates [Start, End).
type Interval struct {
	Start Date
	End   Date
}

var ErrInvalidPeriod = errors.New("invalid reporting period")

func Month(year, month int) CalendarPeriod {
	return CalendarPeriod{Kind: PeriodMonth, Year: year, Month: month}
}

func Year(year int) CalendarPeriod {
	return CalendarPeriod{Kind: PeriodYear, Year: year}
}

func AllTime() CalendarPeriod {
	return CalendarPeriod{Kind: PeriodAllTime}
}

// MonthWindow returns the first and last day of the month, both inclusive.
func MonthWindow(year, month int) (Date, Date) {
	first := NewDate(year, month, 1)
	return first, first.LastOfMonth()
}

// YearWindow returns Jan 1 and Dec 31 of year, both inclusive.
func YearWindow(year int) (Date, Date) {
	return NewDate(year, 1, 1), NewDate(year, 12, 31)
}

// Window resolves the period to inclusive bounds. AllTime needs the
// earliest record start and today; other kinds ignore them.
func (p CalendarPeriod) Window(earliest, today Date) (Date, Date) {
	switch p.Kind {
	case PeriodYear:
		return YearWindow(p.Year)
	case PeriodAllTime:
		return earliest, today
	default:
		return MonthWindow(p.Year, p.Month)
	}
}

// String renders the selector form accepted by ParseReportingPeriod.
func (p CalendarPeriod) String() string {
	switch p.Kind {
	case PeriodYear:
		return fmt.Sprintf("year:%04d", p.Year)
	case PeriodAllTime:
		return "all"
	default:
		return fmt.Sprintf("month:%04d-%02d", p.Year, p.Month)
	}
}

// ParseReportingPeriod parses "all", "year:YYYY" or "month:YYYY-MM".
func ParseReportingPeriod(s string) (CalendarPeriod, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "all" {
		return AllTime(), nil
	}
	kind, value, ok := strings.Cut(s, ":")
	if !ok {
		return CalendarPeriod{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	switch kind {
	case "year":
		y, err := strconv.Atoi(value)
		if err != nil || len(value) != 4 {
			return CalendarPeriod{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
		}
		return Year(y), nil
	case "month":
		ys, ms, ok := strings.Cut(value, "-")
		if !ok || len(ys) != 4 {
			return CalendarPeriod{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
		}
		y, yErr := strconv.Atoi(ys)
		m, mErr := strconv.Atoi(ms)
		if yErr != nil || mErr != nil || m < 1 || m > 12 {
			return CalendarPeriod{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
		}
		return Month(y, m), nil
	}
	return CalendarPeriod{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// Intersect clips a record's validity [recordStart, recordEnd) to the
// inclusive window [windowStart, windowEnd]. The result is half-open; ok is
// false when the overlap is empty.
func Intersect(windowStart, windowEnd, recordStart Date, recordEnd *Date) (Interval, bool) {
	start := MaxDate(windowStart, recordStart)
	end := windowEnd.AddDays(1)
	if recordEnd != nil && recordEnd.Before(end) {
		end = *recordEnd
	}
	if !start.Before(end) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

// Last returns the last day covered by the interval.
func (i Interval) Last() Date {
	return i.End.AddDays(-1)
}

// Days returns the number of days covered.
func (i Interval) Days() int {
	return i.Start.DaysUntil(i.End)
}
