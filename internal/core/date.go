package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a civil calendar date. The embedded time is always midnight UTC so
// that arithmetic and comparisons never cross a zone boundary.
type Date struct {
	time.Time
}

var ErrInvalidDate = errors.New("invalid date")

// NewDate creates a new Date from year, month, day. Out of range values are
// normalized the way time.Date does.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses "YYYY-MM-DD" as a civil date. The string is never
// interpreted as an instant, so the result does not depend on the local zone.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// DateIn returns the calendar date of the instant t as observed in loc.
func DateIn(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return NewDate(y, int(m), d)
}

func (d Date) Day() int   { return d.Time.Day() }
func (d Date) Month() int { return int(d.Time.Month()) }
func (d Date) Year() int  { return d.Time.Year() }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths moves n calendar months, clamping the day to the end of the
// target month (Jan 31 + 1 month = Feb 28/29).
func (d Date) AddMonths(n int) Date {
	first := NewDate(d.Year(), d.Month()+n, 1)
	day := d.Day()
	if last := first.LastOfMonth().Day(); day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

func (d Date) AddYears(n int) Date {
	return d.AddMonths(12 * n)
}

func (d Date) FirstOfMonth() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

func (d Date) LastOfMonth() Date {
	return NewDate(d.Year(), d.Month()+1, 0)
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// DaysUntil returns the whole number of days from d to o.
func (d Date) DaysUntil(o Date) int {
	return int(o.Time.Sub(d.Time).Hours() / 24)
}

func MinDate(a, b Date) Date {
	if b.Before(a) {
		return b
	}
	return a
}

func MaxDate(a, b Date) Date {
	if b.After(a) {
		return b
	}
	return a
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ReceiptDate validates a date read from a receipt. Dates outside
// [today-2y, today+1y] or that fail to parse are replaced by today.
func ReceiptDate(raw string, today Date) Date {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return today
	}
	d, err := ParseDate(raw)
	if err != nil {
		d, err = DisambiguateDate(raw, today)
		if err != nil {
			return today
		}
	}
	if d.Before(today.AddYears(-2)) || d.After(today.AddYears(1)) {
		return today
	}
	return d
}

// DisambiguateDate resolves numeric dates such as "03/04/2024" that read
// validly both day-first and month-first. The reading closer to today wins;
// on a tie the reading that is not in the future wins, then day-first.
// This is a heuristic: it guesses, it does not know the locale.
func DisambiguateDate(raw string, today Date) (Date, error) {
	fields := strings.FieldsFunc(strings.TrimSpace(raw), func(r rune) bool {
		return r == '/' || r == '.' || r == '-'
	})
	if len(fields) != 3 {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	nums := make([]int, 3)
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
		}
		nums[i] = n
	}

	// Year first: unambiguous ISO-like order.
	if len(fields[0]) == 4 {
		return civil(nums[0], nums[1], nums[2], raw)
	}

	year := nums[2]
	if len(fields[2]) == 2 {
		year += 2000
	}
	dayFirst, dfErr := civil(year, nums[1], nums[0], raw)
	monthFirst, mfErr := civil(year, nums[0], nums[1], raw)
	switch {
	case dfErr != nil && mfErr != nil:
		return Date{}, dfErr
	case dfErr != nil:
		return monthFirst, nil
	case mfErr != nil:
		return dayFirst, nil
	case dayFirst.Equal(monthFirst):
		return dayFirst, nil
	}

	dfDist := absInt(dayFirst.DaysUntil(today))
	mfDist := absInt(monthFirst.DaysUntil(today))
	switch {
	case dfDist < mfDist:
		return dayFirst, nil
	case mfDist < dfDist:
		return monthFirst, nil
	case dayFirst.After(today) && !monthFirst.After(today):
		return monthFirst, nil
	}
	return dayFirst, nil
}

// civil builds a date and rejects values time.Date would normalize.
func civil(year, month, day int, raw string) (Date, error) {
	d := NewDate(year, month, day)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return d, nil
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
