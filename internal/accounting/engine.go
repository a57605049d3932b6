package accounting

import (
	"math"
	"strings"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/utils"
)

// DefaultCurrency is used for records whose currency is missing or invalid.
const DefaultCurrency = "USD"

// CurrencyConverter converts an amount between ISO 4217 codes.
type CurrencyConverter interface {
	Convert(amount float64, from, to string) float64
}

// Engine computes how much of a recurring record falls into a reporting
// window. It holds no mutable state and is safe for concurrent use.
//
// The engine never fails: inactive records, malformed amounts, records with
// no usable start date and empty overlaps all contribute zero.
type Engine struct {
	converter       CurrencyConverter
	clock           utils.Clock
	defaultCurrency string
	location        *time.Location
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the source of "today" used for the current month and for
// the end of the all-time window.
func WithClock(c utils.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithDefaultCurrency sets the currency assumed for records without a valid
// one. Unknown codes are ignored.
func WithDefaultCurrency(code string) Option {
	return func(e *Engine) {
		if core.IsCurrencyCode(code) {
			e.defaultCurrency = strings.ToUpper(code)
		}
	}
}

// WithLocation sets the zone used to turn timestamps (the clock, record
// creation times) into calendar dates.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// New returns an Engine using converter, or a converter over DefaultRates
// when converter is nil.
func New(converter CurrencyConverter, opts ...Option) *Engine {
	if converter == nil {
		converter = core.NewConverter(nil)
	}
	e := &Engine{
		converter:       converter,
		clock:           utils.SystemClock{},
		defaultCurrency: DefaultCurrency,
		location:        time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RecordAmount is one record's contribution to a reporting period.
type RecordAmount struct {
	RecordID  string          `json:"record_id"`
	Name      string          `json:"name"`
	Kind      core.RecordKind `json:"kind"`
	Frequency core.Frequency  `json:"frequency"`
	Charges   int             `json:"charges"`
	Amount    float64         `json:"amount"`
}

// Today returns the current calendar date in the engine's location.
func (e *Engine) Today() core.Date {
	return core.DateIn(e.clock.Now(), e.location)
}

// ComputeCost returns the record's contribution to the inclusive window
// [windowStart, windowEnd], converted to targetCurrency.
func (e *Engine) ComputeCost(r core.RecurringRecord, windowStart, windowEnd core.Date, targetCurrency string) float64 {
	_, counter := counterFor(r.Frequency)
	return e.convert(r, e.charges(r, counter, windowStart, windowEnd), targetCurrency)
}

// ComputeMonthlyAggregate sums the contributions of records to one calendar
// month. A nil month selects the current month.
func (e *Engine) ComputeMonthlyAggregate(records []core.RecurringRecord, targetCurrency string, month *core.Date) float64 {
	m := e.Today()
	if month != nil {
		m = *month
	}
	ws, we := core.MonthWindow(m.Year(), m.Month())

	var total float64
	for _, r := range records {
		total += e.ComputeCost(r, ws, we, targetCurrency)
	}
	return total
}

// ComputeAggregate sums the contributions of records to a reporting period.
func (e *Engine) ComputeAggregate(records []core.RecurringRecord, targetCurrency string, period core.CalendarPeriod) float64 {
	var total float64
	for _, ra := range e.Breakdown(records, targetCurrency, period) {
		total += ra.Amount
	}
	return total
}

// Breakdown returns the per-record contributions to a reporting period, in
// input order. Records that contribute nothing are included with zero.
//
// For year and all-time periods monthly records are evaluated month by
// month; other frequencies are evaluated once over the whole window.
func (e *Engine) Breakdown(records []core.RecurringRecord, targetCurrency string, period core.CalendarPeriod) []RecordAmount {
	out := make([]RecordAmount, 0, len(records))

	ws, we, ok := e.window(records, period)
	for _, r := range records {
		freq, counter := counterFor(r.Frequency)
		ra := RecordAmount{RecordID: r.ID, Name: r.Name, Kind: r.Kind, Frequency: freq}
		if ok {
			if freq == core.Monthly && period.Kind != core.PeriodMonth {
				ra.Charges = e.monthBuckets(r, counter, ws, we)
			} else {
				ra.Charges = e.charges(r, counter, ws, we)
			}
			ra.Amount = e.convert(r, ra.Charges, targetCurrency)
		}
		out = append(out, ra)
	}
	return out
}

// NextChargeDate returns the first charge date strictly after today for a
// series anchored at start. Day-of-month is clamped to short months without
// drifting the anchor.
func (e *Engine) NextChargeDate(start core.Date, frequency core.Frequency, today core.Date) core.Date {
	_, counter := counterFor(frequency)
	n := 0
	next := start
	for !next.After(today) {
		n++
		next = counter.ChargeDate(start, n)
	}
	return next
}

// window resolves a period to inclusive bounds. For all-time it spans the
// earliest start among contributing records to today; ok is false when no
// record has a usable start.
func (e *Engine) window(records []core.RecurringRecord, period core.CalendarPeriod) (core.Date, core.Date, bool) {
	today := e.Today()
	if period.Kind != core.PeriodAllTime {
		ws, we := period.Window(core.Date{}, today)
		return ws, we, true
	}

	var earliest core.Date
	found := false
	for _, r := range records {
		if !r.Active {
			continue
		}
		start, ok := e.startOf(r)
		if !ok {
			continue
		}
		if !found || start.Before(earliest) {
			earliest = start
			found = true
		}
	}
	if !found {
		return core.Date{}, core.Date{}, false
	}
	return earliest, today, true
}

// charges counts the charges of r inside the window, zero when the record
// does not contribute.
func (e *Engine) charges(r core.RecurringRecord, counter ChargeCounter, ws, we core.Date) int {
	if !r.Active {
		return 0
	}
	start, ok := e.startOf(r)
	if !ok {
		return 0
	}
	iv, ok := core.Intersect(ws, we, start, r.EndDate)
	if !ok {
		return 0
	}
	return counter.Charges(iv)
}

// monthBuckets walks calendar months from the later of the record start and
// the window start until the earlier of the record end and the window end,
// counting each month clipped to the window.
func (e *Engine) monthBuckets(r core.RecurringRecord, counter ChargeCounter, ws, we core.Date) int {
	if !r.Active {
		return 0
	}
	start, ok := e.startOf(r)
	if !ok {
		return 0
	}
	limit := we
	if r.EndDate != nil {
		limit = core.MinDate(limit, *r.EndDate)
	}

	total := 0
	for m := core.MaxDate(start, ws).FirstOfMonth(); !m.After(limit); m = m.AddMonths(1) {
		ms, me := core.MonthWindow(m.Year(), m.Month())
		total += e.charges(r, counter, core.MaxDate(ms, ws), core.MinDate(me, we))
	}
	return total
}

// startOf returns the record's start date, falling back to the calendar
// date of its creation timestamp.
func (e *Engine) startOf(r core.RecurringRecord) (core.Date, bool) {
	if r.StartDate != nil && !r.StartDate.IsZero() {
		return *r.StartDate, true
	}
	if r.CreatedAt != nil && !r.CreatedAt.IsZero() {
		return core.DateIn(*r.CreatedAt, e.location), true
	}
	return core.Date{}, false
}

func (e *Engine) convert(r core.RecurringRecord, charges int, target string) float64 {
	if charges == 0 || math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
		return 0
	}
	from := core.NormalizeCurrency(r.Currency, e.defaultCurrency)
	to := core.NormalizeCurrency(target, e.defaultCurrency)
	return e.converter.Convert(r.Amount*float64(charges), from, to)
}
