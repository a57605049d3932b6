package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Weekly  Frequency = "week"
	Monthly Frequency = "month"
	Yearly  Frequency = "year"
)

const (
	KindSubscription RecordKind = "subscription"
	KindIncome       RecordKind = "income"
)

// Categories offered to users and to the receipt parser.
const (
	CategoryGroceries      = "Groceries"
	CategoryRestaurants    = "Restaurants"
	CategoryTransportation = "Transportation"
	CategoryShopping       = "Shopping"
	CategoryEntertainment  = "Entertainment"
	CategoryBills          = "Bills"
	CategoryHealthcare     = "Healthcare"
	CategoryEducation      = "Education"
	CategoryPersonalCare   = "Personal Care"
	CategorySubscriptions  = "Subscriptions"
	CategoryOther          = "Other"
)

var Categories = []string{
	CategoryGroceries,
	CategoryRestaurants,
	CategoryTransportation,
	CategoryShopping,
	CategoryEntertainment,
	CategoryBills,
	CategoryHealthcare,
	CategoryEducation,
	CategoryPersonalCare,
	CategorySubscriptions,
	CategoryOther,
}

type (
	Frequency  string
	RecordKind string

	// RecurringRecord is a subscription or an income stream. EndDate is an
	// exclusive bound: for subscriptions it is the next billing date, for
	// income the date the stream stops.
	RecurringRecord struct {
		ID        string
		UserID    string
		Kind      RecordKind
		Name      string
		Amount    float64
		Currency  string
		Frequency Frequency
		StartDate *Date
		EndDate   *Date
		Active    bool
		CreatedAt *time.Time
		// Version increases on every update.
		Version int64
	}

	Transaction struct {
		ID         string
		UserID     string
		Item       string
		Amount     float64
		Currency   string
		Category   string
		Date       Date
		ReceiptURL string
		CreatedAt  time.Time
	}

	Budget struct {
		ID       string
		UserID   string
		Category string
		Limit    float64
		Currency string
	}

	// RecordPatch carries the fields of a partial update. Nil fields are
	// left unchanged; ClearEndDate removes the end bound.
	RecordPatch struct {
		Name         *string
		Amount       *float64
		Currency     *string
		Frequency    *Frequency
		StartDate    *Date
		EndDate      *Date
		ClearEndDate bool
		Active       *bool
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidKind      = errors.New("invalid record kind")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyUser        = errors.New("empty user id")
	ErrEmptyCategory    = errors.New("empty category")
	ErrNameTooLong      = errors.New("name too long (max 200 characters)")
	ErrInvalidDateRange = errors.New("end date must be after start date")
	ErrMissingDate      = errors.New("date cannot be zero")
)

// ParseFrequency maps user input onto a Frequency. Both the short form
// ("month") and the adverb ("monthly") are accepted.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week", "weekly":
		return Weekly, nil
	case "month", "monthly", "":
		return Monthly, nil
	case "year", "yearly", "annual":
		return Yearly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
}

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func ParseKind(s string) (RecordKind, error) {
	switch RecordKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSubscription:
		return KindSubscription, nil
	case KindIncome:
		return KindIncome, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// NormalizeCategory returns the canonical spelling of a known category,
// or Other.
func NormalizeCategory(s string) string {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(c, s) {
			return c
		}
	}
	return CategoryOther
}

// Validate checks a record before it is persisted. The accounting engine
// does not call it: it tolerates malformed records and treats them as zero.
func (r RecurringRecord) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return ErrEmptyUser
	}
	if r.Kind != KindSubscription && r.Kind != KindIncome {
		return fmt.Errorf("%w: %q", ErrInvalidKind, r.Kind)
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if len(r.Name) > 200 {
		return ErrNameTooLong
	}
	if !isFinite(r.Amount) || r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !IsCurrencyCode(r.Currency) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, r.Currency)
	}
	if !r.Frequency.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, r.Frequency)
	}
	if r.StartDate != nil && r.EndDate != nil && !r.EndDate.After(*r.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

// Apply returns a copy of r with the patch applied.
func (p RecordPatch) Apply(r RecurringRecord) RecurringRecord {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Currency != nil {
		r.Currency = strings.ToUpper(*p.Currency)
	}
	if p.Frequency != nil {
		r.Frequency = *p.Frequency
	}
	if p.StartDate != nil {
		d := *p.StartDate
		r.StartDate = &d
	}
	if p.ClearEndDate {
		r.EndDate = nil
	} else if p.EndDate != nil {
		d := *p.EndDate
		r.EndDate = &d
	}
	if p.Active != nil {
		r.Active = *p.Active
	}
	return r
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(t.Item) == "" {
		return ErrEmptyName
	}
	if !isFinite(t.Amount) || t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !IsCurrencyCode(t.Currency) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, t.Currency)
	}
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if !isFinite(b.Limit) || b.Limit <= 0 {
		return ErrInvalidAmount
	}
	if !IsCurrencyCode(b.Currency) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, b.Currency)
	}
	return nil
}
