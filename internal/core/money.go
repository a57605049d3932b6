// Package core provides money parsing and display utilities.
//
// Amounts travel through the system as float64 because the accounting
// engine works on unrounded converted values. Parsing and display go
// through shopspring/decimal so that user input and rendered figures are
// exact to the cent.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered decimal string to a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds half-up to cents. Negative, zero and malformed values are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,345") -> 12.35, nil
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}

// RoundCents rounds half away from zero to two decimals.
func RoundCents(amount float64) float64 {
	if !isFinite(amount) {
		return 0
	}
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// FormatAmount renders amount with the currency symbol and two decimals.
func FormatAmount(amount float64, currency string) string {
	if !isFinite(amount) {
		amount = 0
	}
	return Symbol(currency) + decimal.NewFromFloat(amount).StringFixed(2)
}

// SumAmounts adds amounts in decimal space and returns the rounded total.
func SumAmounts(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		if isFinite(a) {
			total = total.Add(decimal.NewFromFloat(a))
		}
	}
	return total.Round(2).InexactFloat64()
}
