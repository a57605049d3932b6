package core

import (
	"math"
	"sort"
	"strings"
)

// DefaultRates holds units of each currency per one US dollar.
var DefaultRates = map[string]float64{
	"USD": 1.0,
	"EUR": 0.92,
	"GBP": 0.79,
	"JPY": 150.0,
	"CAD": 1.35,
	"AUD": 1.52,
	"CHF": 0.88,
	"CNY": 7.20,
	"DKK": 6.85,
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CAD": "C$",
	"AUD": "A$",
	"CHF": "CHF",
	"CNY": "¥",
	"DKK": "kr",
}

// Converter converts amounts through a static USD-based rate table.
// It is immutable after construction and safe for concurrent use.
type Converter struct {
	rates map[string]float64
}

// NewConverter copies rates into a new converter; a nil map selects
// DefaultRates.
func NewConverter(rates map[string]float64) *Converter {
	if rates == nil {
		rates = DefaultRates
	}
	c := &Converter{rates: make(map[string]float64, len(rates))}
	for code, rate := range rates {
		if rate > 0 && !math.IsInf(rate, 0) && !math.IsNaN(rate) {
			c.rates[strings.ToUpper(code)] = rate
		}
	}
	return c
}

// Convert returns amount expressed in to. Equal codes return amount
// unchanged; unknown codes use a rate of 1.0. No rounding is applied.
func (c *Converter) Convert(amount float64, from, to string) float64 {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return amount
	}
	return amount / c.rate(from) * c.rate(to)
}

func (c *Converter) rate(code string) float64 {
	if r, ok := c.rates[code]; ok {
		return r
	}
	return 1.0
}

// Supported lists the codes in the rate table, sorted.
func (c *Converter) Supported() []string {
	codes := make([]string, 0, len(c.rates))
	for code := range c.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Symbol returns the display symbol for a currency code, "$" when unknown.
func Symbol(code string) string {
	if s, ok := currencySymbols[strings.ToUpper(code)]; ok {
		return s
	}
	return "$"
}

// IsCurrencyCode reports whether s looks like an ISO 4217 code.
func IsCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

// NormalizeCurrency upper-cases a valid code and falls back to def otherwise.
func NormalizeCurrency(code, def string) string {
	code = strings.TrimSpace(code)
	if !IsCurrencyCode(code) {
		return strings.ToUpper(def)
	}
	return strings.ToUpper(code)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
