package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConverter_Convert(t *testing.T) {
	c := NewConverter(nil)

	tests := []struct {
		name     string
		amount   float64
		from, to string
		want     float64
	}{
		{"identity", 123.456, "DKK", "DKK", 123.456},
		{"identity case-insensitive", 10, "eur", "EUR", 10},
		{"usd to eur", 100, "USD", "EUR", 92},
		{"dkk to usd", 685, "DKK", "USD", 100},
		{"eur to gbp", 92, "EUR", "GBP", 79},
		{"unknown source uses 1.0", 100, "XYZ", "EUR", 92},
		{"unknown both", 100, "XYZ", "ABC", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, c.Convert(tt.amount, tt.from, tt.to), 1e-9)
		})
	}
}

func TestConverter_IdentityIsExact(t *testing.T) {
	c := NewConverter(nil)
	for _, code := range c.Supported() {
		for _, a := range []float64{0.1, 1e-9, 12345.6789, 1.0 / 3.0} {
			assert.Equal(t, a, c.Convert(a, code, code))
		}
	}
}

func TestConverter_RoundTrip(t *testing.T) {
	c := NewConverter(nil)
	codes := c.Supported()
	for _, from := range codes {
		for _, to := range codes {
			got := c.Convert(c.Convert(250.75, from, to), to, from)
			assert.InDelta(t, 250.75, got, 1e-9, "%s -> %s -> %s", from, to, from)
		}
	}
}

func TestSymbol(t *testing.T) {
	assert.Equal(t, "kr", Symbol("dkk"))
	assert.Equal(t, "C$", Symbol("CAD"))
	assert.Equal(t, "$", Symbol("???"))
}

func TestNormalizeCurrency(t *testing.T) {
	assert.Equal(t, "EUR", NormalizeCurrency("eur", "USD"))
	assert.Equal(t, "USD", NormalizeCurrency("", "usd"))
	assert.Equal(t, "DKK", NormalizeCurrency("euro", "DKK"))
}
