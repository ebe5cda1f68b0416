// Package core provides money parsing and handling utilities.
//
// Amounts are carried as shopspring decimals end to end so sums over many
// expenses never pick up binary floating point error.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of fractional digits shown for an amount.
const CurrencyPlaces = 2

// ParseAmount converts a user supplied decimal string to a price.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Negative values and malformed input return ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// RoundCurrency rounds half away from zero to two places, so 45.455 becomes
// 45.46 and never 45.45.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// SumPrices adds every present price. Absent prices count as zero.
func SumPrices(expenses []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount())
	}
	return total
}

// FormatEuro renders an amount the way the dashboard chart labels it.
func FormatEuro(d decimal.Decimal) string {
	return RoundCurrency(d).StringFixed(CurrencyPlaces) + "€"
}

// NewPrice wraps d as a present price.
func NewPrice(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}
