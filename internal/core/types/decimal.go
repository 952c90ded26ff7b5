// Package types provides the numeric types shared by ledgers and rollups.
package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
type Money = decimal.Decimal

// Quantity is a stock quantity (count, litres or kilograms depending on the item unit).
type Quantity = decimal.Decimal

// DivisionPrecision is the number of fractional digits kept by SafeDiv.
const DivisionPrecision int32 = 8

// Zero returns the zero decimal.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseLenient parses a numeric field coming from loosely typed input.
// Malformed, empty, NaN and infinite values yield zero instead of an error.
func ParseLenient(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	switch strings.ToLower(s) {
	case "nan", "inf", "+inf", "-inf", "infinity", "-infinity":
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SafeDiv divides a by b rounding to DivisionPrecision digits.
// Division by zero yields zero.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, DivisionPrecision)
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
