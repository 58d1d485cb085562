package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for every wallet amount.
const Scale int32 = 2

var (
	// ErrAmountRequired is returned when no amount was supplied.
	ErrAmountRequired = errors.New("amount is required")
	// ErrAmountNotPositive is returned when the normalized amount is zero or negative.
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
)

// Zero is 0.00 at wallet scale.
var Zero = decimal.Zero.Round(Scale)

// Normalize rounds an amount to wallet scale using banker's rounding.
func Normalize(amount decimal.Decimal) decimal.Decimal {
	return amount.RoundBank(Scale)
}

// Positive normalizes amount and rejects values that round to zero or below.
func Positive(amount decimal.Decimal) (decimal.Decimal, error) {
	normalized := Normalize(amount)
	if !normalized.IsPositive() {
		return decimal.Zero, ErrAmountNotPositive
	}
	return normalized, nil
}

// Parse reads a human-readable amount such as "100.50" and returns it at wallet scale.
func Parse(value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, ErrAmountRequired
	}
	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return Normalize(parsed), nil
}

// ParsePositive parses value and requires a strictly positive result.
func ParsePositive(value string) (decimal.Decimal, error) {
	parsed, err := Parse(value)
	if err != nil {
		return decimal.Zero, err
	}
	return Positive(parsed)
}

// Format renders an amount with exactly two fractional digits.
func Format(amount decimal.Decimal) string {
	return Normalize(amount).StringFixed(Scale)
}
