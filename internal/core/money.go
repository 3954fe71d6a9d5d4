// Package core provides money parsing and handling utilities.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of decimals used when amounts are printed or
// compared for display.
const DisplayPlaces = 2

// StoragePlaces bounds the precision kept after a currency rescale.
const StoragePlaces = 8

// MaxIntegerDigits bounds the magnitude of a parsed amount.
const MaxIntegerDigits = 15

const maxAmountLen = 64

var maxAmount = decimal.New(1, MaxIntegerDigits)

// ParseAmount converts a user supplied string into a decimal amount.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Signed values
// are allowed; exponent notation is not. The result is rounded to
// StoragePlaces and must have at most MaxIntegerDigits integer digits.
// Anything else yields ErrInvalidAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if len(s) > maxAmountLen {
		return decimal.Zero, fmt.Errorf("%w: longer than %d characters", ErrInvalidAmount, maxAmountLen)
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, fmt.Errorf("%w: more than %d integer digits", ErrInvalidAmount, MaxIntegerDigits)
	}
	return d.Round(StoragePlaces), nil
}

// ParsePositiveAmount is ParseAmount restricted to values greater than zero.
func ParsePositiveAmount(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: must be greater than 0", ErrInvalidAmount)
	}
	return d, nil
}

func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(DisplayPlaces)
}

// Rescale multiplies an amount by an exchange rate.
func Rescale(d, rate decimal.Decimal) decimal.Decimal {
	return d.Mul(rate).Round(StoragePlaces)
}
