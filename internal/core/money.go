// Package core provides money parsing and handling utilities.
//
// This file contains the amount parser used by entry submissions and edits
// and the display formatting used by templates and exports.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places amounts are rounded to.
const AmountScale = 2

// ParseAmount converts user input into a decimal rounded half-up to cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted. A leading sign
// is allowed; callers decide whether the sign matters. Empty input returns
// ErrAmountRequired, anything unparsable or rounding to zero ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("-3")     -> -3
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrAmountRequired
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 || strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(AmountScale)
	if d.IsZero() {
		return decimal.Zero, ErrInvalidAmount
	}
	// Guard against values the NUMERIC(14,2) column cannot hold.
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

var maxAmount = decimal.New(1, 12)

// FormatAmount renders a signed amount with two decimals, e.g. "-12.30".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}
