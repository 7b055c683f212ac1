// Package core provides money parsing and handling utilities.
//
// Paid amounts are kept as exact decimals so that sums over any number of
// claims never lose precision or overflow.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmountExponent bounds the exponent of a parsed amount so that a
// hostile value such as "1e999999999" cannot blow up formatting.
const maxAmountExponent = 64

// ParseAmount converts a decimal string to an exact non-negative amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, an
// optional sign and exponent notation. Zero is a valid paid amount, with or
// without a sign.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("-0")     -> 0, nil
//	ParseAmount("1e3")    -> 1000, nil
//	ParseAmount("-1")     -> ErrNegativeAmount
//	ParseAmount("1.2.3")  -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrMissingField
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if !isNumeric(s) {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// isNumeric accepts an optional sign, digits with at most one dot and an
// optional exponent with its own sign. NaN and Inf are rejected.
func isNumeric(s string) bool {
	s = strings.ToLower(s)
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	mantissa, exp, hasExp := strings.Cut(s, "e")
	digits, dots := 0, 0
	for _, r := range mantissa {
		switch {
		case r == '.':
			dots++
		case r >= '0' && r <= '9':
			digits++
		default:
			return false
		}
	}
	if digits == 0 || dots > 1 {
		return false
	}
	if !hasExp {
		return true
	}
	if exp != "" && (exp[0] == '+' || exp[0] == '-') {
		exp = exp[1:]
	}
	if exp == "" {
		return false
	}
	for _, r := range exp {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SumAmounts adds amounts exactly.
func SumAmounts(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
