package ledger

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	errNotInteger = errors.New("amount must be an integer")
	errNegative   = errors.New("amount must not be negative")
)

// ParseAmount parses a points or cash field. Amounts are base-10 integers
// with an optional sign and no exponent or fraction, and must be
// non-negative; decimal keeps sums exact however many refunds an order has.
func ParseAmount(s string) (decimal.Decimal, error) {
	if !isIntegerText(s) {
		return decimal.Zero, errNotInteger
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsInteger() {
		return decimal.Zero, errNotInteger
	}
	if d.IsNegative() {
		return decimal.Zero, errNegative
	}
	return d, nil
}

func isIntegerText(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
