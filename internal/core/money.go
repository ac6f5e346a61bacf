// Package core provides amount parsing for user-entered values.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits kept for amounts.
const AmountScale = 2

// currencyPrefixes are stripped before parsing so pasted values still work.
var currencyPrefixes = []string{"₹", "Rs.", "Rs", "INR"}

// ParseAmount converts a user-entered amount to a decimal rounded to two
// places. Thousands separators and a leading currency marker are accepted:
//
//	ParseAmount("500")       -> 500.00
//	ParseAmount("1,250.5")   -> 1250.50
//	ParseAmount("₹ 99.999")  -> 100.00
//
// Sign is not checked; amounts are non-negative by convention only.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	for _, p := range currencyPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(strings.TrimPrefix(s, p))
			break
		}
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(AmountScale), nil
}
