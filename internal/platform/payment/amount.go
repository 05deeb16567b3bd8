// Package payment adapts the PayPal, Stripe and Razorpay APIs to the
// provider-neutral payment.Gateway used by the top-up flow.
package payment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "ISK": true,
	"JPY": true, "KMF": true, "KRW": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

// Exponent returns the number of minor-unit digits of a currency
func Exponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// ToMinorUnits converts a provider decimal string such as "10.50" to minor
// units. Values with more precision than the currency allows are rejected.
func ToMinorUnits(value, currency string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("invalid amount %q: negative", value)
	}

	minor := d.Shift(Exponent(currency))
	if !minor.IsInteger() {
		return 0, fmt.Errorf("invalid amount %q: too many decimal places for %s", value, currency)
	}
	return minor.IntPart(), nil
}

// FromMinorUnits renders minor units as the fixed-point string providers expect
func FromMinorUnits(amount int64, currency string) string {
	exp := Exponent(currency)
	return decimal.New(amount, -exp).StringFixed(exp)
}
