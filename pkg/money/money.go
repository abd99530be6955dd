// Package money provides the currency rounding used by billing. All derived
// amounts pass through Round2 so tax math stays deterministic across
// platforms.
package money

import "github.com/shopspring/decimal"

// Round2 rounds v to two decimal places, half away from zero.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Mul multiplies a by b and rounds the result to two decimal places.
func Mul(a, b float64) float64 {
	f, _ := decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).Round(2).Float64()
	return f
}

// Clamp returns v, or zero when v is negative.
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
