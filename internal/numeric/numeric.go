// Package numeric holds the numeric policy shared by the envelope geometry:
// guarded division that never fails and display rounding.
package numeric

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Epsilon is the floor substituted for degenerate denominators
const Epsilon = 1e-9

// SafeDivide returns numerator / max(denominator, epsilon).
// Degenerate geometry degrades to very large coordinates instead of an error.
func SafeDivide(numerator, denominator, epsilon float64) float64 {
	return numerator / math.Max(denominator, epsilon)
}

// Round rounds v to the given number of decimal places. It works on the
// exact binary value of v and rounds exact ties to even, so 2.675 (stored as
// 2.67499...) becomes 2.67 and 0.125 becomes 0.12.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return exactDecimal(v).RoundBank(places).InexactFloat64()
}

// exactDecimal converts a finite float64 to its exact decimal expansion.
// The denominator of a float is 2^k, so v = num*5^k / 10^k.
func exactDecimal(v float64) decimal.Decimal {
	r := new(big.Rat).SetFloat64(v)
	k := r.Denom().BitLen() - 1
	scaled := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(k)), nil)
	scaled.Mul(scaled, r.Num())
	return decimal.NewFromBigInt(scaled, int32(-k))
}
