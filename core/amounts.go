package core

import (
	"github.com/shopspring/decimal"
)

// Precision is the fixed-point denominator for percentages: Precision == 100%.
var Precision = decimal.New(100, 8)

// MaxMetadataLength is the longest accepted content hash (a base58 CIDv0 is 46 bytes).
const MaxMetadataLength = 46

// ApplyPercentage returns floor(amount * percentage / Precision).
// QuoRem keeps the division exact; Div would round at DivisionPrecision digits.
func ApplyPercentage(amount, percentage decimal.Decimal) decimal.Decimal {
	q, _ := amount.Mul(percentage).QuoRem(Precision, 0)
	return q
}

// IsWholeAmount reports whether d is a non-negative integer number of base units.
func IsWholeAmount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Truncate(0))
}

// IsValidPercentage reports whether p is a whole number within [0, Precision].
func IsValidPercentage(p decimal.Decimal) bool {
	return IsWholeAmount(p) && p.LessThanOrEqual(Precision)
}

// PercentOf expresses a human percentage (e.g. 5 for 5%) in Precision units.
func PercentOf(percent int64) decimal.Decimal {
	return decimal.New(percent, 8)
}
