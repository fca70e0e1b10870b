package core

import (
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestApplyPercentage(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		percent  decimal.Decimal
		expected string
	}{
		{"five percent", "1000", PercentOf(5), "50"},
		{"floors", "119", PercentOf(5), "5"},
		{"hundred percent", "777", Precision, "777"},
		{"zero", "777", decimal.Zero, "0"},
		{"fractional percent", "1000000", decimal.New(25, 6), "2500"}, // 0.25%
		{"large amounts stay exact", "123456789012345678901234567890", PercentOf(10), "12345678901234567890123456789"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyPercentage(decimal.RequireFromString(tt.amount), tt.percent)
			check.Equal(t, tt.expected, got.String())
		})
	}
}

func TestIsWholeAmount(t *testing.T) {
	check.True(t, IsWholeAmount(decimal.Zero))
	check.True(t, IsWholeAmount(decimal.RequireFromString("100.000")))
	check.False(t, IsWholeAmount(decimal.RequireFromString("0.1")))
	check.False(t, IsWholeAmount(decimal.NewFromInt(-5)))
}

func TestIsValidPercentage(t *testing.T) {
	check.True(t, IsValidPercentage(decimal.Zero))
	check.True(t, IsValidPercentage(Precision))
	check.False(t, IsValidPercentage(Precision.Add(decimal.NewFromInt(1))))
	check.False(t, IsValidPercentage(decimal.NewFromInt(-1)))
	check.Equal(t, "500000000", PercentOf(5).String())
}
