// Package exchange defines how the house converts an alternate currency into
// the settlement currency. Pricing is opaque: adapters quote and execute,
// and the house only trusts what execution actually delivered.
package exchange

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

// MaxSafeQuoteIterations caps how many times SafeQuoteIn inflates its estimate.
const MaxSafeQuoteIterations = 10

// safeQuoteStepBps is the per-iteration inflation of amount_in, in basis points.
const safeQuoteStepBps = 10

// Quoter prices conversions without moving funds.
type Quoter interface {
	// QuoteOut returns the settlement amount received for amountIn.
	QuoteOut(amountIn decimal.Decimal) (decimal.Decimal, error)
	// QuoteIn returns the alternate amount needed to receive amountOut.
	QuoteIn(amountOut decimal.Decimal) (decimal.Decimal, error)
}

// Adapter converts one alternate currency into the settlement currency.
type Adapter interface {
	Quoter

	// TokenIn names the alternate currency the adapter accepts.
	TokenIn() string

	// Execute takes amountIn of TokenIn from source and delivers at least
	// minAmountOut settlement units to recipient, returning the amount delivered.
	Execute(amountIn, minAmountOut decimal.Decimal, source, recipient core.Address) (decimal.Decimal, error)
}

// SafeQuoteIn returns an amount_in whose quoted output covers target.
// It starts from QuoteIn and inflates by 0.1% (at least one unit) per step,
// giving up after MaxSafeQuoteIterations.
func SafeQuoteIn(q Quoter, target decimal.Decimal) (decimal.Decimal, error) {
	amountIn, err := q.QuoteIn(target)
	if err != nil {
		return decimal.Zero, fmt.Errorf("quote in: %w", err)
	}

	for i := 0; i < MaxSafeQuoteIterations; i++ {
		out, err := q.QuoteOut(amountIn)
		if err != nil {
			return decimal.Zero, fmt.Errorf("quote out: %w", err)
		}
		if out.GreaterThanOrEqual(target) {
			return amountIn, nil
		}

		step, _ := amountIn.Mul(decimal.NewFromInt(safeQuoteStepBps)).QuoRem(decimal.NewFromInt(10_000), 0)
		if step.LessThan(decimal.NewFromInt(1)) {
			step = decimal.NewFromInt(1)
		}
		amountIn = amountIn.Add(step)
	}

	return decimal.Zero, fmt.Errorf("%w: no safe input found for %s after %d steps",
		core.ErrSlippage, target, MaxSafeQuoteIterations)
}
