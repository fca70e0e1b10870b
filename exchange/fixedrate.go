package exchange

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/token"
)

// FixedRateAdapter converts at a constant rate against a liquidity account
// (the "pool") that holds both currencies. It stands in for an AMM route in
// development deployments and tests.
type FixedRateAdapter struct {
	in   token.Ledger
	out  token.Ledger
	pool core.Address
	rate decimal.Decimal // settlement units per alternate unit
}

// NewFixedRateAdapter creates an adapter paying rate settlement units per unit of in.
func NewFixedRateAdapter(in, out token.Ledger, pool core.Address, rate decimal.Decimal) (*FixedRateAdapter, error) {
	if !rate.IsPositive() {
		return nil, fmt.Errorf("rate must be positive, got %s", rate)
	}
	if pool.IsZero() {
		return nil, fmt.Errorf("pool address is required")
	}
	return &FixedRateAdapter{in: in, out: out, pool: pool, rate: rate}, nil
}

func (a *FixedRateAdapter) TokenIn() string {
	return a.in.Symbol()
}

// QuoteOut returns floor(amountIn * rate).
func (a *FixedRateAdapter) QuoteOut(amountIn decimal.Decimal) (decimal.Decimal, error) {
	if amountIn.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative amount", core.ErrValidation)
	}
	return amountIn.Mul(a.rate).Truncate(0), nil
}

// QuoteIn returns ceil(amountOut / rate).
func (a *FixedRateAdapter) QuoteIn(amountOut decimal.Decimal) (decimal.Decimal, error) {
	if amountOut.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative amount", core.ErrValidation)
	}
	q, r := amountOut.QuoRem(a.rate, 0)
	if r.IsPositive() {
		q = q.Add(decimal.NewFromInt(1))
	}
	return q, nil
}

func (a *FixedRateAdapter) Execute(amountIn, minAmountOut decimal.Decimal, source, recipient core.Address) (decimal.Decimal, error) {
	out, err := a.QuoteOut(amountIn)
	if err != nil {
		return decimal.Zero, err
	}
	if out.LessThan(minAmountOut) {
		return decimal.Zero, fmt.Errorf("%w: %s %s yields %s, need %s",
			core.ErrSlippage, amountIn, a.in.Symbol(), out, minAmountOut)
	}

	if err := a.in.Transfer(source, a.pool, amountIn); err != nil {
		return decimal.Zero, fmt.Errorf("pull %s: %w", a.in.Symbol(), err)
	}
	if err := a.out.Transfer(a.pool, recipient, out); err != nil {
		return decimal.Zero, fmt.Errorf("pay %s: %w", a.out.Symbol(), err)
	}
	return out, nil
}
