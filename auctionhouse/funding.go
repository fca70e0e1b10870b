package auctionhouse

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/exchange"
	"github.com/cloudx-io/auctionhouse/token"
)

// Treasury is the house's account on the settlement ledger.
type Treasury struct {
	Ledger  token.Ledger
	Account core.Address
}

// FundingSource brings new settlement currency into the treasury for a bid.
type FundingSource interface {
	// Fund moves at least shortfall from payer into the treasury and returns
	// the amount that arrived. A non-positive shortfall is a no-op.
	Fund(t Treasury, payer core.Address, shortfall decimal.Decimal) (decimal.Decimal, error)
}

// DirectTransfer pulls the shortfall from the payer in the settlement currency.
type DirectTransfer struct{}

func (DirectTransfer) Fund(t Treasury, payer core.Address, shortfall decimal.Decimal) (decimal.Decimal, error) {
	if !shortfall.IsPositive() {
		return decimal.Zero, nil
	}
	if err := t.Ledger.Transfer(payer, t.Account, shortfall); err != nil {
		return decimal.Zero, fmt.Errorf("pull %s %s from %s: %w", shortfall, t.Ledger.Symbol(), payer, err)
	}
	return shortfall, nil
}

// ExchangeFunding converts AmountIn of an alternate currency through Adapter.
// The treasury balance delta is measured, so an adapter that over-reports is rejected.
type ExchangeFunding struct {
	Adapter  exchange.Adapter
	AmountIn decimal.Decimal
}

func (e ExchangeFunding) Fund(t Treasury, payer core.Address, shortfall decimal.Decimal) (decimal.Decimal, error) {
	if !shortfall.IsPositive() {
		return decimal.Zero, nil
	}
	if !e.AmountIn.IsPositive() || !core.IsWholeAmount(e.AmountIn) {
		return decimal.Zero, fmt.Errorf("%w: amount in %s", core.ErrInvalidAmount, e.AmountIn)
	}

	before := t.Ledger.BalanceOf(t.Account)
	out, err := e.Adapter.Execute(e.AmountIn, shortfall, payer, t.Account)
	if err != nil {
		if errors.Is(err, core.ErrSlippage) {
			return decimal.Zero, fmt.Errorf("exchange %s: %w", e.Adapter.TokenIn(), err)
		}
		return decimal.Zero, fmt.Errorf("%w: exchange %s: %w", core.ErrTransfer, e.Adapter.TokenIn(), err)
	}
	if out.LessThan(shortfall) {
		return decimal.Zero, fmt.Errorf("%w: exchange delivered %s, need %s", core.ErrSlippage, out, shortfall)
	}
	if delta := t.Ledger.BalanceOf(t.Account).Sub(before); delta.LessThan(out) {
		return decimal.Zero, fmt.Errorf("%w: exchange reported %s but treasury received %s", core.ErrTransfer, out, delta)
	}
	return out, nil
}
