package auctionhouse

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/exchange"
	"github.com/cloudx-io/auctionhouse/ledger"
)

// Auction returns a copy of the auction record.
func (h *House) Auction(id uint64) (core.AuctionRecord, error) {
	rec, err := h.record(id)
	if err != nil {
		return core.AuctionRecord{}, err
	}
	return *rec, nil
}

// CurrentAuctions returns the number of auctions ever created; it is also the latest id.
func (h *House) CurrentAuctions() uint64 {
	return uint64(len(h.auctions))
}

// IsAuctionLive reports whether auction id accepts bids now.
func (h *House) IsAuctionLive(id uint64) (bool, error) {
	rec, err := h.record(id)
	if err != nil {
		return false, err
	}
	return rec.IsLive(h.now()), nil
}

// AuctionRemainingTime returns the time left before auction id ends, or zero.
func (h *House) AuctionRemainingTime(id uint64) (time.Duration, error) {
	rec, err := h.record(id)
	if err != nil {
		return 0, err
	}
	return rec.RemainingTime(h.now()), nil
}

// AuctionBidByUser returns user's standing bid if they lead, else their pending return.
func (h *House) AuctionBidByUser(id uint64, user core.Address) (decimal.Decimal, error) {
	rec, err := h.record(id)
	if err != nil {
		return decimal.Zero, err
	}
	if rec.Bidder == user && !user.IsZero() {
		return rec.Amount, nil
	}
	return h.pending.Peek(id, user), nil
}

// MinimumTotalBid returns the smallest total the next bid on auction id must reach.
func (h *House) MinimumTotalBid(id uint64) (decimal.Decimal, error) {
	rec, err := h.record(id)
	if err != nil {
		return decimal.Zero, err
	}
	return core.MinimumTotalBid(rec), nil
}

// MinimumAdditionalBidForUser returns the new money user must bring for the minimum bid.
func (h *House) MinimumAdditionalBidForUser(id uint64, user core.Address) (decimal.Decimal, error) {
	rec, err := h.record(id)
	if err != nil {
		return decimal.Zero, err
	}
	return core.MinimumAdditionalBid(rec, h.pending.Peek(id, user), user), nil
}

// PendingReturns sums user's pending returns over the most recent
// MaxWithdrawAuctions auctions.
func (h *House) PendingReturns(user core.Address) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range h.recentAuctions() {
		total = total.Add(h.pending.Peek(rec.ID, user))
	}
	return total
}

// AuctionPendingReturns returns what user can withdraw from auction id.
func (h *House) AuctionPendingReturns(id uint64, user core.Address) (decimal.Decimal, error) {
	if _, err := h.record(id); err != nil {
		return decimal.Zero, err
	}
	return h.pending.Peek(id, user), nil
}

// PendingEntries lists every non-zero pending return.
func (h *House) PendingEntries() []ledger.Entry {
	return h.pending.Entries()
}

// ReservedFunds is the settlement balance the house must keep: unsettled bids plus pending returns.
func (h *House) ReservedFunds() decimal.Decimal {
	return h.reservedFunds()
}

// BidMetadata returns the metadata user attached to their bid on auction id.
func (h *House) BidMetadata(id uint64, user core.Address) (string, error) {
	if _, err := h.record(id); err != nil {
		return "", err
	}
	return h.bidMetadata[bidKey{auctionID: id, bidder: user}], nil
}

// ApprovalStatus returns what owner has allowed delegate to do on its behalf.
func (h *House) ApprovalStatus(owner, delegate core.Address) core.Permission {
	return h.approvals.Status(owner, delegate)
}

// IsAuctionManager reports whether addr may create auctions.
func (h *House) IsAuctionManager(addr core.Address) bool {
	return h.managers[addr]
}

// Owner returns the administering account.
func (h *House) Owner() core.Address { return h.owner }

// Account returns the house account that custodies bids.
func (h *House) Account() core.Address { return h.account }

// FeePercent returns the settlement fee in core.Precision units.
func (h *House) FeePercent() decimal.Decimal { return h.feePercent }

// FeeReceiver returns the account that collects fees.
func (h *House) FeeReceiver() core.Address { return h.feeReceiver }

// Defaults returns the parameters applied to auctions created without their own.
func (h *House) Defaults() core.AuctionParameters { return h.defaults }

// Paused reports whether the house is paused.
func (h *House) Paused() bool { return h.paused }

// TrustedRouter returns the directory router, or "" when none is set.
func (h *House) TrustedRouter() core.Address { return h.router.Address() }

// SettlementToken returns the symbol bids are denominated in.
func (h *House) SettlementToken() string { return h.settlement.Symbol() }

// SupportedTokens lists the alternate currencies with an adapter.
func (h *House) SupportedTokens() []string {
	symbols := make([]string, 0, len(h.adapters))
	for s := range h.adapters {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

func (h *House) adapter(symbol string) (exchange.Adapter, error) {
	a, ok := h.adapters[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedToken, symbol)
	}
	return a, nil
}

// QuoteOut prices amountIn of symbol in settlement units.
func (h *House) QuoteOut(symbol string, amountIn decimal.Decimal) (decimal.Decimal, error) {
	a, err := h.adapter(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return a.QuoteOut(amountIn)
}

// QuoteIn prices amountOut settlement units in symbol.
func (h *House) QuoteIn(symbol string, amountOut decimal.Decimal) (decimal.Decimal, error) {
	a, err := h.adapter(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return a.QuoteIn(amountOut)
}

// SafeQuoteIn returns an amount of symbol whose quoted output covers target.
func (h *House) SafeQuoteIn(symbol string, target decimal.Decimal) (decimal.Decimal, error) {
	a, err := h.adapter(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return exchange.SafeQuoteIn(a, target)
}
