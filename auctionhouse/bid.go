package auctionhouse

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

// CreateBid sets the caller's (or onBehalfOf's) standing bid to total,
// pulling whatever the account's existing commitment does not cover.
func (h *House) CreateBid(caller core.Address, id uint64, total decimal.Decimal, metadata string, onBehalfOf core.Address) error {
	return h.call(func(f *callFrame) error {
		return h.placeBid(f, bidRequest{
			caller:     caller,
			onBehalfOf: onBehalfOf,
			auctionID:  id,
			total:      total,
			metadata:   metadata,
			source:     DirectTransfer{},
		})
	})
}

// CreateBidWithAlternateToken bids at least minTotal, covering the shortfall by
// converting amountIn of symbol. The standing bid becomes the account's
// existing commitment plus everything the conversion delivered.
func (h *House) CreateBidWithAlternateToken(caller core.Address, id uint64, symbol string, amountIn, minTotal decimal.Decimal, metadata string, onBehalfOf core.Address) error {
	return h.call(func(f *callFrame) error {
		adapter, err := h.adapter(symbol)
		if err != nil {
			return err
		}
		return h.placeBid(f, bidRequest{
			caller:     caller,
			onBehalfOf: onBehalfOf,
			auctionID:  id,
			total:      minTotal,
			metadata:   metadata,
			source:     ExchangeFunding{Adapter: adapter, AmountIn: amountIn},
			keepExcess: true,
		})
	})
}

// UpdateBidMetadata replaces the bid metadata an account attached to an auction.
func (h *House) UpdateBidMetadata(caller core.Address, id uint64, metadata string, onBehalfOf core.Address) error {
	return h.call(func(f *callFrame) error {
		if err := h.requireUnpaused(); err != nil {
			return err
		}
		if _, err := h.record(id); err != nil {
			return err
		}
		bidder, err := h.resolve(caller, onBehalfOf, core.PermissionBidOnly)
		if err != nil {
			return err
		}
		if err := core.ValidateMetadata(metadata); err != nil {
			return err
		}
		h.setBidMetadata(f, id, bidder, metadata)
		f.emit(BidMetadataUpdated{AuctionID: id, Bidder: bidder, Metadata: metadata})
		return nil
	})
}

type bidRequest struct {
	caller     core.Address
	onBehalfOf core.Address
	auctionID  uint64
	total      decimal.Decimal
	metadata   string
	source     FundingSource
	// keepExcess adds funding beyond the shortfall to the standing bid.
	keepExcess bool
}

func (h *House) placeBid(f *callFrame, req bidRequest) error {
	if err := h.requireUnpaused(); err != nil {
		return err
	}
	rec, err := h.record(req.auctionID)
	if err != nil {
		return err
	}
	if rec.Settled {
		return fmt.Errorf("%w: auction %d", core.ErrAuctionSettled, rec.ID)
	}
	if !rec.IsLive(f.now) {
		return fmt.Errorf("%w: auction %d ended %s", core.ErrAuctionExpired, rec.ID, rec.EndTime.UTC().Format(time.RFC3339))
	}
	bidder, err := h.resolve(req.caller, req.onBehalfOf, core.PermissionBidOnly)
	if err != nil {
		return err
	}
	if err := core.ValidateMetadata(req.metadata); err != nil {
		return err
	}
	if !req.total.IsPositive() {
		return fmt.Errorf("%w: bid %s", core.ErrInvalidAmount, req.total)
	}
	if err := core.CheckBid(rec, req.total); err != nil {
		return err
	}

	// Effects. The account's commitment is netted first, then the previous
	// high bidder (if someone else) is refunded into the ledger.
	ownRaise := rec.Bidder == bidder
	available := core.AvailableFunds(rec, h.debitAll(f, rec.ID, bidder), bidder)
	if excess := available.Sub(req.total); excess.IsPositive() {
		h.credit(f, rec.ID, bidder, excess)
	}
	if rec.HasBid() && !ownRaise {
		h.credit(f, rec.ID, rec.Bidder, rec.Amount)
	}

	h.mutate(f, rec)
	rec.Amount = req.total
	rec.Bidder = bidder
	endTime, extended := core.ExtendedEndTime(rec, f.now)
	rec.EndTime = endTime
	if req.metadata != "" {
		h.setBidMetadata(f, rec.ID, bidder, req.metadata)
	}

	// Interactions.
	shortfall := req.total.Sub(available)
	received, err := req.source.Fund(h.treasury(), bidder, shortfall)
	if err != nil {
		return err
	}
	if surplus := received.Sub(shortfall); req.keepExcess && surplus.IsPositive() {
		rec.Amount = rec.Amount.Add(surplus)
	}

	f.emit(BidAccepted{
		AuctionID: rec.ID,
		Bidder:    bidder,
		Caller:    req.caller,
		Amount:    rec.Amount,
		Extended:  extended,
	})
	if extended {
		f.emit(AuctionExtended{AuctionID: rec.ID, EndTime: rec.EndTime})
		f.logf("INFO: Auction %d extended to %s", rec.ID, rec.EndTime.UTC().Format(time.RFC3339))
	}
	f.logf("INFO: Auction %d bid %s by %s (caller=%s)", rec.ID, rec.Amount, bidder, req.caller)

	if core.InstabuyReached(&rec.Params, rec.Amount) {
		f.logf("INFO: Auction %d reached instabuy price %s", rec.ID, rec.Params.InstabuyPrice)
		return h.settle(f, rec)
	}
	return nil
}

func (h *House) setBidMetadata(f *callFrame, id uint64, bidder core.Address, metadata string) {
	key := bidKey{auctionID: id, bidder: bidder}
	old, existed := h.bidMetadata[key]
	h.bidMetadata[key] = metadata
	f.track(func() {
		if existed {
			h.bidMetadata[key] = old
		} else {
			delete(h.bidMetadata, key)
		}
	})
}

func (h *House) treasury() Treasury {
	return Treasury{Ledger: h.settlement, Account: h.account}
}
