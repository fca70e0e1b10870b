package auctionhouse

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

// CreateAuction opens an auction with the current default parameters.
func (h *House) CreateAuction(caller core.Address, metadata string) (uint64, error) {
	var id uint64
	err := h.call(func(f *callFrame) error {
		var err error
		id, err = h.createAuction(f, caller, h.defaults, metadata)
		return err
	})
	return id, err
}

// CreateCustomAuction opens an auction with explicit parameters.
func (h *House) CreateCustomAuction(caller core.Address, params core.AuctionParameters, metadata string) (uint64, error) {
	var id uint64
	err := h.call(func(f *callFrame) error {
		var err error
		id, err = h.createAuction(f, caller, params, metadata)
		return err
	})
	return id, err
}

// CreateAuctionByDeadline opens an auction that ends at deadline instead of
// after params.Duration.
func (h *House) CreateAuctionByDeadline(caller core.Address, params core.AuctionParameters, deadline time.Time, metadata string) (uint64, error) {
	var id uint64
	err := h.call(func(f *callFrame) error {
		if !deadline.After(f.now) {
			return fmt.Errorf("%w: deadline %s is not in the future", core.ErrInvalidParams, deadline.UTC().Format(time.RFC3339))
		}
		params.Duration = deadline.Sub(f.now)
		var err error
		id, err = h.createAuction(f, caller, params, metadata)
		return err
	})
	return id, err
}

func (h *House) createAuction(f *callFrame, caller core.Address, params core.AuctionParameters, metadata string) (uint64, error) {
	if err := h.requireUnpaused(); err != nil {
		return 0, err
	}
	if caller != h.owner && !h.managers[caller] {
		return 0, fmt.Errorf("%w: %s may not create auctions", core.ErrUnauthorized, caller)
	}
	if err := core.ValidateParameters(params); err != nil {
		return 0, err
	}
	if err := core.ValidateMetadata(metadata); err != nil {
		return 0, err
	}

	id := uint64(len(h.auctions)) + 1
	rec := &core.AuctionRecord{
		ID:        id,
		Amount:    decimal.Zero,
		StartTime: f.now,
		EndTime:   f.now.Add(params.Duration),
		Metadata:  metadata,
		Params:    params,
	}
	h.auctions = append(h.auctions, rec)
	f.track(func() { h.auctions = h.auctions[:len(h.auctions)-1] })

	f.emit(AuctionCreated{
		AuctionID: id,
		StartTime: rec.StartTime,
		EndTime:   rec.EndTime,
		Metadata:  metadata,
		Params:    params,
	})
	f.logf("INFO: Auction %d created by %s (reserve=%s, ends=%s)",
		id, caller, params.ReservePrice, rec.EndTime.UTC().Format(time.RFC3339))
	return id, nil
}
