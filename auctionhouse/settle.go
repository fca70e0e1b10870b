package auctionhouse

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

// SettlementHook is notified after an auction with a winner settles.
// Failures are logged and swallowed; the hook's own ledger effects are rolled back.
type SettlementHook interface {
	OnSettled(s core.Settlement) error
}

// SettlementHookFunc adapts a function to SettlementHook.
type SettlementHookFunc func(core.Settlement) error

func (fn SettlementHookFunc) OnSettled(s core.Settlement) error { return fn(s) }

// SettleAuction closes an expired auction, paying the fee and proceeds. Anyone may call it.
func (h *House) SettleAuction(caller core.Address, id uint64) error {
	return h.call(func(f *callFrame) error {
		if err := h.requireUnpaused(); err != nil {
			return err
		}
		rec, err := h.record(id)
		if err != nil {
			return err
		}
		if rec.Settled {
			return fmt.Errorf("%w: auction %d", core.ErrAuctionSettled, id)
		}
		if !rec.IsExpired(f.now) {
			return fmt.Errorf("%w: auction %d ends %s", core.ErrNotYetExpired, id, rec.EndTime.UTC().Format(time.RFC3339))
		}
		f.logf("INFO: Auction %d settlement requested by %s", id, caller)
		return h.settle(f, rec)
	})
}

// settle marks rec settled and distributes the winning amount.
func (h *House) settle(f *callFrame, rec *core.AuctionRecord) error {
	h.mutate(f, rec)
	rec.Settled = true

	fee, proceeds := core.SplitFee(rec.Amount, h.feePercent)
	recipient := rec.Params.Beneficiary
	if recipient.IsZero() {
		recipient = h.owner
	}
	s := core.Settlement{
		AuctionID: rec.ID,
		Winner:    rec.Bidder,
		Amount:    rec.Amount,
		Fee:       fee,
		Proceeds:  proceeds,
		Recipient: recipient,
		SettledAt: f.now,
	}

	if err := h.pay(h.feeReceiver, fee); err != nil {
		return err
	}
	if err := h.pay(recipient, proceeds); err != nil {
		return err
	}

	f.emit(AuctionSettled{
		AuctionID: s.AuctionID,
		Winner:    s.Winner,
		Amount:    s.Amount,
		Fee:       s.Fee,
		Proceeds:  s.Proceeds,
		Recipient: s.Recipient,
		SettledAt: s.SettledAt,
	})
	if rec.HasBid() {
		f.logf("INFO: Auction %d settled: winner=%s amount=%s fee=%s", rec.ID, rec.Bidder, rec.Amount, fee)
		if hook := h.hook; hook != nil {
			f.after = append(f.after, func() { h.runHook(hook, s) })
		}
	} else {
		f.logf("INFO: Auction %d settled without bids", rec.ID)
	}
	return nil
}

// runHook calls hook inside its own ledger savepoints so a failing hook cannot
// leave partial transfers behind.
func (h *House) runHook(hook SettlementHook, s core.Settlement) {
	savepoints := h.checkpoint()
	err := callHook(hook, s)
	if err != nil {
		log.Printf("WARNING: Settlement hook failed for auction %d: %v", s.AuctionID, err)
		for _, sp := range savepoints {
			sp.Revert()
		}
		return
	}
	for _, sp := range savepoints {
		sp.Release()
	}
}

func callHook(hook SettlementHook, s core.Settlement) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panic: %v", r)
		}
	}()
	return hook.OnSettled(s)
}

// NullifyAuction is the owner's emergency exit: the standing bid returns to
// the bidder's pending balance, no fee is taken and the auction ends settled.
// It stays available while the house is paused.
func (h *House) NullifyAuction(caller core.Address, id uint64) error {
	return h.call(func(f *callFrame) error {
		if err := h.requireOwner(caller); err != nil {
			return err
		}
		rec, err := h.record(id)
		if err != nil {
			return err
		}
		if rec.Settled {
			return fmt.Errorf("%w: auction %d", core.ErrAuctionSettled, id)
		}

		bidder, amount := rec.Bidder, rec.Amount
		if rec.HasBid() {
			h.credit(f, id, bidder, amount)
		}
		h.mutate(f, rec)
		rec.Amount = decimal.Zero
		rec.Bidder = ""
		rec.EndTime = f.now.Add(-time.Second)
		rec.Settled = true

		f.emit(AuctionNullified{AuctionID: id, Bidder: bidder, Amount: amount})
		f.logf("INFO: Auction %d nullified by owner; %s returned to %q", id, amount, bidder)
		return nil
	})
}
