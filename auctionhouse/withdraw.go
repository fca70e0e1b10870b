package auctionhouse

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

// Withdraw pays out the account's pending return for a settled auction.
func (h *House) Withdraw(caller core.Address, id uint64, onBehalfOf core.Address) (decimal.Decimal, error) {
	amount := decimal.Zero
	err := h.call(func(f *callFrame) error {
		if err := h.requireUnpaused(); err != nil {
			return err
		}
		account, err := h.resolve(caller, onBehalfOf, core.PermissionWithdrawOnly)
		if err != nil {
			return err
		}
		rec, err := h.record(id)
		if err != nil {
			return err
		}
		if !withdrawable(rec, f) {
			return fmt.Errorf("%w: auction %d is not settled", core.ErrAuctionLive, id)
		}

		amount = h.debitAll(f, id, account)
		if amount.IsZero() {
			return fmt.Errorf("%w: auction %d, account %s", core.ErrNothingPending, id, account)
		}
		if err := h.pay(account, amount); err != nil {
			return err
		}

		f.emit(Withdrawn{AuctionID: id, Account: account, Caller: caller, Amount: amount})
		f.logf("INFO: Withdrawal of %s from auction %d to %s (caller=%s)", amount, id, account, caller)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// WithdrawMultiple pays out the account's pending returns across ids in one
// transfer. Unknown or unsettled auctions are skipped; the call fails only if
// none was eligible or the total is zero.
func (h *House) WithdrawMultiple(caller core.Address, ids []uint64, onBehalfOf core.Address) (decimal.Decimal, error) {
	total := decimal.Zero
	err := h.call(func(f *callFrame) error {
		if err := h.requireUnpaused(); err != nil {
			return err
		}
		account, err := h.resolve(caller, onBehalfOf, core.PermissionWithdrawOnly)
		if err != nil {
			return err
		}

		eligible := 0
		for _, id := range ids {
			rec, err := h.record(id)
			if err != nil || !withdrawable(rec, f) {
				continue
			}
			eligible++

			amount := h.debitAll(f, id, account)
			if amount.IsZero() {
				continue
			}
			total = total.Add(amount)
			f.emit(Withdrawn{AuctionID: id, Account: account, Caller: caller, Amount: amount})
		}

		if eligible == 0 {
			return fmt.Errorf("%w: no settled auction among %v", core.ErrAuctionLive, ids)
		}
		if total.IsZero() {
			return fmt.Errorf("%w: account %s", core.ErrNothingPending, account)
		}
		if err := h.pay(account, total); err != nil {
			return err
		}
		f.logf("INFO: Batch withdrawal of %s from %d auctions to %s (caller=%s)", total, eligible, account, caller)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// WithdrawStale lets the owner push unclaimed pending returns back to users,
// charging the fee percentage as a penalty. Only the most recent
// MaxWithdrawAuctions auctions are swept, and only settled ones.
func (h *House) WithdrawStale(caller core.Address, users []core.Address) (decimal.Decimal, error) {
	swept := decimal.Zero
	err := h.call(func(f *callFrame) error {
		if err := h.requireOwner(caller); err != nil {
			return err
		}
		if err := h.requireUnpaused(); err != nil {
			return err
		}

		for _, user := range users {
			userTotal, penaltyTotal := decimal.Zero, decimal.Zero
			for _, rec := range h.recentAuctions() {
				if !withdrawable(rec, f) {
					continue
				}
				amount := h.debitAll(f, rec.ID, user)
				if amount.IsZero() {
					continue
				}
				penalty := core.ApplyPercentage(amount, h.feePercent)
				userTotal = userTotal.Add(amount)
				penaltyTotal = penaltyTotal.Add(penalty)
				f.emit(StaleWithdrawn{AuctionID: rec.ID, Account: user, Amount: amount, Penalty: penalty})
			}
			if userTotal.IsZero() {
				continue
			}
			if err := h.pay(h.feeReceiver, penaltyTotal); err != nil {
				return err
			}
			if err := h.pay(user, userTotal.Sub(penaltyTotal)); err != nil {
				return err
			}
			swept = swept.Add(userTotal)
			f.logf("INFO: Swept %s stale returns for %s (penalty=%s)", userTotal, user, penaltyTotal)
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return swept, nil
}

// recentAuctions returns up to MaxWithdrawAuctions records, newest first.
func (h *House) recentAuctions() []*core.AuctionRecord {
	n := len(h.auctions)
	lo := n - MaxWithdrawAuctions
	if lo < 0 {
		lo = 0
	}
	recent := make([]*core.AuctionRecord, 0, n-lo)
	for i := n - 1; i >= lo; i-- {
		recent = append(recent, h.auctions[i])
	}
	return recent
}

func withdrawable(rec *core.AuctionRecord, f *callFrame) bool {
	return rec.Settled && !rec.IsLive(f.now)
}
