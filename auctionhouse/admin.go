package auctionhouse

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/exchange"
	"github.com/cloudx-io/auctionhouse/permissions"
)

// SetApprovedCaller records owner's grant to delegate. PermissionNone revokes it.
func (h *House) SetApprovedCaller(owner, delegate core.Address, status core.Permission) error {
	return h.call(func(f *callFrame) error {
		if owner.IsZero() || delegate.IsZero() {
			return fmt.Errorf("%w: owner and delegate are required", core.ErrValidation)
		}
		if !status.Valid() {
			return fmt.Errorf("%w: permission %d", core.ErrValidation, status)
		}
		prev := h.approvals.Status(owner, delegate)
		h.approvals.SetApproval(owner, delegate, status)
		f.track(func() { h.approvals.SetApproval(owner, delegate, prev) })

		f.emit(ApprovalChanged{Owner: owner, Delegate: delegate, Status: status})
		f.logf("INFO: %s granted %s to %s", owner, status, delegate)
		return nil
	})
}

// admin runs an owner-only setter.
func (h *House) admin(caller core.Address, fn func(f *callFrame) error) error {
	return h.call(func(f *callFrame) error {
		if err := h.requireOwner(caller); err != nil {
			return err
		}
		return fn(f)
	})
}

// set assigns v to *field and registers the undo.
func set[T any](f *callFrame, field *T, v T) {
	old := *field
	*field = v
	f.track(func() { *field = old })
}

// SetFeeReceiver sets the account that collects fees and stale-withdrawal penalties.
func (h *House) SetFeeReceiver(caller, receiver core.Address) error {
	return h.admin(caller, func(f *callFrame) error {
		if receiver.IsZero() {
			return fmt.Errorf("%w: fee receiver is required", core.ErrValidation)
		}
		set(f, &h.feeReceiver, receiver)
		f.emit(FeeReceiverChanged{FeeReceiver: receiver})
		f.logf("INFO: Fee receiver set to %s", receiver)
		return nil
	})
}

// SetFeePercent sets the settlement fee in core.Precision units.
func (h *House) SetFeePercent(caller core.Address, percent decimal.Decimal) error {
	return h.admin(caller, func(f *callFrame) error {
		if !core.IsValidPercentage(percent) {
			return fmt.Errorf("%w: fee percent %s exceeds %s", core.ErrValidation, percent, core.Precision)
		}
		set(f, &h.feePercent, percent)
		f.emit(FeePercentChanged{FeePercent: percent})
		f.logf("INFO: Fee percent set to %s", percent)
		return nil
	})
}

// SetDefaultTimeBuffer sets the anti-sniping window for auctions created with defaults.
func (h *House) SetDefaultTimeBuffer(caller core.Address, buffer time.Duration) error {
	return h.admin(caller, func(f *callFrame) error {
		if buffer < 0 {
			return fmt.Errorf("%w: time buffer %s", core.ErrValidation, buffer)
		}
		set(f, &h.defaults.TimeBuffer, buffer)
		f.emit(DefaultTimeBufferChanged{TimeBuffer: buffer})
		return nil
	})
}

// SetDefaultReservePrice sets the default reserve, a non-negative whole amount.
func (h *House) SetDefaultReservePrice(caller core.Address, reserve decimal.Decimal) error {
	return h.admin(caller, func(f *callFrame) error {
		if !core.IsWholeAmount(reserve) {
			return fmt.Errorf("%w: reserve %s", core.ErrInvalidAmount, reserve)
		}
		if h.defaults.InstabuyPrice.IsPositive() && h.defaults.InstabuyPrice.LessThan(reserve) {
			return fmt.Errorf("%w: reserve above default instabuy price", core.ErrInvalidParams)
		}
		set(f, &h.defaults.ReservePrice, reserve)
		f.emit(DefaultReservePriceChanged{ReservePrice: reserve})
		return nil
	})
}

// SetDefaultMinBidIncrement sets the default raise in core.Precision units.
func (h *House) SetDefaultMinBidIncrement(caller core.Address, percent decimal.Decimal) error {
	return h.admin(caller, func(f *callFrame) error {
		if !core.IsValidPercentage(percent) {
			return fmt.Errorf("%w: min bid increment %s exceeds %s", core.ErrValidation, percent, core.Precision)
		}
		set(f, &h.defaults.MinBidIncrementPercentage, percent)
		f.emit(DefaultMinBidIncrementChanged{MinBidIncrementPercentage: percent})
		return nil
	})
}

// SetDefaultDuration sets the default auction length. It must be positive.
func (h *House) SetDefaultDuration(caller core.Address, duration time.Duration) error {
	return h.admin(caller, func(f *callFrame) error {
		if duration <= 0 {
			return fmt.Errorf("%w: duration %s", core.ErrValidation, duration)
		}
		set(f, &h.defaults.Duration, duration)
		f.emit(DefaultDurationChanged{Duration: duration})
		return nil
	})
}

// SetAuctionManager allows or disallows manager to create auctions.
func (h *House) SetAuctionManager(caller, manager core.Address, enabled bool) error {
	return h.admin(caller, func(f *callFrame) error {
		if manager.IsZero() {
			return fmt.Errorf("%w: manager is required", core.ErrValidation)
		}
		was := h.managers[manager]
		if enabled {
			h.managers[manager] = true
		} else {
			delete(h.managers, manager)
		}
		f.track(func() {
			if was {
				h.managers[manager] = true
			} else {
				delete(h.managers, manager)
			}
		})
		f.emit(AuctionManagerChanged{Manager: manager, Enabled: enabled})
		f.logf("INFO: Auction manager %s enabled=%t", manager, enabled)
		return nil
	})
}

// SetTrustedRouter designates the directory router that may act for any
// account. The empty address removes it.
func (h *House) SetTrustedRouter(caller, router core.Address) error {
	return h.admin(caller, func(f *callFrame) error {
		set(f, &h.router, permissions.Trust(router))
		f.emit(TrustedRouterChanged{Router: router})
		f.logf("INFO: Trusted router set to %q", router)
		return nil
	})
}

// SetTokenSupport enables alternate-currency bids in symbol through adapter.
// A nil adapter disables the currency.
func (h *House) SetTokenSupport(caller core.Address, symbol string, adapter exchange.Adapter) error {
	return h.admin(caller, func(f *callFrame) error {
		if symbol == "" || symbol == h.settlement.Symbol() {
			return fmt.Errorf("%w: cannot route %q through an exchange", core.ErrValidation, symbol)
		}
		if adapter != nil && adapter.TokenIn() != symbol {
			return fmt.Errorf("%w: adapter accepts %s, not %s", core.ErrValidation, adapter.TokenIn(), symbol)
		}
		if _, ok := h.ledgers[symbol]; adapter != nil && !ok {
			return fmt.Errorf("%w: no ledger registered for %s", core.ErrUnsupportedToken, symbol)
		}

		old, existed := h.adapters[symbol]
		if adapter != nil {
			h.adapters[symbol] = adapter
		} else {
			delete(h.adapters, symbol)
		}
		f.track(func() {
			if existed {
				h.adapters[symbol] = old
			} else {
				delete(h.adapters, symbol)
			}
		})
		f.emit(TokenSupportChanged{Token: symbol, Supported: adapter != nil})
		f.logf("INFO: Token %s supported=%t", symbol, adapter != nil)
		return nil
	})
}

// SetSettlementHook installs the hook called after each settlement with a winner. nil removes it.
func (h *House) SetSettlementHook(caller core.Address, hook SettlementHook) error {
	return h.admin(caller, func(f *callFrame) error {
		set(f, &h.hook, hook)
		f.emit(SettlementHookChanged{Enabled: hook != nil})
		return nil
	})
}

// Pause stops creation, bidding, settlement and withdrawals. Nullification stays available.
func (h *House) Pause(caller core.Address) error {
	return h.setPaused(caller, true)
}

// Unpause lifts Pause.
func (h *House) Unpause(caller core.Address) error {
	return h.setPaused(caller, false)
}

func (h *House) setPaused(caller core.Address, paused bool) error {
	return h.admin(caller, func(f *callFrame) error {
		if h.paused == paused {
			return fmt.Errorf("%w: paused is already %t", core.ErrInvalidState, paused)
		}
		set(f, &h.paused, paused)
		f.emit(PauseChanged{Paused: paused})
		f.logf("INFO: Auction house paused=%t", paused)
		return nil
	})
}

// RecoverTokens moves stray funds out of the house account. For the
// settlement currency it refuses to touch the balance backing standing bids
// and pending returns.
func (h *House) RecoverTokens(caller core.Address, symbol string, amount decimal.Decimal, to core.Address) error {
	return h.admin(caller, func(f *callFrame) error {
		l, ok := h.ledgers[symbol]
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrUnsupportedToken, symbol)
		}
		if !amount.IsPositive() || !core.IsWholeAmount(amount) {
			return fmt.Errorf("%w: %s", core.ErrInvalidAmount, amount)
		}
		if to.IsZero() {
			to = h.owner
		}
		if symbol == h.settlement.Symbol() {
			reserved := h.reservedFunds()
			if l.BalanceOf(h.account).Sub(amount).LessThan(reserved) {
				return fmt.Errorf("%w: recovering %s would dip below reserved %s", core.ErrInvalidState, amount, reserved)
			}
		}
		if err := l.Transfer(h.account, to, amount); err != nil {
			return fmt.Errorf("recover %s %s: %w", amount, symbol, err)
		}
		f.emit(TokensRecovered{Token: symbol, Amount: amount, To: to})
		f.logf("WARNING: Recovered %s %s to %s", amount, symbol, to)
		return nil
	})
}

// reservedFunds is what the house owes: unsettled standing bids plus pending returns.
func (h *House) reservedFunds() decimal.Decimal {
	reserved := h.pending.Total()
	for _, rec := range h.auctions {
		if !rec.Settled {
			reserved = reserved.Add(rec.Amount)
		}
	}
	return reserved
}
