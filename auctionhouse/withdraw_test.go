package auctionhouse

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

func TestWithdraw_RequiresSettledAuction(t *testing.T) {
	fx := newFixture(t)
	id := fx.create(t)
	fx.bid(t, id, alice, 100)
	fx.bid(t, id, bob, 110)

	_, err := fx.h.Withdraw(alice, id, "")
	check.True(t, errors.Is(err, core.ErrAuctionLive))

	fx.expireAndSettle(t, id)

	amount, err := fx.h.Withdraw(alice, id, "")
	assert.NoError(t, err)
	check.Equal(t, "100", amount.String())
	check.Equal(t, "10000", fx.usd.BalanceOf(alice).String())
	check.Equal(t, Withdrawn{AuctionID: id, Account: alice, Caller: alice, Amount: d(100)}, fx.events.last().(Withdrawn))

	_, err = fx.h.Withdraw(alice, id, "")
	check.True(t, errors.Is(err, core.ErrNothingPending))
	check.Equal(t, "10000", fx.usd.BalanceOf(alice).String())

	_, err = fx.h.Withdraw(alice, 99, "")
	check.True(t, errors.Is(err, core.ErrAuctionNotFound))
}

func TestWithdraw_OnBehalfOf(t *testing.T) {
	fx := newFixture(t)
	id := fx.create(t)
	fx.bid(t, id, alice, 100)
	fx.bid(t, id, bob, 110)
	fx.expireAndSettle(t, id)

	_, err := fx.h.Withdraw(carol, id, alice)
	check.True(t, errors.Is(err, core.ErrUnauthorized))

	assert.NoError(t, fx.h.SetApprovedCaller(alice, carol, core.PermissionBidOnly))
	_, err = fx.h.Withdraw(carol, id, alice)
	check.True(t, errors.Is(err, core.ErrUnauthorized))

	assert.NoError(t, fx.h.SetApprovedCaller(alice, carol, core.PermissionBoth))
	check.Equal(t, core.PermissionBoth, fx.h.ApprovalStatus(alice, carol))
	amount, err := fx.h.Withdraw(carol, id, alice)
	assert.NoError(t, err)
	check.Equal(t, "100", amount.String())

	// Funds go to the owner of the balance, never the delegate.
	check.Equal(t, "10000", fx.usd.BalanceOf(alice).String())
	check.Equal(t, "10000", fx.usd.BalanceOf(carol).String())

	assert.NoError(t, fx.h.SetApprovedCaller(alice, carol, core.PermissionNone))
	check.Equal(t, core.PermissionNone, fx.h.ApprovalStatus(alice, carol))
}

func TestWithdrawMultiple(t *testing.T) {
	fx := newFixture(t)
	first := fx.create(t)
	fx.bid(t, first, alice, 100)
	fx.bid(t, first, bob, 110)
	fx.expireAndSettle(t, first)

	second := fx.create(t)
	fx.bid(t, second, alice, 100)
	fx.bid(t, second, bob, 110)
	fx.expireAndSettle(t, second)

	live := fx.create(t)
	fx.bid(t, live, alice, 100)
	fx.bid(t, live, bob, 110)

	total, err := fx.h.WithdrawMultiple(alice, []uint64{first, second, live, 77}, "")
	assert.NoError(t, err)
	check.Equal(t, "200", total.String())
	check.Equal(t, "9900", fx.usd.BalanceOf(alice).String())

	pending, _ := fx.h.AuctionPendingReturns(live, alice)
	check.Equal(t, "100", pending.String())

	_, err = fx.h.WithdrawMultiple(alice, []uint64{first, second}, "")
	check.True(t, errors.Is(err, core.ErrNothingPending))

	_, err = fx.h.WithdrawMultiple(alice, []uint64{live, 77}, "")
	check.True(t, errors.Is(err, core.ErrAuctionLive))
}

func TestPendingReturns_Aggregate(t *testing.T) {
	fx := newFixture(t)
	for i := 0; i < 3; i++ {
		id := fx.create(t)
		fx.bid(t, id, alice, 100)
		fx.bid(t, id, bob, 110)
	}

	check.Equal(t, "300", fx.h.PendingReturns(alice).String())
	check.Equal(t, "0", fx.h.PendingReturns(bob).String())
	check.Equal(t, 3, len(fx.h.PendingEntries()))
}

func TestWithdrawStale(t *testing.T) {
	fx := newFixture(t)
	settled := fx.create(t)
	fx.bid(t, settled, alice, 100)
	fx.bid(t, settled, bob, 110)
	fx.expireAndSettle(t, settled)

	live := fx.create(t)
	fx.bid(t, live, alice, 200)
	fx.bid(t, live, bob, 220)

	_, err := fx.h.WithdrawStale(alice, []core.Address{alice})
	check.True(t, errors.Is(err, core.ErrUnauthorized))

	swept, err := fx.h.WithdrawStale(owner, []core.Address{alice, carol})
	assert.NoError(t, err)
	check.Equal(t, "100", swept.String())

	// 5% penalty to the fee receiver on top of the settlement fee of 5 (110 * 5%).
	check.Equal(t, "10", fx.usd.BalanceOf(treasury).String())
	check.Equal(t, "9795", fx.usd.BalanceOf(alice).String())

	pending, _ := fx.h.AuctionPendingReturns(live, alice)
	check.Equal(t, "200", pending.String())

	stale := fx.events.last().(StaleWithdrawn)
	check.Equal(t, settled, stale.AuctionID)
	check.Equal(t, "5", stale.Penalty.String())
}

func TestWithdrawStale_OnlyRecentAuctions(t *testing.T) {
	fx := newFixture(t)
	for i := 0; i < MaxWithdrawAuctions+1; i++ {
		id := fx.create(t)
		if i == 0 {
			fx.bid(t, id, alice, 100)
			fx.bid(t, id, bob, 110)
		}
		fx.expireAndSettle(t, id)
	}

	check.True(t, fx.h.PendingReturns(alice).IsZero())
	swept, err := fx.h.WithdrawStale(owner, []core.Address{alice})
	assert.NoError(t, err)
	check.True(t, swept.Equal(decimal.Zero))

	amount, err := fx.h.Withdraw(alice, 1, "")
	assert.NoError(t, err)
	check.Equal(t, "100", amount.String())
}

func TestWithdraw_ReentrantTransferIsRejected(t *testing.T) {
	fx := newFixture(t)
	id := fx.create(t)
	fx.bid(t, id, alice, 100)
	fx.bid(t, id, bob, 110)
	fx.expireAndSettle(t, id)

	var reentry error
	calls := 0
	fx.usd.SetTransferHook(func(from, to core.Address, amount decimal.Decimal) {
		if to != alice || calls > 0 {
			return
		}
		calls++
		_, reentry = fx.h.Withdraw(alice, id, "")
	})

	amount, err := fx.h.Withdraw(alice, id, "")
	assert.NoError(t, err)
	check.Equal(t, "100", amount.String())
	check.True(t, errors.Is(reentry, core.ErrReentrant))
	check.Equal(t, "10000", fx.usd.BalanceOf(alice).String())
	check.Equal(t, "0", fx.h.PendingReturns(alice).String())
}
