package auctionhouse

import (
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/exchange"
	"github.com/cloudx-io/auctionhouse/token"
)

func TestAdminSetters_OwnerOnly(t *testing.T) {
	fx := newFixture(t)

	setters := map[string]func(caller core.Address) error{
		"fee receiver":      func(c core.Address) error { return fx.h.SetFeeReceiver(c, carol) },
		"fee percent":       func(c core.Address) error { return fx.h.SetFeePercent(c, core.PercentOf(3)) },
		"time buffer":       func(c core.Address) error { return fx.h.SetDefaultTimeBuffer(c, time.Minute) },
		"reserve price":     func(c core.Address) error { return fx.h.SetDefaultReservePrice(c, d(250)) },
		"min bid increment": func(c core.Address) error { return fx.h.SetDefaultMinBidIncrement(c, core.PercentOf(2)) },
		"duration":          func(c core.Address) error { return fx.h.SetDefaultDuration(c, 2*time.Hour) },
		"manager":           func(c core.Address) error { return fx.h.SetAuctionManager(c, bob, true) },
		"router":            func(c core.Address) error { return fx.h.SetTrustedRouter(c, "router") },
		"hook":              func(c core.Address) error { return fx.h.SetSettlementHook(c, nil) },
	}
	for name, set := range setters {
		t.Run(name, func(t *testing.T) {
			err := set(alice)
			check.True(t, errors.Is(err, core.ErrUnauthorized))
			check.NoError(t, set(owner))
		})
	}

	check.Equal(t, carol, fx.h.FeeReceiver())
	check.Equal(t, core.PercentOf(3).String(), fx.h.FeePercent().String())
	defaults := fx.h.Defaults()
	check.Equal(t, time.Minute, defaults.TimeBuffer)
	check.Equal(t, "250", defaults.ReservePrice.String())
	check.Equal(t, core.PercentOf(2).String(), defaults.MinBidIncrementPercentage.String())
	check.Equal(t, 2*time.Hour, defaults.Duration)

	id := fx.create(t)
	rec, _ := fx.h.Auction(id)
	check.Equal(t, "250", rec.Params.ReservePrice.String())
	check.Equal(t, fx.clock.now.Add(2*time.Hour), rec.EndTime)
}

func TestAdminSetters_Bounds(t *testing.T) {
	fx := newFixture(t)

	check.True(t, errors.Is(fx.h.SetFeePercent(owner, core.PercentOf(101)), core.ErrValidation))
	check.True(t, errors.Is(fx.h.SetDefaultMinBidIncrement(owner, core.PercentOf(101)), core.ErrValidation))
	check.True(t, errors.Is(fx.h.SetDefaultDuration(owner, 0), core.ErrValidation))
	check.True(t, errors.Is(fx.h.SetDefaultTimeBuffer(owner, -time.Second), core.ErrValidation))
	check.True(t, errors.Is(fx.h.SetDefaultReservePrice(owner, decimal.RequireFromString("0.5")), core.ErrValidation))
	check.True(t, errors.Is(fx.h.SetFeeReceiver(owner, ""), core.ErrValidation))
	check.True(t, errors.Is(fx.h.SetTokenSupport(owner, "USD", nil), core.ErrValidation))

	// 100% is allowed.
	check.NoError(t, fx.h.SetFeePercent(owner, core.Precision))
	check.Equal(t, []string{"fee_percent_changed"}, fx.events.names())
}

func TestPause(t *testing.T) {
	fx := newFixture(t)
	id := fx.create(t)
	fx.bid(t, id, alice, 100)

	check.True(t, errors.Is(fx.h.Pause(alice), core.ErrUnauthorized))
	assert.NoError(t, fx.h.Pause(owner))
	check.True(t, fx.h.Paused())
	check.True(t, errors.Is(fx.h.Pause(owner), core.ErrInvalidState))

	_, err := fx.h.CreateAuction(owner, "")
	check.True(t, errors.Is(err, core.ErrPaused))
	check.True(t, errors.Is(fx.h.CreateBid(bob, id, d(110), "", ""), core.ErrPaused))

	rec, _ := fx.h.Auction(id)
	fx.clock.now = rec.EndTime.Add(time.Second)
	check.True(t, errors.Is(fx.h.SettleAuction(bob, id), core.ErrPaused))

	assert.NoError(t, fx.h.Unpause(owner))
	check.False(t, fx.h.Paused())
	check.NoError(t, fx.h.SettleAuction(bob, id))
	check.Equal(t, PauseChanged{Paused: false}, fx.events.events[len(fx.events.events)-2].(PauseChanged))
}

func TestRecoverTokens(t *testing.T) {
	fx := newFixture(t)
	id := fx.create(t)
	fx.bid(t, id, alice, 100)
	fx.usd.Mint(house, d(50)) // stray deposit

	check.Equal(t, "100", fx.h.ReservedFunds().String())

	err := fx.h.RecoverTokens(owner, "USD", d(51), "")
	check.True(t, errors.Is(err, core.ErrInvalidState))

	err = fx.h.RecoverTokens(alice, "USD", d(50), "")
	check.True(t, errors.Is(err, core.ErrUnauthorized))

	err = fx.h.RecoverTokens(owner, "DOGE", d(1), "")
	check.True(t, errors.Is(err, core.ErrUnsupportedToken))

	assert.NoError(t, fx.h.RecoverTokens(owner, "USD", d(50), ""))
	check.Equal(t, "50", fx.usd.BalanceOf(owner).String())
	check.Equal(t, "100", fx.usd.BalanceOf(house).String())
	check.Equal(t, TokensRecovered{Token: "USD", Amount: d(50), To: owner}, fx.events.last().(TokensRecovered))
}

func TestFailedCallPublishesNothing(t *testing.T) {
	fx := newFixture(t)
	var published []string
	fx.h.sinks = append(fx.h.sinks, EventSinkFunc(func(ev Event) {
		published = append(published, ev.EventName())
	}))

	id := fx.create(t)
	_ = fx.h.CreateBid("dave", id, d(100), "", "")

	check.Equal(t, []string{"auction_created"}, published)
}

func TestSetTokenSupport_RequiresRegisteredLedger(t *testing.T) {
	fx := newFixture(t)
	squid := token.NewBook("SQUID")
	squid.Mint(alice, d(1_000))
	adapter, err := exchange.NewFixedRateAdapter(squid, fx.usd, "pool", d(2))
	assert.NoError(t, err)

	err = fx.h.SetTokenSupport(owner, "SQUID", adapter)
	check.True(t, errors.Is(err, core.ErrUnsupportedToken))
	check.Equal(t, 0, len(fx.h.SupportedTokens()))

	id := fx.create(t)
	err = fx.h.CreateBidWithAlternateToken(alice, id, "SQUID", d(100), d(150), "", "")
	check.True(t, errors.Is(err, core.ErrUnsupportedToken))
	check.Equal(t, "1000", squid.BalanceOf(alice).String())
}
