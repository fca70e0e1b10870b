package auctionhouse

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/token"
)

const (
	owner    core.Address = "owner"
	house    core.Address = "house"
	treasury core.Address = "treasury"
	alice    core.Address = "alice"
	bob      core.Address = "bob"
	carol    core.Address = "carol"
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(dur time.Duration) { c.now = c.now.Add(dur) }

type recorder struct {
	events []Event
}

func (r *recorder) Publish(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) names() []string {
	names := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		names = append(names, ev.EventName())
	}
	return names
}

func (r *recorder) last() Event {
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

type fixture struct {
	h      *House
	usd    *token.Book
	clock  *fakeClock
	events *recorder
}

func defaultParams() core.AuctionParameters {
	return core.AuctionParameters{
		TimeBuffer:                300 * time.Second,
		ReservePrice:              d(100),
		MinBidIncrementPercentage: core.PercentOf(10),
		Duration:                  time.Hour,
	}
}

func newFixture(t *testing.T, extra ...token.Ledger) *fixture {
	t.Helper()
	usd := token.NewBook("USD")
	for _, acct := range []core.Address{alice, bob, carol} {
		usd.Mint(acct, d(10_000))
	}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	events := &recorder{}

	h, err := New(Config{
		Owner:       owner,
		Account:     house,
		FeeReceiver: treasury,
		FeePercent:  core.PercentOf(5),
		Defaults:    defaultParams(),
		Settlement:  usd,
		Ledgers:     extra,
		Clock:       clock,
		Sinks:       []EventSink{events},
	})
	assert.NoError(t, err)
	return &fixture{h: h, usd: usd, clock: clock, events: events}
}

func (fx *fixture) create(t *testing.T) uint64 {
	t.Helper()
	id, err := fx.h.CreateAuction(owner, "")
	assert.NoError(t, err)
	return id
}

func (fx *fixture) bid(t *testing.T, id uint64, bidder core.Address, total int64) {
	t.Helper()
	assert.NoError(t, fx.h.CreateBid(bidder, id, d(total), "", ""))
}

// expire moves the clock past the auction's end and settles it.
func (fx *fixture) expireAndSettle(t *testing.T, id uint64) {
	t.Helper()
	rec, err := fx.h.Auction(id)
	assert.NoError(t, err)
	fx.clock.now = rec.EndTime.Add(time.Second)
	assert.NoError(t, fx.h.SettleAuction(carol, id))
}
