package auctionhouse

import (
	"math/rand"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/auctionhouse/core"
)

// TestConservation drives random calls and checks after each one that the
// house balance equals exactly what it owes and that no value appears or vanishes.
func TestConservation(t *testing.T) {
	for _, seed := range []int64{1, 7, 42, 1337} {
		fx := newFixture(t)
		rng := rand.New(rand.NewSource(seed))
		bidders := []core.Address{alice, bob, carol}
		supply := fx.usd.Supply()

		for i := 0; i < 3; i++ {
			fx.create(t)
		}
		assert.NoError(t, fx.h.SetApprovedCaller(alice, bob, core.PermissionBoth))

		for step := 0; step < 500; step++ {
			id := uint64(rng.Intn(int(fx.h.CurrentAuctions()))) + 1
			who := bidders[rng.Intn(len(bidders))]

			switch op := rng.Intn(10); {
			case op < 5:
				minimum, err := fx.h.MinimumTotalBid(id)
				assert.NoError(t, err)
				total := minimum.Add(d(int64(rng.Intn(40) - 5)))
				var onBehalfOf core.Address
				if who == bob && rng.Intn(3) == 0 {
					onBehalfOf = alice
				}
				_ = fx.h.CreateBid(who, id, total, "", onBehalfOf)
			case op < 7:
				fx.clock.Advance(time.Duration(rng.Intn(900)) * time.Second)
			case op == 7:
				_ = fx.h.SettleAuction(who, id)
				if rng.Intn(4) == 0 {
					_, _ = fx.h.CreateAuction(owner, "")
				}
			case op == 8:
				if rng.Intn(2) == 0 {
					_, _ = fx.h.Withdraw(who, id, "")
				} else {
					_, _ = fx.h.WithdrawMultiple(who, []uint64{1, 2, 3, id}, "")
				}
			default:
				if rng.Intn(5) == 0 {
					_ = fx.h.NullifyAuction(owner, id)
				}
			}

			check.Equal(t, fx.h.ReservedFunds().String(), fx.usd.BalanceOf(house).String())
			check.Equal(t, supply.String(), fx.usd.Supply().String())
			if t.Failed() {
				t.Fatalf("seed %d: conservation broken at step %d", seed, step)
			}
		}
	}
}
