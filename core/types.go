package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Address identifies an account on the host ledger. The empty Address means "none".
type Address string

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == ""
}

// Permission is a delegation grant an account owner gives to another account.
type Permission int

const (
	PermissionNone Permission = iota
	PermissionBidOnly
	PermissionWithdrawOnly
	PermissionBoth
)

// String returns the permission name used in events and logs.
func (p Permission) String() string {
	switch p {
	case PermissionNone:
		return "none"
	case PermissionBidOnly:
		return "bid_only"
	case PermissionWithdrawOnly:
		return "withdraw_only"
	case PermissionBoth:
		return "both"
	default:
		return "unknown"
	}
}

// ParsePermission is the inverse of Permission.String.
func ParsePermission(s string) (Permission, error) {
	for p := PermissionNone; p <= PermissionBoth; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return PermissionNone, fmt.Errorf("%w: unknown permission %q", ErrValidation, s)
}

// Valid reports whether p is one of the defined grants.
func (p Permission) Valid() bool {
	return p >= PermissionNone && p <= PermissionBoth
}

// AuctionParameters is the configuration an auction is created with.
// It is copied into the AuctionRecord and never changes afterwards.
type AuctionParameters struct {
	// TimeBuffer is the anti-sniping window: a bid landing closer than this to
	// the end time pushes the end time to now + TimeBuffer.
	TimeBuffer time.Duration `json:"time_buffer"`

	// ReservePrice is the lowest acceptable first bid, in settlement base units.
	ReservePrice decimal.Decimal `json:"reserve_price"`

	// MinBidIncrementPercentage is the required raise over the standing bid,
	// in Precision units (Precision == 100%).
	MinBidIncrementPercentage decimal.Decimal `json:"min_bid_increment_percentage"`

	// Duration is the initial length of the bidding window.
	Duration time.Duration `json:"duration"`

	// InstabuyPrice settles the auction immediately when a bid reaches it. Zero disables it.
	InstabuyPrice decimal.Decimal `json:"instabuy_price"`

	// Beneficiary receives the proceeds. Empty means the house owner.
	Beneficiary Address `json:"beneficiary,omitempty"`
}

// AuctionRecord is the per-auction state. Records are created once per id,
// mutated in place and never deleted.
type AuctionRecord struct {
	ID        uint64            `json:"id"`
	Amount    decimal.Decimal   `json:"amount"`
	Bidder    Address           `json:"bidder,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Settled   bool              `json:"settled"`
	Metadata  string            `json:"metadata,omitempty"`
	Params    AuctionParameters `json:"params"`
}

// HasBid reports whether a bid has ever been accepted (and not nullified).
func (r *AuctionRecord) HasBid() bool {
	return !r.Bidder.IsZero()
}

// IsLive reports whether the auction accepts bids at now.
func (r *AuctionRecord) IsLive(now time.Time) bool {
	return !r.Settled && !now.Before(r.StartTime) && !now.After(r.EndTime)
}

// IsExpired reports whether the bidding window closed before now.
func (r *AuctionRecord) IsExpired(now time.Time) bool {
	return now.After(r.EndTime)
}

// RemainingTime returns how long the auction stays open, or zero once it closed.
func (r *AuctionRecord) RemainingTime(now time.Time) time.Duration {
	if r.Settled || !now.Before(r.EndTime) {
		return 0
	}
	return r.EndTime.Sub(now)
}

// Settlement describes how a settled auction's winning amount was distributed.
type Settlement struct {
	AuctionID uint64          `json:"auction_id"`
	Winner    Address         `json:"winner,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Fee       decimal.Decimal `json:"fee"`
	Proceeds  decimal.Decimal `json:"proceeds"`
	Recipient Address         `json:"recipient"`
	SettledAt time.Time       `json:"settled_at"`
}
