package auctionhouse

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

// Event is an append-only notification of a committed state change.
// Field sets are part of the observer contract and must stay stable.
type Event interface {
	EventName() string
}

// EventSink receives events after the call that produced them commits.
type EventSink interface {
	Publish(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

func (fn EventSinkFunc) Publish(ev Event) { fn(ev) }

type AuctionCreated struct {
	AuctionID uint64                 `json:"auction_id"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	Metadata  string                 `json:"metadata,omitempty"`
	Params    core.AuctionParameters `json:"params"`
}

type BidAccepted struct {
	AuctionID uint64          `json:"auction_id"`
	Bidder    core.Address    `json:"bidder"`
	Caller    core.Address    `json:"caller"`
	Amount    decimal.Decimal `json:"amount"`
	Extended  bool            `json:"extended"`
}

type AuctionExtended struct {
	AuctionID uint64    `json:"auction_id"`
	EndTime   time.Time `json:"end_time"`
}

// AuctionSettled carries the distribution so receipts can be issued from the event alone.
type AuctionSettled struct {
	AuctionID uint64          `json:"auction_id"`
	Winner    core.Address    `json:"winner,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Fee       decimal.Decimal `json:"fee"`
	Proceeds  decimal.Decimal `json:"proceeds"`
	Recipient core.Address    `json:"recipient"`
	SettledAt time.Time       `json:"settled_at"`
}

// Settlement returns the distribution as a core.Settlement.
func (e AuctionSettled) Settlement() core.Settlement {
	return core.Settlement{
		AuctionID: e.AuctionID,
		Winner:    e.Winner,
		Amount:    e.Amount,
		Fee:       e.Fee,
		Proceeds:  e.Proceeds,
		Recipient: e.Recipient,
		SettledAt: e.SettledAt,
	}
}

type AuctionNullified struct {
	AuctionID uint64          `json:"auction_id"`
	Bidder    core.Address    `json:"bidder,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
}

type Withdrawn struct {
	AuctionID uint64          `json:"auction_id"`
	Account   core.Address    `json:"account"`
	Caller    core.Address    `json:"caller"`
	Amount    decimal.Decimal `json:"amount"`
}

type StaleWithdrawn struct {
	AuctionID uint64          `json:"auction_id"`
	Account   core.Address    `json:"account"`
	Amount    decimal.Decimal `json:"amount"`
	Penalty   decimal.Decimal `json:"penalty"`
}

type BidMetadataUpdated struct {
	AuctionID uint64       `json:"auction_id"`
	Bidder    core.Address `json:"bidder"`
	Metadata  string       `json:"metadata"`
}

type ApprovalChanged struct {
	Owner    core.Address    `json:"owner"`
	Delegate core.Address    `json:"delegate"`
	Status   core.Permission `json:"status"`
}

type FeeReceiverChanged struct {
	FeeReceiver core.Address `json:"fee_receiver"`
}

type FeePercentChanged struct {
	FeePercent decimal.Decimal `json:"fee_percent"`
}

type DefaultTimeBufferChanged struct {
	TimeBuffer time.Duration `json:"time_buffer"`
}

type DefaultReservePriceChanged struct {
	ReservePrice decimal.Decimal `json:"reserve_price"`
}

type DefaultMinBidIncrementChanged struct {
	MinBidIncrementPercentage decimal.Decimal `json:"min_bid_increment_percentage"`
}

type DefaultDurationChanged struct {
	Duration time.Duration `json:"duration"`
}

type AuctionManagerChanged struct {
	Manager core.Address `json:"manager"`
	Enabled bool         `json:"enabled"`
}

type TrustedRouterChanged struct {
	Router core.Address `json:"router,omitempty"`
}

type TokenSupportChanged struct {
	Token     string `json:"token"`
	Supported bool   `json:"supported"`
}

type SettlementHookChanged struct {
	Enabled bool `json:"enabled"`
}

type PauseChanged struct {
	Paused bool `json:"paused"`
}

type TokensRecovered struct {
	Token  string          `json:"token"`
	Amount decimal.Decimal `json:"amount"`
	To     core.Address    `json:"to"`
}

func (AuctionCreated) EventName() string                { return "auction_created" }
func (BidAccepted) EventName() string                   { return "bid_accepted" }
func (AuctionExtended) EventName() string               { return "auction_extended" }
func (AuctionSettled) EventName() string                { return "auction_settled" }
func (AuctionNullified) EventName() string              { return "auction_nullified" }
func (Withdrawn) EventName() string                     { return "withdrawn" }
func (StaleWithdrawn) EventName() string                { return "stale_withdrawn" }
func (BidMetadataUpdated) EventName() string            { return "bid_metadata_updated" }
func (ApprovalChanged) EventName() string               { return "approval_changed" }
func (FeeReceiverChanged) EventName() string            { return "fee_receiver_changed" }
func (FeePercentChanged) EventName() string             { return "fee_percent_changed" }
func (DefaultTimeBufferChanged) EventName() string      { return "default_time_buffer_changed" }
func (DefaultReservePriceChanged) EventName() string    { return "default_reserve_price_changed" }
func (DefaultMinBidIncrementChanged) EventName() string { return "default_min_bid_increment_changed" }
func (DefaultDurationChanged) EventName() string        { return "default_duration_changed" }
func (AuctionManagerChanged) EventName() string         { return "auction_manager_changed" }
func (TrustedRouterChanged) EventName() string          { return "trusted_router_changed" }
func (TokenSupportChanged) EventName() string           { return "token_support_changed" }
func (SettlementHookChanged) EventName() string         { return "settlement_hook_changed" }
func (PauseChanged) EventName() string                  { return "pause_changed" }
func (TokensRecovered) EventName() string               { return "tokens_recovered" }
