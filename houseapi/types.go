// Package houseapi defines the JSON messages exchanged with the auction house server.
// Every request carries a "type" discriminator; every reply is a Response.
package houseapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/journal"
)

// Request types.
const (
	TypePing              = "ping"
	TypeCreateAuction     = "create_auction"
	TypeCreateBid         = "create_bid"
	TypeUpdateBidMetadata = "update_bid_metadata"
	TypeSettleAuction     = "settle_auction"
	TypeNullifyAuction    = "nullify_auction"
	TypeWithdraw          = "withdraw"
	TypeWithdrawStale     = "withdraw_stale"
	TypeSetApproval       = "set_approval"
	TypeAdmin             = "admin"
	TypeAuction           = "auction"
	TypePendingReturns    = "pending_returns"
	TypeQuote             = "quote"
	TypeReceipt           = "receipt"
	TypePublicKey         = "public_key"
	TypeJournal           = "journal"
)

// Admin actions carried by AdminRequest.Action.
const (
	ActionSetFeeReceiver            = "set_fee_receiver"
	ActionSetFeePercent             = "set_fee_percent"
	ActionSetDefaultTimeBuffer      = "set_default_time_buffer"
	ActionSetDefaultReservePrice    = "set_default_reserve_price"
	ActionSetDefaultMinBidIncrement = "set_default_min_bid_increment"
	ActionSetDefaultDuration        = "set_default_duration"
	ActionSetAuctionManager         = "set_auction_manager"
	ActionSetTrustedRouter          = "set_trusted_router"
	ActionDisableToken              = "disable_token"
	ActionPause                     = "pause"
	ActionUnpause                   = "unpause"
	ActionRecoverTokens             = "recover_tokens"
)

// Quote directions.
const (
	QuoteOut    = "out"
	QuoteIn     = "in"
	QuoteSafeIn = "safe_in"
)

// Envelope is the part every request shares.
type Envelope struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

// AuctionParams is the wire form of core.AuctionParameters; durations are whole seconds.
type AuctionParams struct {
	TimeBufferSeconds         int64           `json:"time_buffer_seconds"`
	ReservePrice              decimal.Decimal `json:"reserve_price"`
	MinBidIncrementPercentage decimal.Decimal `json:"min_bid_increment_percentage"`
	DurationSeconds           int64           `json:"duration_seconds"`
	InstabuyPrice             decimal.Decimal `json:"instabuy_price"`
	Beneficiary               core.Address    `json:"beneficiary,omitempty"`
}

func (p AuctionParams) Core() core.AuctionParameters {
	return core.AuctionParameters{
		TimeBuffer:                time.Duration(p.TimeBufferSeconds) * time.Second,
		ReservePrice:              p.ReservePrice,
		MinBidIncrementPercentage: p.MinBidIncrementPercentage,
		Duration:                  time.Duration(p.DurationSeconds) * time.Second,
		InstabuyPrice:             p.InstabuyPrice,
		Beneficiary:               p.Beneficiary,
	}
}

func ParamsFromCore(p core.AuctionParameters) AuctionParams {
	return AuctionParams{
		TimeBufferSeconds:         int64(p.TimeBuffer / time.Second),
		ReservePrice:              p.ReservePrice,
		MinBidIncrementPercentage: p.MinBidIncrementPercentage,
		DurationSeconds:           int64(p.Duration / time.Second),
		InstabuyPrice:             p.InstabuyPrice,
		Beneficiary:               p.Beneficiary,
	}
}

// CreateAuctionRequest creates an auction with the house defaults unless Params is set.
// With Deadline set, the duration is derived from it.
type CreateAuctionRequest struct {
	Envelope
	Caller   core.Address   `json:"caller"`
	Params   *AuctionParams `json:"params,omitempty"`
	Deadline *time.Time     `json:"deadline,omitempty"`
	Metadata string         `json:"metadata,omitempty"`
}

// BidRequest places a bid (create_bid) or rewrites bid metadata (update_bid_metadata).
// With Token set the bid is funded through that token's exchange adapter: AmountIn is
// spent and Amount is the minimum acceptable total.
type BidRequest struct {
	Envelope
	Caller     core.Address    `json:"caller"`
	AuctionID  uint64          `json:"auction_id"`
	Amount     decimal.Decimal `json:"amount"`
	Token      string          `json:"token,omitempty"`
	AmountIn   decimal.Decimal `json:"amount_in"`
	Metadata   string          `json:"metadata,omitempty"`
	OnBehalfOf core.Address    `json:"on_behalf_of,omitempty"`
}

// AuctionRequest addresses a single auction: settle, nullify, view or receipt.
// User narrows the auction view to one account's bid and pending return.
type AuctionRequest struct {
	Envelope
	Caller    core.Address `json:"caller,omitempty"`
	AuctionID uint64       `json:"auction_id"`
	User      core.Address `json:"user,omitempty"`
}

// WithdrawRequest withdraws pending returns from one or more settled auctions.
type WithdrawRequest struct {
	Envelope
	Caller     core.Address `json:"caller"`
	AuctionIDs []uint64     `json:"auction_ids"`
	OnBehalfOf core.Address `json:"on_behalf_of,omitempty"`
}

type WithdrawStaleRequest struct {
	Envelope
	Caller core.Address   `json:"caller"`
	Users  []core.Address `json:"users"`
}

// ApprovalRequest sets the grant Caller gives Delegate.
// Status is one of none, bid_only, withdraw_only, both.
type ApprovalRequest struct {
	Envelope
	Caller   core.Address `json:"caller"`
	Delegate core.Address `json:"delegate"`
	Status   string       `json:"status"`
}

// AdminRequest carries one owner action. Which of Address, Amount, Seconds,
// Enabled and Token matter depends on Action.
type AdminRequest struct {
	Envelope
	Caller  core.Address    `json:"caller"`
	Action  string          `json:"action"`
	Address core.Address    `json:"address,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
	Seconds int64           `json:"seconds,omitempty"`
	Enabled bool            `json:"enabled,omitempty"`
	Token   string          `json:"token,omitempty"`
}

type QuoteRequest struct {
	Envelope
	Token     string          `json:"token"`
	Amount    decimal.Decimal `json:"amount"`
	Direction string          `json:"direction"`
}

// PendingReturnsRequest reads User's pending returns, for one auction when AuctionID is set.
type PendingReturnsRequest struct {
	Envelope
	User      core.Address `json:"user"`
	AuctionID uint64       `json:"auction_id,omitempty"`
}

type JournalRequest struct {
	Envelope
	After uint64 `json:"after"`
}

// Response is the reply to every request. Result holds the type-specific payload.
type Response struct {
	Type           string          `json:"type"`
	RequestID      string          `json:"request_id"`
	Success        bool            `json:"success"`
	Message        string          `json:"message,omitempty"`
	Code           string          `json:"code,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	ProcessingTime int64           `json:"processing_time_ms"`
}

// NewResponse builds a successful response around result, which may be nil.
func NewResponse(typ, requestID string, result any) (*Response, error) {
	resp := &Response{Type: typ, RequestID: requestID, Success: true}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s result: %w", typ, err)
		}
		resp.Result = data
	}
	return resp, nil
}

// NewErrorResponse reports err, classified by the core error taxonomy.
func NewErrorResponse(requestID string, err error) *Response {
	return &Response{
		Type:      "error",
		RequestID: requestID,
		Message:   err.Error(),
		Code:      core.ErrorClass(err),
	}
}

// Decode unmarshals the result payload into v.
func (r *Response) Decode(v any) error {
	if !r.Success {
		return fmt.Errorf("%s: %s", r.Code, r.Message)
	}
	if len(r.Result) == 0 {
		return fmt.Errorf("%s response has no result", r.Type)
	}
	return json.Unmarshal(r.Result, v)
}

type CreatedResult struct {
	AuctionID uint64 `json:"auction_id"`
}

type AmountResult struct {
	Amount decimal.Decimal `json:"amount"`
}

// AuctionView is an auction record with the values derived from it at request time.
type AuctionView struct {
	ID               uint64          `json:"id"`
	Amount           decimal.Decimal `json:"amount"`
	Bidder           core.Address    `json:"bidder,omitempty"`
	StartTime        time.Time       `json:"start_time"`
	EndTime          time.Time       `json:"end_time"`
	Settled          bool            `json:"settled"`
	Metadata         string          `json:"metadata,omitempty"`
	Params           AuctionParams   `json:"params"`
	Live             bool            `json:"live"`
	RemainingSeconds int64           `json:"remaining_seconds"`
	MinimumTotalBid  decimal.Decimal `json:"minimum_total_bid"`

	// Set when the request named a user.
	UserBid          *decimal.Decimal `json:"user_bid,omitempty"`
	UserPending      *decimal.Decimal `json:"user_pending,omitempty"`
	UserMinimumRaise *decimal.Decimal `json:"user_minimum_raise,omitempty"`
	UserBidMetadata  string           `json:"user_bid_metadata,omitempty"`
}

type PendingReturnsResult struct {
	User      core.Address    `json:"user"`
	AuctionID uint64          `json:"auction_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
}

type QuoteResult struct {
	Token     string          `json:"token"`
	Direction string          `json:"direction"`
	Amount    decimal.Decimal `json:"amount"`
}

// ReceiptResult returns a settlement receipt in both transport encodings.
type ReceiptResult struct {
	AuctionID         uint64            `json:"auction_id"`
	ReceiptCOSEBase64 ReceiptCOSEBase64 `json:"receipt_cose_base64"`
	ReceiptCOSEGzip   ReceiptCOSEGzip   `json:"receipt_cose_gzip"`
}

type PublicKeyResult struct {
	Algorithm string `json:"algorithm"`
	PublicKey string `json:"public_key"` // PEM
}

type JournalResult struct {
	RunID   string          `json:"run_id"`
	Head    string          `json:"head"`
	Entries []journal.Entry `json:"entries"`
}
