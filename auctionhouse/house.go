// Package auctionhouse implements the English-auction settlement engine:
// bid validation, anti-sniping extension, settlement, nullification and the
// pending-returns withdrawal flow, for one settlement currency.
//
// A House is single-threaded. Every mutating call runs in a call frame that
// rejects nested calls, records an undo log, checkpoints the host ledgers and
// buffers events, so a failed call leaves no trace.
package auctionhouse

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/exchange"
	"github.com/cloudx-io/auctionhouse/ledger"
	"github.com/cloudx-io/auctionhouse/permissions"
	"github.com/cloudx-io/auctionhouse/token"
)

// MaxWithdrawAuctions bounds the auctions scanned by PendingReturns and WithdrawStale.
const MaxWithdrawAuctions = 100

// Clock provides the host time. It is read once per call.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config holds everything a House needs at construction.
type Config struct {
	// Owner administers the house and receives proceeds unless an auction names a beneficiary.
	Owner core.Address
	// Account is the house's own account on the host ledgers; it custodies bids and pending returns.
	Account core.Address
	// FeeReceiver collects the settlement fee and stale-withdrawal penalties.
	FeeReceiver core.Address
	// FeePercent is in core.Precision units.
	FeePercent decimal.Decimal
	// Defaults are copied into auctions created without explicit parameters.
	Defaults core.AuctionParameters

	// Settlement is the currency bids are denominated in.
	Settlement token.Ledger
	// Ledgers lists additional currencies the house may hold (alternate bid currencies).
	Ledgers []token.Ledger

	Clock Clock
	Sinks []EventSink
	Hook  SettlementHook
}

type bidKey struct {
	auctionID uint64
	bidder    core.Address
}

// House is the auction settlement engine.
type House struct {
	owner      core.Address
	account    core.Address
	settlement token.Ledger
	ledgers    map[string]token.Ledger
	clock      Clock
	sinks      []EventSink

	auctions    []*core.AuctionRecord // auctions[id-1]
	pending     *ledger.PendingReturns
	approvals   *permissions.Registry
	bidMetadata map[bidKey]string
	managers    map[core.Address]bool

	feeReceiver core.Address
	feePercent  decimal.Decimal
	defaults    core.AuctionParameters
	router      permissions.TrustedCaller
	adapters    map[string]exchange.Adapter
	hook        SettlementHook
	paused      bool

	frame *callFrame
}

// New validates cfg and creates a House.
func New(cfg Config) (*House, error) {
	if cfg.Owner.IsZero() {
		return nil, fmt.Errorf("owner is required")
	}
	if cfg.Account.IsZero() {
		return nil, fmt.Errorf("house account is required")
	}
	if cfg.FeeReceiver.IsZero() {
		return nil, fmt.Errorf("fee receiver is required")
	}
	if cfg.Settlement == nil {
		return nil, fmt.Errorf("settlement ledger is required")
	}
	if !core.IsValidPercentage(cfg.FeePercent) {
		return nil, fmt.Errorf("invalid fee percent %s", cfg.FeePercent)
	}
	if err := core.ValidateParameters(cfg.Defaults); err != nil {
		return nil, fmt.Errorf("invalid default parameters: %w", err)
	}

	h := &House{
		owner:       cfg.Owner,
		account:     cfg.Account,
		settlement:  cfg.Settlement,
		ledgers:     map[string]token.Ledger{cfg.Settlement.Symbol(): cfg.Settlement},
		clock:       cfg.Clock,
		sinks:       cfg.Sinks,
		pending:     ledger.New(),
		approvals:   permissions.NewRegistry(),
		bidMetadata: make(map[bidKey]string),
		managers:    make(map[core.Address]bool),
		feeReceiver: cfg.FeeReceiver,
		feePercent:  cfg.FeePercent,
		defaults:    cfg.Defaults,
		adapters:    make(map[string]exchange.Adapter),
		hook:        cfg.Hook,
	}
	if h.clock == nil {
		h.clock = systemClock{}
	}
	for _, l := range cfg.Ledgers {
		if _, dup := h.ledgers[l.Symbol()]; dup {
			return nil, fmt.Errorf("duplicate ledger %s", l.Symbol())
		}
		h.ledgers[l.Symbol()] = l
	}

	log.Printf("INFO: Auction house initialized (owner=%s, account=%s, currency=%s, fee=%s)",
		h.owner, h.account, h.settlement.Symbol(), h.feePercent)
	return h, nil
}

// callFrame is the per-call transaction: undo log, buffered events and
// work deferred until the call commits.
type callFrame struct {
	now    time.Time
	undo   []func()
	events []Event
	after  []func()
}

func (f *callFrame) track(undo func()) {
	f.undo = append(f.undo, undo)
}

func (f *callFrame) emit(ev Event) {
	f.events = append(f.events, ev)
}

// logf defers a log line until commit so reverted calls leave no misleading logs.
func (f *callFrame) logf(format string, args ...any) {
	f.after = append(f.after, func() { log.Printf(format, args...) })
}

// call runs fn as one atomic, non-reentrant operation.
func (h *House) call(fn func(f *callFrame) error) error {
	if h.frame != nil {
		return core.ErrReentrant
	}
	f := &callFrame{now: h.clock.Now().Truncate(time.Second)}
	h.frame = f
	defer func() { h.frame = nil }()

	savepoints := h.checkpoint()
	if err := runFrame(fn, f); err != nil {
		for i := len(f.undo) - 1; i >= 0; i-- {
			f.undo[i]()
		}
		for _, sp := range savepoints {
			sp.Revert()
		}
		return err
	}

	for _, after := range f.after {
		after()
	}
	for _, sp := range savepoints {
		sp.Release()
	}
	for _, ev := range f.events {
		for _, sink := range h.sinks {
			sink.Publish(ev)
		}
	}
	return nil
}

// runFrame turns a panic inside fn, typically from an adapter or a ledger
// transfer hook, into an error so the caller rolls the frame back.
func runFrame(fn func(f *callFrame) error, f *callFrame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Call aborted by panic: %v", r)
			err = fmt.Errorf("%w: call aborted: %v", core.ErrTransfer, r)
		}
	}()
	return fn(f)
}

func (h *House) checkpoint() []token.Savepoint {
	savepoints := make([]token.Savepoint, 0, len(h.ledgers))
	for _, l := range h.ledgers {
		if cp, ok := l.(token.Checkpointer); ok {
			savepoints = append(savepoints, cp.Checkpoint())
		}
	}
	return savepoints
}

// now returns the current call's time, or a fresh reading outside a call.
func (h *House) now() time.Time {
	if h.frame != nil {
		return h.frame.now
	}
	return h.clock.Now().Truncate(time.Second)
}

func (h *House) record(id uint64) (*core.AuctionRecord, error) {
	if id == 0 || id > uint64(len(h.auctions)) {
		return nil, fmt.Errorf("%w: id %d", core.ErrAuctionNotFound, id)
	}
	return h.auctions[id-1], nil
}

// mutate snapshots rec so the frame can restore it.
func (h *House) mutate(f *callFrame, rec *core.AuctionRecord) *core.AuctionRecord {
	old := *rec
	f.track(func() { *rec = old })
	return rec
}

func (h *House) credit(f *callFrame, id uint64, account core.Address, amount decimal.Decimal) {
	before := h.pending.Peek(id, account)
	h.pending.Credit(id, account, amount)
	f.track(func() {
		h.pending.DebitAll(id, account)
		h.pending.Credit(id, account, before)
	})
}

func (h *House) debitAll(f *callFrame, id uint64, account core.Address) decimal.Decimal {
	amount := h.pending.DebitAll(id, account)
	f.track(func() { h.pending.Credit(id, account, amount) })
	return amount
}

func (h *House) pay(to core.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	if err := h.settlement.Transfer(h.account, to, amount); err != nil {
		return fmt.Errorf("pay %s %s to %s: %w", amount, h.settlement.Symbol(), to, err)
	}
	return nil
}

func (h *House) requireOwner(caller core.Address) error {
	if caller != h.owner {
		return fmt.Errorf("%w: %s is not the owner", core.ErrUnauthorized, caller)
	}
	return nil
}

func (h *House) requireUnpaused() error {
	if h.paused {
		return core.ErrPaused
	}
	return nil
}

// resolve returns the account a call acts for and checks caller may act for it.
func (h *House) resolve(caller, onBehalfOf core.Address, required core.Permission) (core.Address, error) {
	account := onBehalfOf
	if account.IsZero() {
		account = caller
	}
	if !h.approvals.Authorize(account, caller, required, h.router) {
		return "", fmt.Errorf("%w: %s may not act for %s (%s)", core.ErrUnauthorized, caller, account, required)
	}
	return account, nil
}
