// Package token defines the host ledger the house moves value through, and an
// in-memory implementation used by the server and tests.
package token

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

// Ledger is a fungible-token balance book.
type Ledger interface {
	// Symbol names the currency.
	Symbol() string
	// BalanceOf returns the account balance.
	BalanceOf(account core.Address) decimal.Decimal
	// Transfer moves amount from one account to another. It fails without
	// side effects when from cannot cover amount.
	Transfer(from, to core.Address, amount decimal.Decimal) error
}

// Checkpointer is implemented by ledgers that can undo every transfer made
// since a checkpoint, the way a reverted host transaction would.
type Checkpointer interface {
	Checkpoint() Savepoint
}

// Savepoint is an open checkpoint. Exactly one of Revert or Release must be called.
type Savepoint interface {
	Revert()
	Release()
}

// TransferHook observes completed transfers. It may call back into other
// components, which is how tests exercise re-entrancy.
type TransferHook func(from, to core.Address, amount decimal.Decimal)

// Book is an in-memory Ledger with checkpoint support.
type Book struct {
	symbol   string
	balances map[core.Address]decimal.Decimal
	onXfer   TransferHook
	journal  []transfer
	open     int
}

type transfer struct {
	from, to core.Address
	amount   decimal.Decimal
}

// NewBook creates an empty book for symbol.
func NewBook(symbol string) *Book {
	return &Book{
		symbol:   symbol,
		balances: make(map[core.Address]decimal.Decimal),
	}
}

func (b *Book) Symbol() string {
	return b.symbol
}

// Mint credits amount to account out of thin air.
func (b *Book) Mint(account core.Address, amount decimal.Decimal) {
	b.balances[account] = b.balances[account].Add(amount)
	if b.open > 0 {
		b.journal = append(b.journal, transfer{to: account, amount: amount})
	}
}

func (b *Book) BalanceOf(account core.Address) decimal.Decimal {
	if bal, ok := b.balances[account]; ok {
		return bal
	}
	return decimal.Zero
}

func (b *Book) Transfer(from, to core.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative transfer %s", core.ErrTransfer, amount)
	}
	if amount.IsZero() {
		return nil
	}
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: transfer to or from empty address", core.ErrTransfer)
	}
	if b.BalanceOf(from).LessThan(amount) {
		return fmt.Errorf("%w: %s has %s %s, needs %s",
			core.ErrInsufficientBalance, from, b.BalanceOf(from), b.symbol, amount)
	}

	b.balances[from] = b.balances[from].Sub(amount)
	b.balances[to] = b.balances[to].Add(amount)
	if b.open > 0 {
		b.journal = append(b.journal, transfer{from: from, to: to, amount: amount})
	}

	if b.onXfer != nil {
		b.onXfer(from, to, amount)
	}
	return nil
}

// SetTransferHook installs fn to run after every successful transfer.
func (b *Book) SetTransferHook(fn TransferHook) {
	b.onXfer = fn
}

// Checkpoint marks the journal. Reverting undoes every later mint and transfer.
func (b *Book) Checkpoint() Savepoint {
	b.open++
	return &savepoint{book: b, mark: len(b.journal)}
}

type savepoint struct {
	book *Book
	mark int
	done bool
}

func (s *savepoint) Revert() {
	if s.done {
		return
	}
	s.done = true
	b := s.book
	for i := len(b.journal) - 1; i >= s.mark; i-- {
		t := b.journal[i]
		b.balances[t.to] = b.balances[t.to].Sub(t.amount)
		if !t.from.IsZero() {
			b.balances[t.from] = b.balances[t.from].Add(t.amount)
		}
	}
	b.journal = b.journal[:s.mark]
	b.release()
}

func (s *savepoint) Release() {
	if s.done {
		return
	}
	s.done = true
	s.book.release()
}

// release drops the undo journal once no checkpoint can need it.
func (b *Book) release() {
	b.open--
	if b.open == 0 {
		b.journal = b.journal[:0]
	}
}

// Supply returns the sum of all balances.
func (b *Book) Supply() decimal.Decimal {
	total := decimal.Zero
	for _, bal := range b.balances {
		total = total.Add(bal)
	}
	return total
}
