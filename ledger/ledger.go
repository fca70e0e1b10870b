// Package ledger tracks the settlement-currency credit the house owes to
// outbid and nullified bidders, per auction and per account.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

type key struct {
	auctionID uint64
	account   core.Address
}

// PendingReturns is a sparse map (auction, account) -> amount.
// Zero balances are removed so Entries only lists real credit.
type PendingReturns struct {
	balances map[key]decimal.Decimal
}

// New creates an empty ledger.
func New() *PendingReturns {
	return &PendingReturns{balances: make(map[key]decimal.Decimal)}
}

// Credit adds amount to the account's pending return for the auction.
func (l *PendingReturns) Credit(auctionID uint64, account core.Address, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	k := key{auctionID, account}
	l.balances[k] = l.balances[k].Add(amount)
}

// DebitAll zeroes the account's pending return and returns the prior balance.
// Callers must invoke it before issuing the transfer that pays the balance out.
func (l *PendingReturns) DebitAll(auctionID uint64, account core.Address) decimal.Decimal {
	k := key{auctionID, account}
	amount, ok := l.balances[k]
	if !ok {
		return decimal.Zero
	}
	delete(l.balances, k)
	return amount
}

// Peek returns the pending return without changing it.
func (l *PendingReturns) Peek(auctionID uint64, account core.Address) decimal.Decimal {
	if amount, ok := l.balances[key{auctionID, account}]; ok {
		return amount
	}
	return decimal.Zero
}

// AuctionTotal sums every pending return owed for one auction.
func (l *PendingReturns) AuctionTotal(auctionID uint64) decimal.Decimal {
	total := decimal.Zero
	for k, amount := range l.balances {
		if k.auctionID == auctionID {
			total = total.Add(amount)
		}
	}
	return total
}

// Total sums every pending return across all auctions.
func (l *PendingReturns) Total() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range l.balances {
		total = total.Add(amount)
	}
	return total
}

// Entry is one non-zero pending return.
type Entry struct {
	AuctionID uint64          `json:"auction_id"`
	Account   core.Address    `json:"account"`
	Amount    decimal.Decimal `json:"amount"`
}

// Entries lists all pending returns ordered by auction id, then account.
func (l *PendingReturns) Entries() []Entry {
	entries := make([]Entry, 0, len(l.balances))
	for k, amount := range l.balances {
		entries = append(entries, Entry{AuctionID: k.auctionID, Account: k.account, Amount: amount})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AuctionID != entries[j].AuctionID {
			return entries[i].AuctionID < entries[j].AuctionID
		}
		return entries[i].Account < entries[j].Account
	})
	return entries
}
