package receipt

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloudx-io/auctionhouse/auctionhouse"
	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/houseapi"
)

// ChainHead reports the latest journal hash so a receipt can point into the journal.
type ChainHead interface {
	RunID() string
	Head() string
}

// Issuer is an auctionhouse.EventSink that signs a receipt for every settled auction.
// Register it after the journal so the recorded head covers the settlement itself.
type Issuer struct {
	mu       sync.RWMutex
	signer   *Signer
	chain    ChainHead
	now      func() time.Time
	receipts map[uint64]houseapi.ReceiptCOSE
}

// NewIssuer creates an issuer. chain may be nil.
func NewIssuer(signer *Signer, chain ChainHead) *Issuer {
	return &Issuer{
		signer:   signer,
		chain:    chain,
		now:      time.Now,
		receipts: make(map[uint64]houseapi.ReceiptCOSE),
	}
}

func (i *Issuer) Publish(ev auctionhouse.Event) {
	settled, ok := ev.(auctionhouse.AuctionSettled)
	if !ok {
		return
	}

	s := settled.Settlement()
	r := &houseapi.SettlementReceipt{
		ReceiptID:      uuid.NewString(),
		AuctionID:      s.AuctionID,
		Winner:         s.Winner,
		Amount:         s.Amount,
		Fee:            s.Fee,
		Proceeds:       s.Proceeds,
		Recipient:      s.Recipient,
		SettledAt:      s.SettledAt,
		SettlementHash: core.ComputeSettlementHash(&s),
		IssuedAt:       i.now().UTC().Truncate(time.Second),
	}
	if i.chain != nil {
		r.RunID = i.chain.RunID()
		r.JournalHead = i.chain.Head()
	}

	raw, err := i.signer.Sign(r)
	if err != nil {
		log.Printf("ERROR: Failed to issue receipt for auction %d: %v", s.AuctionID, err)
		return
	}

	i.mu.Lock()
	i.receipts[s.AuctionID] = raw
	i.mu.Unlock()
	log.Printf("INFO: Issued receipt %s for auction %d", r.ReceiptID, s.AuctionID)
}

// Receipt returns the receipt issued for an auction.
func (i *Issuer) Receipt(auctionID uint64) (houseapi.ReceiptCOSE, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	raw, ok := i.receipts[auctionID]
	return raw, ok
}

func (i *Issuer) Signer() *Signer {
	return i.signer
}

func (i *Issuer) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.receipts)
}
