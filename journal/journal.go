// Package journal records engine events as a hash-chained, deterministically
// CBOR-encoded log that off-chain observers can replay and verify.
package journal

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/cloudx-io/auctionhouse/auctionhouse"
	"github.com/cloudx-io/auctionhouse/core"
)

const mirrorTimeout = 5 * time.Second

// Entry is one journaled event.
type Entry struct {
	RunID      string    `json:"run_id"`
	Seq        uint64    `json:"seq"`
	Kind       string    `json:"kind"`
	Payload    []byte    `json:"payload"`
	PrevHash   string    `json:"prev_hash"`
	Hash       string    `json:"hash"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Mirror persists entries outside the process.
type Mirror interface {
	Append(ctx context.Context, e Entry) error
}

// Journal is an auctionhouse.EventSink. It is safe for concurrent use.
type Journal struct {
	mu      sync.RWMutex
	runID   string
	entries []Entry
	head    string
	enc     cbor.EncMode
	mirror  Mirror
	now     func() time.Time
}

// New creates an empty journal. mirror may be nil.
func New(mirror Mirror) (*Journal, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	return &Journal{
		runID:  uuid.NewString(),
		enc:    enc,
		mirror: mirror,
		now:    time.Now,
	}, nil
}

// RunID identifies this journal instance; each process run starts a new chain.
func (j *Journal) RunID() string {
	return j.runID
}

// Publish appends ev to the chain and forwards it to the mirror.
// Mirror failures are logged; the in-memory chain stays authoritative.
func (j *Journal) Publish(ev auctionhouse.Event) {
	payload, err := j.enc.Marshal(ev)
	if err != nil {
		log.Printf("ERROR: Failed to encode %s event: %v", ev.EventName(), err)
		return
	}

	j.mu.Lock()
	seq := uint64(len(j.entries)) + 1
	entry := Entry{
		RunID:      j.runID,
		Seq:        seq,
		Kind:       ev.EventName(),
		Payload:    payload,
		PrevHash:   j.head,
		Hash:       core.ComputeEntryHash(j.head, seq, ev.EventName(), payload),
		RecordedAt: j.now().UTC(),
	}
	j.entries = append(j.entries, entry)
	j.head = entry.Hash
	j.mu.Unlock()

	if j.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := j.mirror.Append(ctx, entry); err != nil {
			log.Printf("WARNING: Failed to mirror journal entry %d (%s): %v", entry.Seq, entry.Kind, err)
		}
	}
}

// Len returns the number of entries.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

// Head returns the hash of the latest entry, or "" for an empty journal.
func (j *Journal) Head() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.head
}

// Since returns a copy of the entries with Seq > after.
func (j *Journal) Since(after uint64) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if after >= uint64(len(j.entries)) {
		return nil
	}
	out := make([]Entry, len(j.entries)-int(after))
	copy(out, j.entries[after:])
	return out
}

// Verify checks the whole chain held in memory.
func (j *Journal) Verify() error {
	return Verify(j.Since(0))
}

// Verify checks that entries form an unbroken chain starting at seq 1.
func Verify(entries []Entry) error {
	prev := ""
	for i, e := range entries {
		if e.Seq != uint64(i)+1 {
			return fmt.Errorf("entry %d: expected seq %d, got %d", i, i+1, e.Seq)
		}
		if e.PrevHash != prev {
			return fmt.Errorf("entry %d: prev hash mismatch", e.Seq)
		}
		if want := core.ComputeEntryHash(prev, e.Seq, e.Kind, e.Payload); e.Hash != want {
			return fmt.Errorf("entry %d: hash mismatch", e.Seq)
		}
		prev = e.Hash
	}
	return nil
}

// Decode unmarshals an entry's payload into v.
func Decode(e Entry, v any) error {
	if err := cbor.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s entry %d: %w", e.Kind, e.Seq, err)
	}
	return nil
}
