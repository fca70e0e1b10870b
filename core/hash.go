package core

import (
	"crypto/sha256"
	"fmt"
)

// ComputeEntryHash computes the chained hash of a journal entry.
// This is used by the journal (to link entries) and by observers (to verify the chain).
//
// Formula: SHA256(prev_hash + "|" + seq + "|" + kind + "|" + hex(payload))
//
// The payload is hex-encoded so arbitrary CBOR bytes cannot collide with the separator.
func ComputeEntryHash(prevHash string, seq uint64, kind string, payload []byte) string {
	data := fmt.Sprintf("%s|%d|%s|%x", prevHash, seq, kind, payload)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ComputeSettlementHash computes the digest binding a settlement's distribution.
//
// Formula: SHA256(auction_id + "|" + winner + "|" + amount + "|" + fee + "|" + proceeds + "|" + recipient)
//
// Amounts use their canonical decimal string so 100 and 100.0 hash identically.
func ComputeSettlementHash(s *Settlement) string {
	data := fmt.Sprintf("%d|%s|%s|%s|%s|%s",
		s.AuctionID, s.Winner, s.Amount.String(), s.Fee.String(), s.Proceeds.String(), s.Recipient)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
