package houseapi

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

// ReceiptCOSE is a raw COSE_Sign1 settlement receipt.
type ReceiptCOSE []byte

// ReceiptCOSEBase64 is a base64-encoded receipt (standard or URL-safe alphabet).
type ReceiptCOSEBase64 string

// ReceiptCOSEGzip is a gzip-compressed receipt in unpadded URL-safe base64,
// small enough to travel in a query string.
type ReceiptCOSEGzip string

func (r ReceiptCOSE) EncodeBase64() ReceiptCOSEBase64 {
	return ReceiptCOSEBase64(base64.StdEncoding.EncodeToString(r))
}

func (r ReceiptCOSE) EncodeURLSafe() ReceiptCOSEBase64 {
	return ReceiptCOSEBase64(base64.RawURLEncoding.EncodeToString(r))
}

// CompressGzip compresses the receipt. Output is deterministic for equal input.
func (r ReceiptCOSE) CompressGzip() (ReceiptCOSEGzip, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return "", fmt.Errorf("create gzip writer: %w", err)
	}
	if _, err := zw.Write(r); err != nil {
		return "", fmt.Errorf("compress receipt: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finish gzip stream: %w", err)
	}
	return ReceiptCOSEGzip(base64.RawURLEncoding.EncodeToString(buf.Bytes())), nil
}

func (b ReceiptCOSEBase64) String() string {
	return string(b)
}

// Decode accepts padded standard base64 or unpadded URL-safe base64.
func (b ReceiptCOSEBase64) Decode() (ReceiptCOSE, error) {
	if b == "" {
		return nil, fmt.Errorf("empty receipt")
	}
	if raw, err := base64.StdEncoding.DecodeString(string(b)); err == nil {
		return raw, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(string(b))
	if err != nil {
		return nil, fmt.Errorf("decode base64 receipt: %w", err)
	}
	return raw, nil
}

func (g ReceiptCOSEGzip) String() string {
	return string(g)
}

func (g ReceiptCOSEGzip) Decompress() (ReceiptCOSE, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(string(g))
	if err != nil {
		return nil, fmt.Errorf("decode gzip receipt: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress receipt: %w", err)
	}
	return raw, nil
}

// SettlementReceipt is the payload signed into a receipt.
type SettlementReceipt struct {
	ReceiptID      string          `json:"receipt_id"`
	RunID          string          `json:"run_id,omitempty"`
	AuctionID      uint64          `json:"auction_id"`
	Winner         core.Address    `json:"winner"`
	Amount         decimal.Decimal `json:"amount"`
	Fee            decimal.Decimal `json:"fee"`
	Proceeds       decimal.Decimal `json:"proceeds"`
	Recipient      core.Address    `json:"recipient"`
	SettledAt      time.Time       `json:"settled_at"`
	SettlementHash string          `json:"settlement_hash"`
	JournalHead    string          `json:"journal_head,omitempty"`
	IssuedAt       time.Time       `json:"issued_at"`
}

// Settlement returns the settlement the receipt attests to.
func (r *SettlementReceipt) Settlement() core.Settlement {
	return core.Settlement{
		AuctionID: r.AuctionID,
		Winner:    r.Winner,
		Amount:    r.Amount,
		Fee:       r.Fee,
		Proceeds:  r.Proceeds,
		Recipient: r.Recipient,
		SettledAt: r.SettledAt,
	}
}
