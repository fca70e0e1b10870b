package validation

import (
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/houseapi"
)

// BaseValidationResult contains the checks every signed receipt goes through.
type BaseValidationResult struct {
	SignatureValid    bool
	KeyIDMatch        bool
	ValidationDetails []string
}

// ReceiptValidationInput is what a winner or beneficiary knows about a settlement.
// Zero-valued expectations are not checked.
type ReceiptValidationInput struct {
	Receipt      houseapi.ReceiptCOSE
	PublicKeyPEM string

	AuctionID uint64
	Winner    core.Address
	Amount    *decimal.Decimal
	Recipient core.Address
}

// ReceiptValidationResult contains validation results for a settlement receipt.
type ReceiptValidationResult struct {
	BaseValidationResult
	HashValid         bool
	DistributionValid bool
	AuctionMatch      bool
	WinnerMatch       bool
	AmountMatch       bool
	RecipientMatch    bool

	// Receipt is the decoded payload, set once the envelope could be parsed.
	Receipt *houseapi.SettlementReceipt
}

// IsValid returns true if all receipt validation checks passed
func (r *ReceiptValidationResult) IsValid() bool {
	return r.SignatureValid && r.KeyIDMatch && r.HashValid && r.DistributionValid &&
		r.AuctionMatch && r.WinnerMatch && r.AmountMatch && r.RecipientMatch
}
