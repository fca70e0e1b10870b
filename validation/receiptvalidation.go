package validation

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/receipt"
)

// ValidateReceipt validates a settlement receipt against the house public key and
// the caller's expectations.
//
// Returns:
//   - ReceiptValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed receipt or key)
func ValidateReceipt(input *ReceiptValidationInput) (*ReceiptValidationResult, error) {
	pub, err := ParsePublicKeyPEM(input.PublicKeyPEM)
	if err != nil {
		return nil, err
	}
	msg, r, err := ParseReceipt(input.Receipt)
	if err != nil {
		return nil, err
	}

	result := &ReceiptValidationResult{Receipt: r}

	if err := VerifyCOSESignature(msg, pub); err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Signature invalid: %v", err))
	} else {
		result.SignatureValid = true
		result.ValidationDetails = append(result.ValidationDetails, "Signature valid (ES256)")
	}

	result.KeyIDMatch = validateKeyID(msg, pub, result)
	result.HashValid = validateSettlementHash(r.SettlementHash, r.Settlement(), result)
	result.DistributionValid = validateDistribution(r.Settlement(), result)

	result.AuctionMatch = input.AuctionID == 0 || input.AuctionID == r.AuctionID
	if result.AuctionMatch {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Auction id: %d", r.AuctionID))
	} else {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Auction mismatch: expected %d, receipt has %d", input.AuctionID, r.AuctionID))
	}

	result.WinnerMatch = input.Winner.IsZero() || input.Winner == r.Winner
	if !result.WinnerMatch {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner mismatch: expected %s, receipt has %s", input.Winner, r.Winner))
	}

	result.AmountMatch = input.Amount == nil || input.Amount.Equal(r.Amount)
	if !result.AmountMatch {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Amount mismatch: expected %s, receipt has %s", input.Amount, r.Amount))
	}

	result.RecipientMatch = input.Recipient.IsZero() || input.Recipient == r.Recipient
	if !result.RecipientMatch {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Recipient mismatch: expected %s, receipt has %s", input.Recipient, r.Recipient))
	}

	return result, nil
}

func validateKeyID(msg *cose.Sign1Message, pub *ecdsa.PublicKey, result *ReceiptValidationResult) bool {
	expected, err := receipt.KeyID(pub)
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Key id unavailable: %v", err))
		return false
	}
	kid := keyIDHeader(msg)
	if kid == expected {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Key id matches: %s", kid))
		return true
	}
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Key id mismatch: expected %s, receipt has %q", expected, kid))
	return false
}

func validateSettlementHash(attested string, s core.Settlement, result *ReceiptValidationResult) bool {
	computed := core.ComputeSettlementHash(&s)
	if computed == attested {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Settlement hash valid: %s", computed))
		return true
	}
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Settlement hash mismatch: computed %s, receipt has %s", computed, attested))
	return false
}

// validateDistribution checks fee and proceeds account for the whole amount.
func validateDistribution(s core.Settlement, result *ReceiptValidationResult) bool {
	if s.Fee.IsNegative() || s.Proceeds.IsNegative() {
		result.ValidationDetails = append(result.ValidationDetails, "Distribution invalid: negative fee or proceeds")
		return false
	}
	if !s.Fee.Add(s.Proceeds).Equal(s.Amount) {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Distribution invalid: fee %s + proceeds %s != amount %s", s.Fee, s.Proceeds, s.Amount))
		return false
	}
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Distribution valid: fee %s, proceeds %s to %s", s.Fee, s.Proceeds, s.Recipient))
	return true
}
