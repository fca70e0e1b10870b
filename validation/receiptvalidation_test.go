package validation

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/auctionhouse"
	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/houseapi"
	"github.com/cloudx-io/auctionhouse/journal"
	"github.com/cloudx-io/auctionhouse/receipt"
	"github.com/cloudx-io/auctionhouse/token"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// settledReceipt runs one auction through a real house and returns its receipt.
func settledReceipt(t *testing.T) (houseapi.ReceiptCOSE, *receipt.Signer) {
	t.Helper()
	signer, err := receipt.NewSigner()
	assert.NoError(t, err)
	j, err := journal.New(nil)
	assert.NoError(t, err)
	issuer := receipt.NewIssuer(signer, j)

	usd := token.NewBook("USD")
	usd.Mint("alice", decimal.NewFromInt(5_000))
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	h, err := auctionhouse.New(auctionhouse.Config{
		Owner:       "owner",
		Account:     "house",
		FeeReceiver: "treasury",
		FeePercent:  core.PercentOf(5),
		Defaults: core.AuctionParameters{
			TimeBuffer:                5 * time.Minute,
			ReservePrice:              decimal.NewFromInt(100),
			MinBidIncrementPercentage: core.PercentOf(10),
			Duration:                  time.Hour,
		},
		Settlement: usd,
		Clock:      clock,
		Sinks:      []auctionhouse.EventSink{j, issuer},
	})
	assert.NoError(t, err)

	id, err := h.CreateAuction("owner", "")
	assert.NoError(t, err)
	assert.NoError(t, h.CreateBid("alice", id, decimal.NewFromInt(1000), "", ""))
	clock.now = clock.now.Add(2 * time.Hour)
	assert.NoError(t, h.SettleAuction("alice", id))

	raw, ok := issuer.Receipt(id)
	assert.True(t, ok)
	return raw, signer
}

func publicKey(t *testing.T, s *receipt.Signer) string {
	t.Helper()
	pemStr, err := s.PublicKeyPEM()
	assert.NoError(t, err)
	return pemStr
}

func TestValidateReceipt_Valid(t *testing.T) {
	raw, signer := settledReceipt(t)
	amount := decimal.NewFromInt(1000)

	result, err := ValidateReceipt(&ReceiptValidationInput{
		Receipt:      raw,
		PublicKeyPEM: publicKey(t, signer),
		AuctionID:    1,
		Winner:       "alice",
		Amount:       &amount,
		Recipient:    "owner",
	})
	assert.NoError(t, err)
	check.True(t, result.IsValid())
	check.Equal(t, "50", result.Receipt.Fee.String())
	check.NotEqual(t, "", result.Receipt.JournalHead)
	check.True(t, len(result.ValidationDetails) > 0)
}

func TestValidateReceipt_WrongKey(t *testing.T) {
	raw, _ := settledReceipt(t)
	other, err := receipt.NewSigner()
	assert.NoError(t, err)

	result, err := ValidateReceipt(&ReceiptValidationInput{Receipt: raw, PublicKeyPEM: publicKey(t, other)})
	assert.NoError(t, err)
	check.False(t, result.SignatureValid)
	check.False(t, result.KeyIDMatch)
	check.True(t, result.HashValid)
	check.False(t, result.IsValid())
}

func TestValidateReceipt_Mismatches(t *testing.T) {
	raw, signer := settledReceipt(t)
	amount := decimal.NewFromInt(999)

	result, err := ValidateReceipt(&ReceiptValidationInput{
		Receipt:      raw,
		PublicKeyPEM: publicKey(t, signer),
		AuctionID:    2,
		Winner:       "bob",
		Amount:       &amount,
		Recipient:    "carol",
	})
	assert.NoError(t, err)
	check.True(t, result.SignatureValid)
	check.False(t, result.AuctionMatch)
	check.False(t, result.WinnerMatch)
	check.False(t, result.AmountMatch)
	check.False(t, result.RecipientMatch)
	check.False(t, result.IsValid())
}

func TestValidateReceipt_ForgedPayload(t *testing.T) {
	signer, err := receipt.NewSigner()
	assert.NoError(t, err)

	// Validly signed, but the hash does not describe the distribution.
	forged := &houseapi.SettlementReceipt{
		AuctionID:      1,
		Winner:         "alice",
		Amount:         decimal.NewFromInt(1000),
		Fee:            decimal.NewFromInt(10),
		Proceeds:       decimal.NewFromInt(950),
		Recipient:      "owner",
		SettlementHash: "00",
	}
	raw, err := signer.Sign(forged)
	assert.NoError(t, err)

	result, err := ValidateReceipt(&ReceiptValidationInput{Receipt: raw, PublicKeyPEM: publicKey(t, signer)})
	assert.NoError(t, err)
	check.True(t, result.SignatureValid)
	check.False(t, result.HashValid)
	check.False(t, result.DistributionValid)
	check.False(t, result.IsValid())
}

func TestValidateReceipt_MalformedInput(t *testing.T) {
	raw, signer := settledReceipt(t)

	_, err := ValidateReceipt(&ReceiptValidationInput{Receipt: raw, PublicKeyPEM: "not a key"})
	check.Error(t, err)

	_, err = ValidateReceipt(&ReceiptValidationInput{Receipt: houseapi.ReceiptCOSE("junk"), PublicKeyPEM: publicKey(t, signer)})
	check.Error(t, err)
}

func TestValidateReceipt_TransportEncodings(t *testing.T) {
	raw, signer := settledReceipt(t)
	compressed, err := raw.CompressGzip()
	assert.NoError(t, err)
	decompressed, err := compressed.Decompress()
	assert.NoError(t, err)

	result, err := ValidateReceipt(&ReceiptValidationInput{Receipt: decompressed, PublicKeyPEM: publicKey(t, signer)})
	assert.NoError(t, err)
	check.True(t, result.IsValid())
}
