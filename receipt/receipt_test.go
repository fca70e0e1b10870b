package receipt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/auctionhouse/auctionhouse"
	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/houseapi"
)

type fixedChain struct{}

func (fixedChain) RunID() string { return "run-1" }
func (fixedChain) Head() string  { return "abc123" }

func settledEvent() auctionhouse.AuctionSettled {
	return auctionhouse.AuctionSettled{
		AuctionID: 2,
		Winner:    "alice",
		Amount:    decimal.NewFromInt(1000),
		Fee:       decimal.NewFromInt(50),
		Proceeds:  decimal.NewFromInt(950),
		Recipient: "owner",
		SettledAt: time.Unix(1_700_003_601, 0),
	}
}

func decodeReceipt(t *testing.T, raw houseapi.ReceiptCOSE, pub *ecdsa.PublicKey) *houseapi.SettlementReceipt {
	t.Helper()
	var msg cose.Sign1Message
	assert.NoError(t, msg.UnmarshalCBOR(raw))

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, pub)
	assert.NoError(t, err)
	assert.NoError(t, msg.Verify(nil, verifier))

	var r houseapi.SettlementReceipt
	assert.NoError(t, cbor.Unmarshal(msg.Payload, &r))
	return &r
}

func TestSigner_PublicKeyPEM(t *testing.T) {
	s, err := NewSigner()
	assert.NoError(t, err)

	pemStr, err := s.PublicKeyPEM()
	assert.NoError(t, err)
	check.True(t, strings.HasPrefix(pemStr, "-----BEGIN PUBLIC KEY-----"))

	block, _ := pem.Decode([]byte(pemStr))
	assert.NotNil(t, block)
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	assert.NoError(t, err)
	check.True(t, s.PublicKey.Equal(pub))
	check.Equal(t, 32, len(s.KeyID()))
}

func TestLoadSigner_RoundTrip(t *testing.T) {
	s, err := NewSigner()
	assert.NoError(t, err)
	keyPEM, err := s.PrivateKeyPEM()
	assert.NoError(t, err)

	loaded, err := LoadSigner([]byte(keyPEM))
	assert.NoError(t, err)
	check.Equal(t, s.KeyID(), loaded.KeyID())
}

func TestLoadSigner_Rejects(t *testing.T) {
	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	assert.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(p384)
	assert.NoError(t, err)

	tests := []struct {
		name  string
		input []byte
	}{
		{"not PEM", []byte("garbage")},
		{"wrong block", pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1}})},
		{"wrong curve", pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSigner(tt.input)
			check.Error(t, err)
		})
	}
}

func TestSigner_Sign(t *testing.T) {
	s, err := NewSigner()
	assert.NoError(t, err)

	raw, err := s.Sign(&houseapi.SettlementReceipt{ReceiptID: "r", AuctionID: 9, Amount: decimal.NewFromInt(5)})
	assert.NoError(t, err)

	r := decodeReceipt(t, raw, s.PublicKey)
	check.Equal(t, uint64(9), r.AuctionID)
	check.Equal(t, "5", r.Amount.String())

	other, err := NewSigner()
	assert.NoError(t, err)
	var msg cose.Sign1Message
	assert.NoError(t, msg.UnmarshalCBOR(raw))
	verifier, err := cose.NewVerifier(cose.AlgorithmES256, other.PublicKey)
	assert.NoError(t, err)
	check.Error(t, msg.Verify(nil, verifier))
}

func TestIssuer_IssuesOnSettlement(t *testing.T) {
	s, err := NewSigner()
	assert.NoError(t, err)
	issuer := NewIssuer(s, fixedChain{})

	issuer.Publish(auctionhouse.BidAccepted{AuctionID: 2, Bidder: "alice"})
	check.Equal(t, 0, issuer.Len())

	ev := settledEvent()
	issuer.Publish(ev)
	raw, ok := issuer.Receipt(2)
	assert.True(t, ok)

	r := decodeReceipt(t, raw, s.PublicKey)
	settlement := ev.Settlement()
	check.Equal(t, core.ComputeSettlementHash(&settlement), r.SettlementHash)
	check.Equal(t, core.Address("alice"), r.Winner)
	check.Equal(t, "950", r.Proceeds.String())
	check.Equal(t, ev.SettledAt.Unix(), r.SettledAt.Unix())
	check.Equal(t, "run-1", r.RunID)
	check.Equal(t, "abc123", r.JournalHead)
	check.NotEqual(t, "", r.ReceiptID)

	_, ok = issuer.Receipt(3)
	check.False(t, ok)
}

func TestIssuer_NoChain(t *testing.T) {
	s, err := NewSigner()
	assert.NoError(t, err)
	issuer := NewIssuer(s, nil)

	issuer.Publish(settledEvent())
	raw, ok := issuer.Receipt(2)
	assert.True(t, ok)
	check.Equal(t, "", decodeReceipt(t, raw, s.PublicKey).JournalHead)
}
