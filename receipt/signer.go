// Package receipt signs settlement receipts as COSE_Sign1 messages (ES256) so
// winners and beneficiaries can prove a settlement outside the house.
package receipt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/auctionhouse/houseapi"
)

const Algorithm = "ES256"

// Signer holds the house's receipt signing key.
type Signer struct {
	privateKey *ecdsa.PrivateKey // never leaves the process
	PublicKey  *ecdsa.PublicKey
	signer     cose.Signer
	keyID      string
	enc        cbor.EncMode
}

// NewSigner generates a fresh P-256 key pair.
func NewSigner() (*Signer, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return newSigner(key)
}

// LoadSigner reads a PEM-encoded EC private key ("EC PRIVATE KEY" or PKCS#8).
func LoadSigner(pemData []byte) (*Signer, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in signing key")
	}

	var key *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		k, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse EC private key: %w", err)
		}
		key = k
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#8 private key: %w", err)
		}
		ecKey, ok := k.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("signing key is not ECDSA")
		}
		key = ecKey
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}

	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("signing key must use P-256, got %s", key.Curve.Params().Name)
	}
	return newSigner(key)
}

func newSigner(key *ecdsa.PrivateKey) (*Signer, error) {
	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create COSE signer: %w", err)
	}
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	keyID, err := KeyID(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &Signer{
		privateKey: key,
		PublicKey:  &key.PublicKey,
		signer:     signer,
		keyID:      keyID,
		enc:        enc,
	}, nil
}

// KeyID is the hex SHA-256 of the PKIX-encoded public key, truncated to 16 bytes.
func KeyID(pub *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:16]), nil
}

func (s *Signer) KeyID() string {
	return s.keyID
}

// PublicKeyPEM returns the public key in PEM format
func (s *Signer) PublicKeyPEM() (string, error) {
	derBytes, err := x509.MarshalPKIXPublicKey(s.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	pemBlock := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: derBytes,
	}
	return string(pem.EncodeToMemory(pemBlock)), nil
}

// PrivateKeyPEM exports the signing key so a restarted house keeps its identity.
func (s *Signer) PrivateKeyPEM() (string, error) {
	der, err := x509.MarshalECPrivateKey(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})), nil
}

// Sign encodes r as deterministic CBOR and wraps it in a tagged COSE_Sign1
// message carrying the key id in the unprotected header.
func (s *Signer) Sign(r *houseapi.SettlementReceipt) (houseapi.ReceiptCOSE, error) {
	payload, err := s.enc.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode receipt payload: %w", err)
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)
	msg.Headers.Unprotected[cose.HeaderLabelKeyID] = []byte(s.keyID)
	msg.Payload = payload

	if err := msg.Sign(rand.Reader, nil, s.signer); err != nil {
		return nil, fmt.Errorf("failed to sign receipt: %w", err)
	}
	raw, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("failed to encode COSE receipt: %w", err)
	}
	return raw, nil
}
