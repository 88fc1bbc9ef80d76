package ledger

import (
	"context"
	"fmt"

	"golang.org/x/crypto/ed25519"
)

// Signer is the signing capability of a job's creator. Signing may suspend for
// an arbitrarily long time (hardware wallet, user confirmation), so it takes a
// context and may refuse.
type Signer interface {
	// Address returns the address the signer controls.
	Address() Address
	// Sign returns a signature over msg.
	Sign(ctx context.Context, msg []byte) (Signature, error)
}

// SignMessage signs msg with s and returns the resulting transaction. The
// message fee payer must be the signer.
func SignMessage(ctx context.Context, s Signer, msg Message) (*Tx, error) {
	if !msg.FeePayer.Equals(s.Address()) {
		return nil, fmt.Errorf("ledger: fee payer %s is not signer %s", msg.FeePayer, s.Address())
	}
	raw, err := msg.Bytes()
	if err != nil {
		return nil, fmt.Errorf("ledger: encode message: %w", err)
	}
	sig, err := s.Sign(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &Tx{Message: msg, Signatures: []Signature{sig}}, nil
}

// KeySigner signs with an in-process ed25519 private key.
type KeySigner struct {
	priv ed25519.PrivateKey
	addr Address
}

var _ Signer = (*KeySigner)(nil)

// NewKeySigner wraps an ed25519 private key.
func NewKeySigner(priv ed25519.PrivateKey) *KeySigner {
	pub := priv.Public().(ed25519.PublicKey)
	return &KeySigner{priv: priv, addr: AddressFromPublicKey(pub)}
}

// KeySignerFromSeed deterministically derives a signer from a 32 byte seed.
// Use for deterministic keys in tests.
func KeySignerFromSeed(seed []byte) *KeySigner {
	return NewKeySigner(ed25519.NewKeyFromSeed(seed))
}

// GenerateKeySigner returns a signer with a random key.
func GenerateKeySigner() (*KeySigner, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: generate key: %w", err)
	}
	return NewKeySigner(priv), nil
}

// Address returns the address of the key.
func (k *KeySigner) Address() Address {
	return k.addr
}

// Sign signs msg. It never suspends.
func (k *KeySigner) Sign(ctx context.Context, msg []byte) (Signature, error) {
	var sig Signature
	if err := ctx.Err(); err != nil {
		return sig, err
	}
	copy(sig[:], ed25519.Sign(k.priv, msg))
	return sig, nil
}
