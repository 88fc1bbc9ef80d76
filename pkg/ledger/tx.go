package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/ed25519"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
)

// OperationKind names a ledger instruction.
type OperationKind string

const (
	// OpCreateHolding creates Destination as the holding account of Owner for Asset.
	OpCreateHolding OperationKind = "create_holding"
	// OpTransfer moves Amount base units from Source to Destination.
	OpTransfer OperationKind = "transfer"
)

// Operation is one instruction inside a transaction.
type Operation struct {
	Kind        OperationKind `json:"kind"`
	Source      Address       `json:"source"`
	Destination Address       `json:"destination"`
	Owner       Address       `json:"owner"`
	Asset       Address       `json:"asset"`
	Amount      uint64        `json:"amount,omitempty"`
}

// CreateHolding returns the operation creating owner's holding account for
// asset, paid by payer.
func CreateHolding(payer, owner, asset Address) Operation {
	return Operation{
		Kind:        OpCreateHolding,
		Source:      payer,
		Destination: HoldingAddress(owner, asset),
		Owner:       owner,
		Asset:       asset,
	}
}

// Transfer returns the operation moving amount of asset between holding
// accounts. authority must own the source holding account.
func Transfer(source, destination, authority, asset Address, amount uint64) Operation {
	return Operation{
		Kind:        OpTransfer,
		Source:      source,
		Destination: destination,
		Owner:       authority,
		Asset:       asset,
		Amount:      amount,
	}
}

// Message is the signed part of a transaction. RecentBlockhash and
// LastValidHeight bound the window in which it can be finalized.
type Message struct {
	FeePayer        Address     `json:"feePayer"`
	RecentBlockhash string      `json:"recentBlockhash"`
	LastValidHeight uint64      `json:"lastValidHeight"`
	Operations      []Operation `json:"operations"`
}

// Bytes returns the canonical encoding that is signed.
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// SignatureLength is the byte length of an ed25519 signature.
const SignatureLength = ed25519.SignatureSize

// Signature is a fee-payer signature. The first signature of a transaction is
// its identifier on the ledger.
type Signature [SignatureLength]byte

// ParseSignature decodes a base58 signature.
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	raw := base58.Decode(s)
	if len(raw) != SignatureLength {
		return sig, fmt.Errorf("ledger: invalid signature %q", s)
	}
	copy(sig[:], raw)
	return sig, nil
}

// String returns the base58 encoding.
func (s Signature) String() string {
	return base58.Encode(s[:])
}

// IsZero reports whether the signature is unset.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

// MarshalJSON encodes the signature as base58.
func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a base58 signature.
func (s *Signature) UnmarshalJSON(raw []byte) error {
	var enc string
	if err := json.Unmarshal(raw, &enc); err != nil {
		return fmt.Errorf("cannot decode json: %w", err)
	}
	parsed, err := ParseSignature(enc)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Tx is a signed message ready for submission.
type Tx struct {
	Message    Message     `json:"message"`
	Signatures []Signature `json:"signatures"`
}

// ID returns the transaction identifier, its first signature.
func (tx *Tx) ID() Signature {
	if len(tx.Signatures) == 0 {
		return Signature{}
	}
	return tx.Signatures[0]
}

// Verify checks the fee-payer signature against the message.
func (tx *Tx) Verify() error {
	if len(tx.Signatures) == 0 {
		return fmt.Errorf("%w: transaction is not signed", core.ErrSignatureMismatch)
	}
	msg, err := tx.Message.Bytes()
	if err != nil {
		return fmt.Errorf("ledger: encode message: %w", err)
	}
	pub := ed25519.PublicKey(tx.Message.FeePayer[:])
	sig := tx.Signatures[0]
	if !ed25519.Verify(pub, msg, sig[:]) {
		return fmt.Errorf("%w: fee payer %s", core.ErrSignatureMismatch, tx.Message.FeePayer)
	}
	return nil
}
