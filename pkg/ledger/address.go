package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"golang.org/x/crypto/ed25519"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
)

const (
	// AddressLength is the byte length of every ledger address.
	AddressLength = 32

	// AddressHRP is the human readable part of encoded addresses.
	AddressHRP = "lx"
)

// Address identifies an account on the ledger. Owner addresses are ed25519
// public keys; holding addresses are derived from an owner and an asset.
type Address [AddressLength]byte

// ParseAddress decodes a bech32 address. Any failure wraps core.ErrInvalidAddress.
func ParseAddress(s string) (Address, error) {
	var a Address
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return a, fmt.Errorf("%w: %v", core.ErrInvalidAddress, err)
	}
	if hrp != AddressHRP {
		return a, fmt.Errorf("%w: unexpected prefix %q", core.ErrInvalidAddress, hrp)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return a, fmt.Errorf("%w: convert bits: %v", core.ErrInvalidAddress, err)
	}
	if len(payload) != AddressLength {
		return a, fmt.Errorf("%w: length %d", core.ErrInvalidAddress, len(payload))
	}
	copy(a[:], payload)
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error. Intended for tests
// and constants.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromPublicKey returns the address owned by the given ed25519 key.
func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	var a Address
	copy(a[:], pub)
	return a
}

// String returns the bech32 encoding.
func (a Address) String() string {
	data, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		return fmt.Sprintf("(invalid %X)", a[:])
	}
	s, err := bech32.Encode(AddressHRP, data)
	if err != nil {
		return fmt.Sprintf("(invalid %X)", a[:])
	}
	return s
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Equals checks if two addresses are the same
func (a Address) Equals(b Address) bool {
	return bytes.Equal(a[:], b[:])
}

// MarshalJSON encodes the address as its bech32 string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a bech32 string.
func (a *Address) UnmarshalJSON(raw []byte) error {
	var enc string
	if err := json.Unmarshal(raw, &enc); err != nil {
		return fmt.Errorf("cannot decode json: %w", err)
	}
	parsed, err := ParseAddress(enc)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// HoldingAddress derives the account that holds asset on behalf of owner.
// Derivation is deterministic and needs no network access.
func HoldingAddress(owner, asset Address) Address {
	h := sha256.New()
	h.Write([]byte("holding"))
	h.Write(owner[:])
	h.Write(asset[:])
	var a Address
	copy(a[:], h.Sum(nil))
	return a
}
