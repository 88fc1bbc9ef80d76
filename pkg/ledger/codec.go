package ledger

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// EncodeTx serializes a signed transaction into its transport form: base64 of
// the JSON encoding.
func EncodeTx(tx *Tx) (string, error) {
	raw, err := json.Marshal(tx)
	if err != nil {
		return "", fmt.Errorf("ledger: encode tx: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeTx reverses EncodeTx. It does not verify signatures.
func DecodeTx(serialized string) (*Tx, error) {
	raw, err := base64.StdEncoding.DecodeString(serialized)
	if err != nil {
		return nil, fmt.Errorf("ledger: decode base64: %w", err)
	}
	var tx Tx
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("ledger: decode tx: %w", err)
	}
	return &tx, nil
}
