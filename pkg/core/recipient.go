package core

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Recipient is one payee of an airdrop. Amount is a decimal string expressed
// in whole asset units; it is scaled by the asset decimals at build time.
type Recipient struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// UnmarshalJSON accepts the legacy "wallet" key as an alias for "address".
func (r *Recipient) UnmarshalJSON(data []byte) error {
	var raw struct {
		Address string `json:"address"`
		Wallet  string `json:"wallet"`
		Amount  string `json:"amount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Address = raw.Address
	if r.Address == "" {
		r.Address = raw.Wallet
	}
	r.Amount = raw.Amount
	return nil
}

// RecipientFailure is a recipient that could not be paid together with the reason.
type RecipientFailure struct {
	Recipient Recipient `json:"recipient"`
	Reason    string    `json:"reason"`
}

// RecipientList is the stored form of a recipient slice. It serializes to a
// JSON array of {address, amount} objects so replays and audits are exact.
type RecipientList []Recipient

// Value implements driver.Valuer.
func (l RecipientList) Value() (driver.Value, error) {
	if l == nil {
		l = RecipientList{}
	}
	b, err := json.Marshal([]Recipient(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *RecipientList) Scan(src any) error {
	return scanJSON(src, (*[]Recipient)(l))
}

// StringList stores a string slice as a JSON array.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	return scanJSON(src, (*[]string)(l))
}

// IntList stores an int slice as a JSON array.
type IntList []int

// Value implements driver.Valuer.
func (l IntList) Value() (driver.Value, error) {
	if l == nil {
		l = IntList{}
	}
	b, err := json.Marshal([]int(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *IntList) Scan(src any) error {
	return scanJSON(src, (*[]int)(l))
}

func scanJSON(src any, dst any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("airdrop: cannot scan %T into json column", src)
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}
