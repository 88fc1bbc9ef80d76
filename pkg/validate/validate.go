package validate

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger"
)

// Rejection reasons.
const (
	ReasonInvalidAddress = "invalid address"
	ReasonInvalidAmount  = "invalid amount"
	ReasonPrecision      = "too many decimal places"
	ReasonOverflow       = "amount too large"
	ReasonDuplicate      = "duplicate address"
)

// Rejection is an input entry that failed validation. Index is its position
// in the input list.
type Rejection struct {
	Index     int            `json:"index"`
	Recipient core.Recipient `json:"recipient"`
	Reason    string         `json:"reason"`
}

// Report partitions an input list. Every input entry appears exactly once in
// Valid or Invalid.
type Report struct {
	Valid      []core.Recipient `json:"valid"`
	Invalid    []Rejection      `json:"invalid"`
	Duplicates int              `json:"duplicates"`
	// Total is the sum of valid amounts in whole asset units.
	Total decimal.Decimal `json:"total"`
}

// Err returns core.ErrInvalidRecipients if any entry was rejected, or
// core.ErrNoRecipients if nothing is valid.
func (r *Report) Err() error {
	if len(r.Invalid) > 0 {
		return fmt.Errorf("%w: %d rejected", core.ErrInvalidRecipients, len(r.Invalid))
	}
	if len(r.Valid) == 0 {
		return core.ErrNoRecipients
	}
	return nil
}

type options struct {
	decimals    uint8
	hasDecimals bool
}

// Option configures validation.
type Option func(*options)

// Decimals checks that amounts fit the asset's precision: at most d fractional
// digits and amount*10^d representable as an unsigned 64-bit integer.
func Decimals(d uint8) Option {
	return func(o *options) {
		o.decimals = d
		o.hasDecimals = true
	}
}

// Recipients validates raw. Addresses are compared in their canonical
// encoding, so the first occurrence of an address stays valid and later
// occurrences are rejected as duplicates.
func Recipients(raw []core.Recipient, opts ...Option) *Report {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	report := &Report{
		Valid:   []core.Recipient{},
		Invalid: []Rejection{},
		Total:   decimal.Zero,
	}
	seen := make(map[ledger.Address]bool, len(raw))
	duplicated := make(map[ledger.Address]bool)

	for i, r := range raw {
		reject := func(reason string) {
			report.Invalid = append(report.Invalid, Rejection{Index: i, Recipient: r, Reason: reason})
		}

		addr, err := ledger.ParseAddress(strings.TrimSpace(r.Address))
		if err != nil {
			reject(ReasonInvalidAddress)
			continue
		}

		amount, err := ParseAmount(r.Amount)
		if err != nil {
			reject(amountReason(err))
			continue
		}
		if o.hasDecimals {
			if _, err := BaseUnits(amount, o.decimals); err != nil {
				reject(amountReason(err))
				continue
			}
		}

		if seen[addr] {
			duplicated[addr] = true
			reject(ReasonDuplicate)
			continue
		}
		seen[addr] = true

		report.Valid = append(report.Valid, core.Recipient{Address: addr.String(), Amount: strings.TrimSpace(r.Amount)})
		report.Total = report.Total.Add(amount)
	}

	report.Duplicates = len(duplicated)
	return report
}

// MaxAmountLength bounds the text of one amount.
const MaxAmountLength = 128

// Every uint64 has at most 20 digits, and no asset has more than 255
// decimals.
const (
	maxIntegerDigits  = 20
	maxFractionDigits = 255
)

func amountReason(err error) string {
	switch {
	case errors.Is(err, core.ErrAmountPrecision):
		return ReasonPrecision
	case errors.Is(err, core.ErrAmountOverflow):
		return ReasonOverflow
	default:
		return ReasonInvalidAmount
	}
}

// ParseAmount parses a strictly positive decimal amount. Amounts whose
// magnitude no uint64 base-unit count can hold are refused before any
// arithmetic: ErrAmountOverflow when too large, ErrAmountPrecision when
// smaller than the base unit of any asset.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if len(s) > MaxAmountLength {
		return decimal.Zero, fmt.Errorf("%w: longer than %d characters", core.ErrInvalidAmount, MaxAmountLength)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}
	if d.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}

	// The value lies in [10^(digits+exp-1), 10^(digits+exp)).
	magnitude := int64(len(d.Coefficient().String())) + int64(d.Exponent())
	switch {
	case magnitude > maxIntegerDigits:
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrAmountOverflow, s)
	case magnitude <= -maxFractionDigits:
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrAmountPrecision, s)
	}
	return d, nil
}

// BaseUnits converts an amount in whole asset units to base units.
func BaseUnits(amount decimal.Decimal, decimals uint8) (uint64, error) {
	scaled := amount.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %s with %d decimals", core.ErrAmountPrecision, amount, decimals)
	}
	n := scaled.BigInt()
	if n.Sign() <= 0 || !n.IsUint64() {
		return 0, fmt.Errorf("%w: %s", core.ErrAmountOverflow, amount)
	}
	return n.Uint64(), nil
}

// ParseBaseUnits parses s and converts it to base units in one step.
func ParseBaseUnits(s string, decimals uint8) (uint64, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	return BaseUnits(d, decimals)
}

// EstimateFees returns the advisory network fee for an airdrop to n
// recipients: one default batch fee per planned batch.
func EstimateFees(n int) uint64 {
	if n <= 0 {
		return 0
	}
	batches := (n + core.MaxBatchSize - 1) / core.MaxBatchSize
	return uint64(batches) * core.DefaultBatchFee
}

// FormatBaseUnits renders base units in whole asset units.
func FormatBaseUnits(units uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -int32(decimals)).String()
}
