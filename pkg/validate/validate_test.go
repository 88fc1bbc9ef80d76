package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger/ledgertest"
)

func addr(seed byte) string {
	return ledgertest.NewAddress(seed).String()
}

func TestRecipients_AllValid(t *testing.T) {
	raw := []core.Recipient{
		{Address: addr(1), Amount: "1"},
		{Address: addr(2), Amount: "0.5"},
		{Address: "  " + addr(3) + " ", Amount: " 2.25 "},
	}

	report := Recipients(raw, Decimals(6))
	require.NoError(t, report.Err())
	assert.Len(t, report.Valid, 3)
	assert.Empty(t, report.Invalid)
	assert.Equal(t, 0, report.Duplicates)
	assert.True(t, report.Total.Equal(decimal.RequireFromString("3.75")))
	assert.Equal(t, addr(3), report.Valid[2].Address)
	assert.Equal(t, "2.25", report.Valid[2].Amount)
}

func TestRecipients_Classification(t *testing.T) {
	raw := []core.Recipient{
		{Address: addr(1), Amount: "1"},         // valid
		{Address: "not-an-address", Amount: "1"}, // bad address
		{Address: addr(2), Amount: "0"},          // zero
		{Address: addr(3), Amount: "-4"},         // negative
		{Address: addr(4), Amount: "abc"},        // not a number
		{Address: addr(5), Amount: "0.0000001"},  // too precise for 6 decimals
		{Address: addr(1), Amount: "3"},          // duplicate of index 0
		{Address: addr(6), Amount: "1e30"},       // overflow
	}

	report := Recipients(raw, Decimals(6))
	assert.ErrorIs(t, report.Err(), core.ErrInvalidRecipients)
	require.Len(t, report.Valid, 1)
	assert.Equal(t, addr(1), report.Valid[0].Address)

	reasons := map[int]string{}
	for _, r := range report.Invalid {
		reasons[r.Index] = r.Reason
	}
	assert.Equal(t, map[int]string{
		1: ReasonInvalidAddress,
		2: ReasonInvalidAmount,
		3: ReasonInvalidAmount,
		4: ReasonInvalidAmount,
		5: ReasonPrecision,
		6: ReasonDuplicate,
		7: ReasonOverflow,
	}, reasons)
	assert.Equal(t, 1, report.Duplicates)
}

func TestRecipients_EveryEntryAccountedFor(t *testing.T) {
	raw := make([]core.Recipient, 0, 30)
	for i := 0; i < 30; i++ {
		a := addr(byte(i % 12))
		amount := "1"
		if i%7 == 0 {
			amount = "nope"
		}
		raw = append(raw, core.Recipient{Address: a, Amount: amount})
	}

	report := Recipients(raw)
	assert.Equal(t, len(raw), len(report.Valid)+len(report.Invalid))
}

func TestRecipients_DuplicatesCountDistinctAddresses(t *testing.T) {
	raw := []core.Recipient{
		{Address: addr(1), Amount: "1"},
		{Address: addr(1), Amount: "1"},
		{Address: addr(1), Amount: "1"},
		{Address: addr(2), Amount: "1"},
		{Address: addr(2), Amount: "1"},
	}

	report := Recipients(raw)
	assert.Len(t, report.Valid, 2)
	assert.Len(t, report.Invalid, 3)
	assert.Equal(t, 2, report.Duplicates)
}

func TestRecipients_Empty(t *testing.T) {
	report := Recipients(nil)
	assert.ErrorIs(t, report.Err(), core.ErrNoRecipients)
	assert.NotNil(t, report.Valid)
	assert.NotNil(t, report.Invalid)
}

func TestRecipients_NoDecimalsSkipsPrecision(t *testing.T) {
	report := Recipients([]core.Recipient{{Address: addr(1), Amount: "0.000000000001"}})
	assert.NoError(t, report.Err())
}

func TestRecipients_Idempotent(t *testing.T) {
	raw := []core.Recipient{
		{Address: addr(1), Amount: "1"},
		{Address: addr(2), Amount: "0"},
		{Address: addr(1), Amount: "2"},
		{Address: "bogus", Amount: "1"},
		{Address: addr(3), Amount: "0.125"},
	}

	first := Recipients(raw, Decimals(2))
	second := Recipients(raw, Decimals(2))
	assert.Equal(t, first, second)

	again := Recipients(first.Valid, Decimals(2))
	assert.Equal(t, first.Valid, again.Valid, "valid entries stay valid")
	assert.Empty(t, again.Invalid)
}

func TestRecipients_ExtremeExponentsRejectedQuickly(t *testing.T) {
	raw := []core.Recipient{
		{Address: addr(1), Amount: "1e50000000"},
		{Address: addr(2), Amount: "1e-50000000"},
		{Address: addr(3), Amount: "1" + strings.Repeat("0", MaxAmountLength)},
		{Address: addr(4), Amount: "1"},
	}

	start := time.Now()
	report := Recipients(raw)
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, report.Valid, 1)
	assert.Equal(t, addr(4), report.Valid[0].Address)
	reasons := map[int]string{}
	for _, r := range report.Invalid {
		reasons[r.Index] = r.Reason
	}
	assert.Equal(t, map[int]string{
		0: ReasonOverflow,
		1: ReasonPrecision,
		2: ReasonInvalidAmount,
	}, reasons)
}

func TestParseAmount_MagnitudeBounds(t *testing.T) {
	tests := []struct {
		amount string
		err    error
	}{
		{"18446744073709551615", nil},
		{"1e19", nil},
		{"1e20", core.ErrAmountOverflow},
		{"123456789012345678901", core.ErrAmountOverflow},
		{"1e-255", nil},
		{"1e-256", core.ErrAmountPrecision},
		{"2.5e-254", nil},
		{"9.9e-256", core.ErrAmountPrecision},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			_, err := ParseAmount(tt.amount)
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

// ───────────────────────────────────────────────────────────────────────────
// Amounts and fees
// ───────────────────────────────────────────────────────────────────────────

func TestBaseUnits(t *testing.T) {
	n, err := ParseBaseUnits("1.5", 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), n)

	n, err = ParseBaseUnits("42", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)

	_, err = ParseBaseUnits("1.5", 0)
	assert.ErrorIs(t, err, core.ErrAmountPrecision)

	_, err = ParseBaseUnits("18446744073709551616", 0)
	assert.ErrorIs(t, err, core.ErrAmountOverflow)

	_, err = ParseBaseUnits("0", 2)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestFormatBaseUnits(t *testing.T) {
	assert.Equal(t, "1.5", FormatBaseUnits(1_500_000_000, 9))
	assert.Equal(t, "42", FormatBaseUnits(42, 0))
}

func TestEstimateFees(t *testing.T) {
	assert.Equal(t, uint64(0), EstimateFees(0))
	assert.Equal(t, uint64(5000), EstimateFees(1))
	assert.Equal(t, uint64(5000), EstimateFees(10))
	assert.Equal(t, uint64(15000), EstimateFees(25))
	assert.Equal(t, uint64(10000), EstimateFees(11))
}

// ───────────────────────────────────────────────────────────────────────────
// CSV
// ───────────────────────────────────────────────────────────────────────────

func TestParseCSV(t *testing.T) {
	in := "wallet,amount\n" +
		addr(1) + ",1.5\n" +
		"\n" +
		addr(2) + ",\n" +
		",3\n" +
		addr(3) + ",2\n"

	recipients, rowErrs, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []core.Recipient{
		{Address: addr(1), Amount: "1.5"},
		{Address: addr(3), Amount: "2"},
	}, recipients)
	assert.Equal(t, []RowError{
		{Line: 4, Reason: "missing amount"},
		{Line: 5, Reason: "missing address"},
	}, rowErrs)
}

func TestParseCSV_ReorderedColumns(t *testing.T) {
	in := "amount,note,Address\n7,hello," + addr(1) + "\n"
	recipients, rowErrs, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	assert.Equal(t, []core.Recipient{{Address: addr(1), Amount: "7"}}, recipients)
}

func TestParseCSV_BadHeader(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader("name,value\nx,1\n"))
	assert.ErrorIs(t, err, ErrCSVHeader)

	_, _, err = ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrCSVHeader)
}
