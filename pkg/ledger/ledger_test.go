package ledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger/ledgertest"
)

// ───────────────────────────────────────────────────────────────────────────
// Addresses
// ───────────────────────────────────────────────────────────────────────────

func TestAddress_RoundTrip(t *testing.T) {
	addr := ledgertest.NewAddress(7)
	s := addr.String()
	assert.Contains(t, s, "lx1")

	parsed, err := ledger.ParseAddress(s)
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)
}

func TestParseAddress_Invalid(t *testing.T) {
	valid := ledgertest.NewAddress(1).String()

	// flip one data character to break the checksum
	last := valid[len(valid)-1]
	flipped := byte('q')
	if last == 'q' {
		flipped = 'p'
	}
	badChecksum := valid[:len(valid)-1] + string(flipped)

	short, err := bech32.ConvertBits([]byte{1, 2, 3}, 8, 5, true)
	require.NoError(t, err)
	shortAddr, err := bech32.Encode(ledger.AddressHRP, short)
	require.NoError(t, err)

	long, err := bech32.ConvertBits(make([]byte, 32), 8, 5, true)
	require.NoError(t, err)
	otherPrefix, err := bech32.Encode("zz", long)
	require.NoError(t, err)

	for _, s := range []string{"", "not-an-address", badChecksum, shortAddr, otherPrefix} {
		_, err := ledger.ParseAddress(s)
		assert.ErrorIs(t, err, core.ErrInvalidAddress, "expected %q to be invalid", s)
	}
}

func TestAddress_JSON(t *testing.T) {
	addr := ledgertest.NewAddress(3)
	raw, err := json.Marshal(addr)
	require.NoError(t, err)
	assert.Equal(t, `"`+addr.String()+`"`, string(raw))

	var back ledger.Address
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, addr, back)

	assert.Error(t, json.Unmarshal([]byte(`"lx1bogus"`), &back))
}

func TestHoldingAddress_Deterministic(t *testing.T) {
	owner := ledgertest.NewAddress(1)
	asset := ledgertest.NewAddress(2)

	h1 := ledger.HoldingAddress(owner, asset)
	h2 := ledger.HoldingAddress(owner, asset)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, ledger.HoldingAddress(asset, owner))
	assert.False(t, h1.IsZero())
}

// ───────────────────────────────────────────────────────────────────────────
// Signing and wire codec
// ───────────────────────────────────────────────────────────────────────────

func signedTx(t *testing.T, signer ledger.Signer) *ledger.Tx {
	t.Helper()
	asset := ledgertest.NewAddress(9)
	recipient := ledgertest.NewAddress(10)
	msg := ledger.Message{
		FeePayer:        signer.Address(),
		RecentBlockhash: "blockhash-1",
		LastValidHeight: 21,
		Operations: []ledger.Operation{
			ledger.CreateHolding(signer.Address(), recipient, asset),
			ledger.Transfer(ledger.HoldingAddress(signer.Address(), asset), ledger.HoldingAddress(recipient, asset), signer.Address(), asset, 1500),
		},
	}
	tx, err := ledger.SignMessage(context.Background(), signer, msg)
	require.NoError(t, err)
	return tx
}

func TestSignMessage_Verify(t *testing.T) {
	tx := signedTx(t, ledgertest.NewSigner(1))
	require.Len(t, tx.Signatures, 1)
	assert.NoError(t, tx.Verify())
	assert.Equal(t, tx.Signatures[0], tx.ID())
}

func TestSignMessage_WrongFeePayer(t *testing.T) {
	signer := ledgertest.NewSigner(1)
	msg := ledger.Message{FeePayer: ledgertest.NewAddress(2)}
	_, err := ledger.SignMessage(context.Background(), signer, msg)
	assert.Error(t, err)
}

func TestTx_VerifyTampered(t *testing.T) {
	tx := signedTx(t, ledgertest.NewSigner(1))
	tx.Message.Operations[1].Amount = 999999
	assert.ErrorIs(t, tx.Verify(), core.ErrSignatureMismatch)

	unsigned := &ledger.Tx{Message: tx.Message}
	assert.ErrorIs(t, unsigned.Verify(), core.ErrSignatureMismatch)
}

func TestCodec_RoundTrip(t *testing.T) {
	tx := signedTx(t, ledgertest.NewSigner(4))

	serialized, err := ledger.EncodeTx(tx)
	require.NoError(t, err)

	decoded, err := ledger.DecodeTx(serialized)
	require.NoError(t, err)
	assert.Equal(t, tx, decoded)
	assert.NoError(t, decoded.Verify())
}

func TestDecodeTx_Garbage(t *testing.T) {
	_, err := ledger.DecodeTx("%%%")
	assert.Error(t, err)

	_, err = ledger.DecodeTx("bm90IGpzb24=") // "not json"
	assert.Error(t, err)
}

func TestSignature_String(t *testing.T) {
	tx := signedTx(t, ledgertest.NewSigner(5))
	s := tx.ID().String()

	parsed, err := ledger.ParseSignature(s)
	require.NoError(t, err)
	assert.Equal(t, tx.ID(), parsed)

	_, err = ledger.ParseSignature("abc")
	assert.Error(t, err)
}

func TestKeySigner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ledgertest.NewSigner(1).Sign(ctx, []byte("msg"))
	assert.ErrorIs(t, err, context.Canceled)
}

// ───────────────────────────────────────────────────────────────────────────
// Confirmation
// ───────────────────────────────────────────────────────────────────────────

func submit(t *testing.T, l *ledgertest.Ledger) ledger.Signature {
	t.Helper()
	signer := ledgertest.NewSigner(1)
	asset := ledgertest.NewAddress(9)
	l.Fund(signer.Address(), asset, 10_000)

	fin, err := l.LatestFinality(context.Background())
	require.NoError(t, err)
	recipient := ledgertest.NewAddress(10)
	msg := ledger.Message{
		FeePayer:        signer.Address(),
		RecentBlockhash: fin.Blockhash,
		LastValidHeight: fin.LastValidHeight,
		Operations: []ledger.Operation{
			ledger.CreateHolding(signer.Address(), recipient, asset),
			ledger.Transfer(ledger.HoldingAddress(signer.Address(), asset), ledger.HoldingAddress(recipient, asset), signer.Address(), asset, 100),
		},
	}
	tx, err := ledger.SignMessage(context.Background(), signer, msg)
	require.NoError(t, err)
	sig, err := l.SendTransaction(context.Background(), tx)
	require.NoError(t, err)
	return sig
}

func TestWaitForConfirmation_Confirmed(t *testing.T) {
	l := ledgertest.New()
	sig := submit(t, l)

	err := ledger.WaitForConfirmation(context.Background(), l, sig, l.Height()+20, time.Millisecond)
	assert.NoError(t, err)
}

func TestWaitForConfirmation_Rejected(t *testing.T) {
	l := ledgertest.New()
	l.RejectAt(0, "custom program error")
	sig := submit(t, l)

	err := ledger.WaitForConfirmation(context.Background(), l, sig, l.Height()+20, time.Millisecond)
	assert.ErrorIs(t, err, ledger.ErrRejected)
	assert.Contains(t, err.Error(), "custom program error")
}

func TestWaitForConfirmation_Expired(t *testing.T) {
	l := ledgertest.New(ledgertest.WithWindow(3))
	l.DropAt(0)
	sig := submit(t, l)

	err := ledger.WaitForConfirmation(context.Background(), l, sig, l.Height()+3, time.Millisecond)
	assert.ErrorIs(t, err, ledger.ErrExpired)
}

func TestWaitForConfirmation_ContextTimeout(t *testing.T) {
	l := ledgertest.New()
	l.DropAt(0)
	sig := submit(t, l)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := ledger.WaitForConfirmation(ctx, l, sig, 1<<62, time.Millisecond)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
