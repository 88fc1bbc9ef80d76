package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger/ledgertest"
	"github.com/jdziat/simple-durable-airdrops/pkg/planner"
)

func TestBuild_CreatesMissingAccounts(t *testing.T) {
	sender := ledgertest.NewAddress(1)
	asset := ledgertest.NewAddress(2)
	r1, r2 := ledgertest.NewAddress(10), ledgertest.NewAddress(11)

	probes := []planner.Probe{
		{Recipient: core.Recipient{Address: r1.String(), Amount: "1.5"}, Owner: r1, Holding: ledger.HoldingAddress(r1, asset), Exists: false},
		{Recipient: core.Recipient{Address: r2.String(), Amount: "2"}, Owner: r2, Holding: ledger.HoldingAddress(r2, asset), Exists: true},
	}

	built := Build(probes, sender, asset, 6)
	require.Len(t, built.Operations, 3)
	assert.Empty(t, built.Failed)
	assert.Len(t, built.Included, 2)

	create := built.Operations[0]
	assert.Equal(t, ledger.OpCreateHolding, create.Kind)
	assert.Equal(t, sender, create.Source)
	assert.Equal(t, ledger.HoldingAddress(r1, asset), create.Destination)

	transfer := built.Operations[1]
	assert.Equal(t, ledger.OpTransfer, transfer.Kind)
	assert.Equal(t, ledger.HoldingAddress(sender, asset), transfer.Source)
	assert.Equal(t, uint64(1_500_000), transfer.Amount)
	assert.Equal(t, sender, transfer.Owner)

	assert.Equal(t, ledger.OpTransfer, built.Operations[2].Kind)
	assert.Equal(t, uint64(2_000_000), built.Operations[2].Amount)
}

func TestBuild_IsolatesFailures(t *testing.T) {
	sender := ledgertest.NewAddress(1)
	asset := ledgertest.NewAddress(2)
	good := ledgertest.NewAddress(10)

	probes := []planner.Probe{
		{Recipient: core.Recipient{Address: "x", Amount: "1"}, Err: errors.New("lookup failed")},
		{Recipient: core.Recipient{Address: good.String(), Amount: "0.1234567"}, Owner: good, Holding: ledger.HoldingAddress(good, asset)},
		{Recipient: core.Recipient{Address: good.String(), Amount: "3"}, Owner: good, Holding: ledger.HoldingAddress(good, asset), Exists: true},
	}

	built := Build(probes, sender, asset, 2)
	require.Len(t, built.Failed, 2)
	assert.Equal(t, "lookup failed", built.Failed[0].Reason)
	assert.ErrorContains(t, errors.New(built.Failed[1].Reason), "fractional digits")
	assert.Len(t, built.Operations, 1)
	assert.False(t, built.Empty())
}

func TestBuild_AllFailedIsEmpty(t *testing.T) {
	built := Build([]planner.Probe{{Err: errors.New("x")}}, ledgertest.NewAddress(1), ledgertest.NewAddress(2), 0)
	assert.True(t, built.Empty())
	assert.Empty(t, built.Included)
}

func TestEstimateFee(t *testing.T) {
	msg := ledger.Message{}

	l := ledgertest.New(ledgertest.WithFee(7000))
	assert.Equal(t, uint64(7000), EstimateFee(context.Background(), l, msg, nil))

	l = ledgertest.New(ledgertest.WithFee(0))
	assert.Equal(t, core.DefaultBatchFee, EstimateFee(context.Background(), l, msg, nil))

	l = ledgertest.New()
	l.FailFee(errors.New("fee schedule unavailable"))
	assert.Equal(t, core.DefaultBatchFee, EstimateFee(context.Background(), l, msg, nil))
}

func TestNewMessage(t *testing.T) {
	payer := ledgertest.NewAddress(1)
	msg := NewMessage(payer, ledger.Finality{Blockhash: "bh", LastValidHeight: 9}, nil)
	assert.Equal(t, payer, msg.FeePayer)
	assert.Equal(t, "bh", msg.RecentBlockhash)
	assert.Equal(t, uint64(9), msg.LastValidHeight)
}
