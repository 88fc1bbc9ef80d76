package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger/ledgertest"
	"github.com/jdziat/simple-durable-airdrops/pkg/security"
	"github.com/jdziat/simple-durable-airdrops/pkg/validate"
)

func TestNewJob_PlansBatches(t *testing.T) {
	creator := ledgertest.NewAddress(1).String()
	asset := ledgertest.NewAddress(2).String()

	job, report, err := NewJob(creator, asset, 2, recipients(25))
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, creator, job.Creator)
	assert.Equal(t, asset, job.AssetID)
	assert.Equal(t, uint8(2), job.Decimals)
	require.Len(t, job.Batches, 3)
	assert.Equal(t, []int{10, 10, 5}, []int{job.Batches[0].Size(), job.Batches[1].Size(), job.Batches[2].Size()})
	assert.Equal(t, 25, job.TotalRecipients())
	assert.Equal(t, recipient(0), job.Batches[0].Recipients[0])
	assert.Equal(t, recipient(24), job.Batches[2].Recipients[4])
}

func TestNewJob_RefusesDuplicates(t *testing.T) {
	raw := append(recipients(3), recipient(1))

	job, report, err := NewJob(ledgertest.NewAddress(1).String(), ledgertest.NewAddress(2).String(), 2, raw)
	assert.ErrorIs(t, err, core.ErrInvalidRecipients)
	assert.Nil(t, job)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Duplicates)
	require.Len(t, report.Invalid, 1)
	assert.Equal(t, validate.ReasonDuplicate, report.Invalid[0].Reason)
}

func TestNewJob_RefusesZeroAmount(t *testing.T) {
	raw := recipients(12)
	raw[4].Amount = "0"

	job, report, err := NewJob(ledgertest.NewAddress(1).String(), ledgertest.NewAddress(2).String(), 2, raw)
	assert.ErrorIs(t, err, core.ErrInvalidRecipients)
	assert.Nil(t, job, "no batches are planned for a refused list")
	require.NotNil(t, report)
	assert.Len(t, report.Valid, 11)
	require.Len(t, report.Invalid, 1)
	assert.Equal(t, 4, report.Invalid[0].Index)
	assert.Equal(t, validate.ReasonInvalidAmount, report.Invalid[0].Reason)
}

func TestNewJob_RefusesExcessPrecision(t *testing.T) {
	raw := []core.Recipient{{Address: recipient(0).Address, Amount: "1.001"}}
	_, report, err := NewJob(ledgertest.NewAddress(1).String(), ledgertest.NewAddress(2).String(), 2, raw)
	assert.ErrorIs(t, err, core.ErrInvalidRecipients)
	require.Len(t, report.Invalid, 1)
	assert.Equal(t, validate.ReasonPrecision, report.Invalid[0].Reason)
}

func TestNewJob_InputErrors(t *testing.T) {
	creator := ledgertest.NewAddress(1).String()
	asset := ledgertest.NewAddress(2).String()

	_, _, err := NewJob("not-an-address", asset, 2, recipients(1))
	assert.ErrorIs(t, err, core.ErrInvalidAddress)

	_, _, err = NewJob(creator, "lx1garbage", 2, recipients(1))
	assert.ErrorIs(t, err, core.ErrInvalidAddress)

	_, _, err = NewJob(creator, asset, 2, nil)
	assert.ErrorIs(t, err, core.ErrNoRecipients)

	_, _, err = NewJob(creator, asset, 2, make([]core.Recipient, security.MaxRecipientsPerJob+1))
	assert.ErrorIs(t, err, core.ErrTooManyRecipients)
}
