// Package airdrop distributes a fungible asset to many recipients in one
// logical operation, batch by batch, and reports exactly who was paid.
//
// This is the main package users should import. It re-exports the public
// types from the pkg/ packages for a clean API surface.
//
// Direct execution from the caller's process:
//
//	job, report, err := airdrop.NewJob(creator, asset, decimals, recipients)
//	if err != nil {
//	    // report lists invalid and duplicate entries
//	}
//	result, err := airdrop.NewDirect(client).Execute(ctx, job, signer)
//
// Relay execution, where the caller signs everything up front and may
// disconnect:
//
//	prepared, err := airdrop.PrepareAndSign(ctx, client, job, signer)
//	// ship airdrop.RelayRequestFrom(prepared) to a relay server, which runs
//	outcome, err := airdrop.NewRelay(client, store).Execute(ctx, req)
package airdrop

import (
	"context"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/executor"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger"
	"github.com/jdziat/simple-durable-airdrops/pkg/progress"
	"github.com/jdziat/simple-durable-airdrops/pkg/security"
	"github.com/jdziat/simple-durable-airdrops/pkg/validate"
)

type (
	// Recipient is one payee: a ledger address and a decimal amount.
	Recipient = core.Recipient

	// Batch is an ordered group of at most MaxBatchSize recipients.
	Batch = core.Batch

	// Job is a planned distribution.
	Job = core.Job

	// Progress is a full snapshot of a running job.
	Progress = core.Progress

	// Result is the terminal progress of a job plus its status.
	Result = core.Result

	// BatchOutcome is the settled result of one batch.
	BatchOutcome = core.BatchOutcome

	// BatchState is the terminal state of one batch.
	BatchState = core.BatchState

	// Status is the aggregated status of a job or record.
	Status = core.Status

	// SerializedJob is a job signed for relay.
	SerializedJob = core.SerializedJob

	// Record is the persisted summary of a job.
	Record = core.Record

	// Storage persists records and batch outcomes.
	Storage = core.Storage

	// ValidationReport partitions a recipient list into valid and rejected entries.
	ValidationReport = validate.Report

	// Signer signs batches on behalf of a job's creator.
	Signer = ledger.Signer

	// LedgerClient is the port to the ledger network.
	LedgerClient = ledger.Client

	// Direct executes jobs in the caller's process.
	Direct = executor.Direct

	// Run is a started direct execution.
	Run = executor.Run

	// Relay submits pre-signed batches and persists their outcomes.
	Relay = executor.Relay

	// RelayRequest is the body of a relay submission.
	RelayRequest = executor.RelayRequest

	// RelayOutcome is the response of a relay submission.
	RelayOutcome = executor.RelayOutcome

	// Option configures an executor.
	Option = executor.Option

	// Tracker accumulates batch outcomes for one job.
	Tracker = progress.Tracker
)

// Status constants
const (
	StatusPending = core.StatusPending
	StatusSuccess = core.StatusSuccess
	StatusPartial = core.StatusPartial
	StatusFailed  = core.StatusFailed
)

// Batch state constants
const (
	BatchConfirmed    = core.BatchConfirmed
	BatchRejected     = core.BatchRejected
	BatchTimedOut     = core.BatchTimedOut
	BatchSubmitFailed = core.BatchSubmitFailed
	BatchSignFailed   = core.BatchSignFailed
	BatchBuildFailed  = core.BatchBuildFailed
)

// Limits and defaults
const (
	MaxBatchSize           = core.MaxBatchSize
	DefaultBatchFee        = core.DefaultBatchFee
	DefaultInterBatchDelay = core.DefaultInterBatchDelay
	DefaultConfirmTimeout  = core.DefaultConfirmTimeout
	MaxRecipientsPerJob    = security.MaxRecipientsPerJob
)

// NewJob validates recipients and plans them into batches.
func NewJob(creator, assetID string, decimals uint8, recipients []Recipient) (*Job, *ValidationReport, error) {
	return executor.NewJob(creator, assetID, decimals, recipients)
}

// ValidateRecipients partitions a recipient list without any network call.
// Pass decimals to also check amounts against the asset's precision.
func ValidateRecipients(recipients []Recipient, decimals ...uint8) *ValidationReport {
	var opts []validate.Option
	if len(decimals) > 0 {
		opts = append(opts, validate.Decimals(decimals[0]))
	}
	return validate.Recipients(recipients, opts...)
}

// EstimateFees returns the advisory fee, in base-fee units, for paying n recipients.
func EstimateFees(n int) uint64 {
	return validate.EstimateFees(n)
}

// NewDirect returns a direct executor.
func NewDirect(client LedgerClient, opts ...Option) *Direct {
	return executor.NewDirect(client, opts...)
}

// PrepareAndSign signs every batch of job for relay without submitting.
func PrepareAndSign(ctx context.Context, client LedgerClient, job *Job, signer Signer, opts ...Option) (*SerializedJob, error) {
	return executor.PrepareAndSign(ctx, client, job, signer, opts...)
}

// RelayRequestFrom converts a prepared job into a relay request.
func RelayRequestFrom(sj *SerializedJob) RelayRequest {
	return executor.RelayRequestFrom(sj)
}

// NewRelay returns a relay executor.
func NewRelay(client LedgerClient, storage Storage, opts ...Option) *Relay {
	return executor.NewRelay(client, storage, opts...)
}

// RecordFromResult builds the record a direct caller persists once its job finished.
func RecordFromResult(job *Job, result *Result) *Record {
	return core.RecordFromResult(job, result)
}

// AggregateStatus applies the status rule to a job's totals.
func AggregateStatus(total, failed int) Status {
	return core.AggregateStatus(total, failed)
}
