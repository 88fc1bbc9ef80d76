package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jdziat/simple-durable-airdrops/pkg/builder"
	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger"
	"github.com/jdziat/simple-durable-airdrops/pkg/planner"
)

// sender is the resolved creator side of a job.
type sender struct {
	creator  ledger.Address
	asset    ledger.Address
	decimals uint8
}

// resolveSender parses the job's addresses and runs the fatal pre-checks:
// the signer controls the creator and the creator holds the asset.
func resolveSender(ctx context.Context, client ledger.Client, job *core.Job, signer ledger.Signer) (sender, error) {
	var s sender
	creator, err := ledger.ParseAddress(job.Creator)
	if err != nil {
		return s, fmt.Errorf("creator: %w", err)
	}
	asset, err := ledger.ParseAddress(job.AssetID)
	if err != nil {
		return s, fmt.Errorf("asset: %w", err)
	}
	if signer == nil || !signer.Address().Equals(creator) {
		return s, core.ErrSignerMismatch
	}

	exists, err := client.AccountExists(ctx, ledger.HoldingAddress(creator, asset))
	if err != nil {
		return s, fmt.Errorf("check sender holding account: %w", err)
	}
	if !exists {
		return s, core.ErrSenderHoldingMissing
	}
	return sender{creator: creator, asset: asset, decimals: job.Decimals}, nil
}

// signedBatch is a batch that was built and signed but not yet submitted.
type signedBatch struct {
	index int
	tx    *ledger.Tx
	built *builder.Built
	fee   uint64
}

// failedOutcome turns a batch error into an outcome. Included recipients of
// built, if any, are reported as the batch's recipients; when nothing was
// built every recipient of batch is.
func failedOutcome(batch core.Batch, built *builder.Built, err error) core.BatchOutcome {
	state := core.BatchBuildFailed
	var be *core.BatchError
	if errors.As(err, &be) {
		state = be.State
	}
	o := core.BatchOutcome{
		Index:      batch.Index,
		State:      state,
		Recipients: []core.Recipient{},
		Error:      err.Error(),
	}
	if built == nil {
		o.Recipients = append(o.Recipients, batch.Recipients...)
		return o
	}
	o.Recipients = append(o.Recipients, built.Included...)
	o.Failed = built.Failed
	return o
}

// signBatch probes, builds, binds to the latest finality window, estimates the
// fee, and signs one batch. The returned Built is non-nil whenever building
// was reached, also on error, so per-recipient failures can be reported.
func signBatch(ctx context.Context, client ledger.Client, signer ledger.Signer, s sender, batch core.Batch, logger *slog.Logger) (*signedBatch, *builder.Built, error) {
	probes := planner.ProbeBatch(ctx, client, s.asset, batch)
	built := builder.Build(probes, s.creator, s.asset, s.decimals)
	for _, f := range built.Failed {
		logger.Warn("recipient isolated from batch",
			"batch", batch.Index, "address", f.Recipient.Address, "error", f.Reason)
	}
	if built.Empty() {
		return nil, built, core.NewBatchError(batch.Index, core.BatchBuildFailed, core.ErrEmptyBatch)
	}

	fin, err := client.LatestFinality(ctx)
	if err != nil {
		return nil, built, core.NewBatchError(batch.Index, core.BatchBuildFailed, fmt.Errorf("latest finality: %w", err))
	}
	msg := builder.NewMessage(s.creator, fin, built.Operations)
	fee := builder.EstimateFee(ctx, client, msg, logger.With("batch", batch.Index))

	tx, err := ledger.SignMessage(ctx, signer, msg)
	if err != nil {
		return nil, built, core.NewBatchError(batch.Index, core.BatchSignFailed, err)
	}
	return &signedBatch{index: batch.Index, tx: tx, built: built, fee: fee}, built, nil
}

// submitAndConfirm submits tx as-is and waits until it is finalized, the
// validity window embedded in the message closes, or timeout elapses. The
// signature is returned whenever the ledger accepted the transaction.
func submitAndConfirm(ctx context.Context, client ledger.Client, tx *ledger.Tx, timeout, poll time.Duration) (ledger.Signature, core.BatchState, error) {
	sig, err := client.SendTransaction(ctx, tx)
	if err != nil {
		if errors.Is(err, ledger.ErrRejected) {
			return sig, core.BatchRejected, err
		}
		return sig, core.BatchSubmitFailed, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err = ledger.WaitForConfirmation(waitCtx, client, sig, tx.Message.LastValidHeight, poll)
	switch {
	case err == nil:
		return sig, core.BatchConfirmed, nil
	case errors.Is(err, ledger.ErrRejected):
		return sig, core.BatchRejected, err
	default:
		// Expired window or exhausted wait: the transaction may still land.
		return sig, core.BatchTimedOut, err
	}
}

// pause waits d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
