package executor

import (
	"context"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger"
	"github.com/jdziat/simple-durable-airdrops/pkg/progress"
)

// Direct executes jobs in the caller's process, obtaining one signature per
// batch from the caller's signer.
type Direct struct {
	client ledger.Client
	config Config
}

// NewDirect returns a direct executor submitting through client.
func NewDirect(client ledger.Client, opts ...Option) *Direct {
	return &Direct{client: client, config: newConfig(opts)}
}

// Run is a started direct execution.
type Run struct {
	tracker *progress.Tracker
	updates <-chan core.Progress
	done    chan struct{}
	result  *core.Result
}

// Progress returns the channel of snapshots, one per batch in batch order.
// It is closed once the job has finished. The buffer holds every snapshot of
// the job, so a slow reader never loses one.
func (r *Run) Progress() <-chan core.Progress {
	return r.updates
}

// Snapshot returns the current progress.
func (r *Run) Snapshot() core.Progress {
	return r.tracker.Snapshot()
}

// Done is closed when the job has finished.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the job finishes and returns its result. Returning early
// because ctx ended does not stop the job.
func (r *Run) Wait(ctx context.Context) (*core.Result, error) {
	select {
	case <-r.done:
		return r.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Start runs the fatal pre-checks and then executes job in the background.
// Once started the job runs to completion: cancelling ctx afterwards does not
// stop batches, because submitted batches continue on the network anyway.
//
// Start returns core.ErrSignerMismatch when signer does not control the job's
// creator and core.ErrSenderHoldingMissing when the creator has no holding
// account for the asset. No batch is built in either case.
func (d *Direct) Start(ctx context.Context, job *core.Job, signer ledger.Signer) (*Run, error) {
	s, err := resolveSender(ctx, d.client, job, signer)
	if err != nil {
		return nil, err
	}

	tracker := progress.NewTracker(job.ID, job.TotalRecipients(), len(job.Batches),
		append([]progress.Option{progress.WithLogger(d.config.Logger)}, d.config.Progress...)...)
	run := &Run{
		tracker: tracker,
		updates: tracker.Subscribe(),
		done:    make(chan struct{}),
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer close(run.done)
		defer tracker.Close()
		d.execute(ctx, job, s, signer, tracker)
		run.result = tracker.Result()
	}()
	return run, nil
}

// Execute runs job to completion and returns its result. Apart from the
// pre-check errors documented on Start it never returns an error: batch
// failures are reported in the result.
func (d *Direct) Execute(ctx context.Context, job *core.Job, signer ledger.Signer) (*core.Result, error) {
	run, err := d.Start(ctx, job, signer)
	if err != nil {
		return nil, err
	}
	<-run.done
	return run.result, nil
}

func (d *Direct) execute(ctx context.Context, job *core.Job, s sender, signer ledger.Signer, tracker *progress.Tracker) {
	logger := d.config.Logger.With("job_id", job.ID)
	logger.Info("direct airdrop started", "batches", len(job.Batches), "recipients", job.TotalRecipients())

	for i, batch := range job.Batches {
		outcome := d.runBatch(ctx, s, signer, batch)
		if outcome.State.Succeeded() {
			logger.Info("batch confirmed", "batch", batch.Index, "signature", outcome.Signature)
		} else {
			logger.Warn("batch failed", "batch", batch.Index, "state", outcome.State, "error", outcome.Error)
		}
		tracker.Record(ctx, outcome)

		if i < len(job.Batches)-1 {
			pause(ctx, d.config.InterBatchDelay)
		}
	}

	snap := tracker.Snapshot()
	logger.Info("direct airdrop finished",
		"processed", snap.ProcessedRecipients, "failed", len(snap.FailedRecipients))
}

func (d *Direct) runBatch(ctx context.Context, s sender, signer ledger.Signer, batch core.Batch) core.BatchOutcome {
	logger := d.config.Logger.With("batch", batch.Index)
	sb, built, err := signBatch(ctx, d.client, signer, s, batch, logger)
	if err != nil {
		return failedOutcome(batch, built, err)
	}

	sig, state, err := submitAndConfirm(ctx, d.client, sb.tx, d.config.ConfirmTimeout, d.config.PollInterval)
	outcome := core.BatchOutcome{
		Index:        batch.Index,
		State:        state,
		Recipients:   sb.built.Included,
		Failed:       sb.built.Failed,
		EstimatedFee: sb.fee,
	}
	if !sig.IsZero() {
		outcome.Signature = sig.String()
	}
	if err != nil {
		outcome.Error = core.NewBatchError(batch.Index, state, err).Error()
	}
	return outcome
}
