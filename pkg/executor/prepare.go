package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger"
)

// PrepareAndSign builds and signs every batch of job without submitting
// anything, so the caller can hand the result to a Relay and disconnect.
//
// Recipients that cannot be built are listed in SerializedJob.Failed; a batch
// with no buildable recipient is left out. Any other failure, including a
// signer refusing to sign, aborts the preparation: nothing was submitted yet
// and the caller can retry.
func PrepareAndSign(ctx context.Context, client ledger.Client, job *core.Job, signer ledger.Signer, opts ...Option) (*core.SerializedJob, error) {
	cfg := newConfig(opts)
	s, err := resolveSender(ctx, client, job, signer)
	if err != nil {
		return nil, err
	}

	out := &core.SerializedJob{
		JobID:   job.ID,
		Creator: job.Creator,
		AssetID: job.AssetID,
		Batches: []core.SerializedBatch{},
	}
	for _, batch := range job.Batches {
		logger := cfg.Logger.With("job_id", job.ID, "batch", batch.Index)
		sb, built, err := signBatch(ctx, client, signer, s, batch, logger)
		if built != nil {
			out.Failed = append(out.Failed, built.Failed...)
		}
		if errors.Is(err, core.ErrEmptyBatch) {
			logger.Warn("batch has no buildable recipients, skipped")
			continue
		}
		if err != nil {
			return nil, err
		}

		serialized, err := ledger.EncodeTx(sb.tx)
		if err != nil {
			return nil, fmt.Errorf("serialize batch %d: %w", batch.Index, err)
		}
		out.Batches = append(out.Batches, core.SerializedBatch{
			Index:        batch.Index,
			Serialized:   serialized,
			Recipients:   sb.built.Included,
			EstimatedFee: sb.fee,
		})
		out.TotalFee += sb.fee
	}

	cfg.Logger.Info("airdrop prepared for relay",
		"job_id", job.ID, "batches", len(out.Batches), "failed_recipients", len(out.Failed))
	return out, nil
}
