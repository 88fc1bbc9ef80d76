package sweep

import (
	"context"
	"log/slog"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger"
)

// Landing is what the ledger knows about a timed-out batch.
type Landing struct {
	JobID      string `json:"jobId"`
	BatchIndex int    `json:"batchIndex"`
	Signature  string `json:"signature"`
	// Landed is true when the transaction was finalized after all.
	Landed bool `json:"landed"`
	// Err is the execution error of a landed transaction.
	Err string `json:"err,omitempty"`
}

// Succeeded reports whether the batch landed without an execution error,
// meaning its recipients were paid even though the job reported them failed.
func (l Landing) Succeeded() bool {
	return l.Landed && l.Err == ""
}

// Reconciler looks up timed-out batches on the ledger.
type Reconciler struct {
	client  ledger.Client
	storage core.Storage
	logger  *slog.Logger
}

// NewReconciler returns a reconciler. A nil logger uses slog.Default().
func NewReconciler(client ledger.Client, storage core.Storage, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{client: client, storage: storage, logger: logger}
}

// Reconcile checks up to limit timed-out batches and returns their ledger
// status. Batches without a usable signature and lookups that fail are
// skipped and logged.
func (r *Reconciler) Reconcile(ctx context.Context, limit int) ([]Landing, error) {
	rows, err := r.storage.GetBatchesByState(ctx, core.BatchTimedOut, limit)
	if err != nil {
		return nil, err
	}

	landings := make([]Landing, 0, len(rows))
	for _, row := range rows {
		sig, err := ledger.ParseSignature(row.Signature)
		if err != nil {
			r.logger.Warn("timed-out batch has no usable signature",
				"job_id", row.JobID, "batch", row.BatchIndex, "error", err)
			continue
		}
		status, err := r.client.SignatureStatus(ctx, sig)
		if err != nil {
			r.logger.Warn("signature lookup failed",
				"job_id", row.JobID, "batch", row.BatchIndex, "error", err)
			continue
		}

		l := Landing{
			JobID:      row.JobID,
			BatchIndex: row.BatchIndex,
			Signature:  row.Signature,
			Landed:     status.Confirmed,
			Err:        status.Err,
		}
		if l.Succeeded() {
			r.logger.Warn("timed-out batch landed after all, recipients were paid",
				"job_id", row.JobID, "batch", row.BatchIndex, "signature", row.Signature)
		}
		landings = append(landings, l)
	}
	return landings, nil
}
