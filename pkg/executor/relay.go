package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/ledger"
	"github.com/jdziat/simple-durable-airdrops/pkg/lock"
	"github.com/jdziat/simple-durable-airdrops/pkg/progress"
	"github.com/jdziat/simple-durable-airdrops/pkg/security"
)

// RelayBatch is one pre-signed batch of a relay request.
type RelayBatch struct {
	Serialized string           `json:"serialized"`
	Recipients []core.Recipient `json:"recipients"`
}

// RelayRequest is the body of a relay submission. Batches are executed, and
// indexed in the outcome, in request order.
type RelayRequest struct {
	JobID   string       `json:"jobId"`
	Creator string       `json:"creator"`
	AssetID string       `json:"assetId"`
	Batches []RelayBatch `json:"batches"`
}

// RelayRequestFrom converts a prepared job into a relay request.
func RelayRequestFrom(sj *core.SerializedJob) RelayRequest {
	req := RelayRequest{
		JobID:   sj.JobID,
		Creator: sj.Creator,
		AssetID: sj.AssetID,
		Batches: make([]RelayBatch, len(sj.Batches)),
	}
	for i, b := range sj.Batches {
		req.Batches[i] = RelayBatch{Serialized: b.Serialized, Recipients: b.Recipients}
	}
	return req
}

// Validate checks that every required field is present. It returns an error
// wrapping core.ErrMissingFields, core.ErrInvalidJobID, core.ErrInvalidAddress
// or core.ErrTooManyRecipients.
func (r *RelayRequest) Validate() error {
	var missing []string
	if r.JobID == "" {
		missing = append(missing, "jobId")
	}
	if r.Creator == "" {
		missing = append(missing, "creator")
	}
	if r.AssetID == "" {
		missing = append(missing, "assetId")
	}
	if len(r.Batches) == 0 {
		missing = append(missing, "batches")
	}
	for i, b := range r.Batches {
		if b.Serialized == "" {
			missing = append(missing, fmt.Sprintf("batches[%d].serialized", i))
		}
		if len(b.Recipients) == 0 {
			missing = append(missing, fmt.Sprintf("batches[%d].recipients", i))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", core.ErrMissingFields, strings.Join(missing, ", "))
	}

	if err := security.ValidateJobID(r.JobID); err != nil {
		return err
	}
	if _, err := ledger.ParseAddress(r.Creator); err != nil {
		return fmt.Errorf("creator: %w", err)
	}
	if _, err := ledger.ParseAddress(r.AssetID); err != nil {
		return fmt.Errorf("asset: %w", err)
	}
	return security.ValidateRecipientCount(len(r.recipients()))
}

func (r *RelayRequest) recipients() []core.Recipient {
	var all []core.Recipient
	for _, b := range r.Batches {
		all = append(all, b.Recipients...)
	}
	return all
}

// RelayOutcome is the response of a relay submission.
type RelayOutcome struct {
	Success            bool        `json:"success"`
	Status             core.Status `json:"status"`
	Signatures         []string    `json:"signatures"`
	FailedBatchIndices []int       `json:"failedBatchIndices"`
	Error              string      `json:"error,omitempty"`
}

// Relay submits pre-signed batches on behalf of a disconnected caller and
// persists an outcome after every batch. It never re-signs.
type Relay struct {
	client  ledger.Client
	storage core.Storage
	config  Config
}

// NewRelay returns a relay submitting through client and persisting to storage.
func NewRelay(client ledger.Client, storage core.Storage, opts ...Option) *Relay {
	cfg := newConfig(opts)
	if cfg.Locker == nil {
		cfg.Locker = lock.NewLocal()
	}
	return &Relay{client: client, storage: storage, config: cfg}
}

// Execute relays req to completion.
//
// Before any batch is submitted it returns an error for an invalid request
// (see RelayRequest.Validate), core.ErrJobLocked when the job id is already
// being relayed and core.ErrDuplicateRecord when it was relayed before. After
// the pending record is written, Execute always returns an outcome: batch
// failures are reported in it, and storage failures are logged and surfaced
// in RelayOutcome.Error without undoing submitted batches.
//
// The job is detached from ctx cancellation once accepted.
func (r *Relay) Execute(ctx context.Context, req RelayRequest) (*RelayOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)
	logger := r.config.Logger.With("job_id", req.JobID)

	handle, ok, err := r.config.Locker.TryLock(ctx, lock.Key(req.JobID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.ErrJobLocked
	}
	defer func() {
		if err := handle.Unlock(ctx); err != nil {
			logger.Warn("failed to release job lock", "error", err)
		}
	}()

	recipients := req.recipients()
	rec := core.NewRecord(req.JobID, req.Creator, req.AssetID, recipients, len(req.Batches))
	if err := persist(ctx, r.config.StorageRetry, logger, "create record", func() error {
		return r.storage.CreateRecord(ctx, rec)
	}); err != nil {
		return nil, err
	}
	logger.Info("relay started", "batches", len(req.Batches), "recipients", len(recipients))

	creator := ledger.MustParseAddress(req.Creator)
	tracker := progress.NewTracker(req.JobID, len(recipients), len(req.Batches),
		append([]progress.Option{progress.WithLogger(r.config.Logger)}, r.config.Progress...)...)
	defer tracker.Close()

	var storeErr error
	for i, b := range req.Batches {
		outcome := r.relayBatch(ctx, i, b, creator)
		if outcome.State.Succeeded() {
			logger.Info("batch confirmed", "batch", i, "signature", outcome.Signature)
		} else {
			logger.Warn("batch failed", "batch", i, "state", outcome.State, "error", outcome.Error)
		}
		tracker.Record(ctx, outcome)

		if err := persist(ctx, r.config.StorageRetry, logger, "record batch", func() error {
			return r.storage.RecordBatch(ctx, req.JobID, outcome)
		}); err != nil {
			logger.Error("failed to persist batch outcome", "batch", i, "error", err)
			storeErr = fmt.Errorf("persist batch %d: %w", i, err)
		}

		if i < len(req.Batches)-1 {
			pause(ctx, r.config.InterBatchDelay)
		}
	}

	result := tracker.Result()
	lastError := ""
	if storeErr != nil {
		lastError = storeErr.Error()
	}
	if err := persist(ctx, r.config.StorageRetry, logger, "finalize record", func() error {
		_, err := r.storage.FinalizeRecord(ctx, req.JobID, result.Outcomes, lastError)
		return err
	}); err != nil {
		logger.Error("failed to finalize record", "error", err)
		storeErr = errors.Join(storeErr, fmt.Errorf("finalize record: %w", err))
	}

	out := &RelayOutcome{
		Success:            result.Success(),
		Status:             result.Status,
		Signatures:         result.SuccessfulSignatures,
		FailedBatchIndices: result.FailedBatchIndices(),
	}
	if storeErr != nil {
		out.Error = security.SanitizeErrorMessage(storeErr.Error())
	}
	logger.Info("relay finished", "status", out.Status,
		"confirmed", len(out.Signatures), "failed_batches", len(out.FailedBatchIndices))
	return out, nil
}

func (r *Relay) relayBatch(ctx context.Context, index int, b RelayBatch, creator ledger.Address) core.BatchOutcome {
	outcome := core.BatchOutcome{
		Index:      index,
		Recipients: b.Recipients,
	}
	fail := func(state core.BatchState, err error) core.BatchOutcome {
		outcome.State = state
		outcome.Error = core.NewBatchError(index, state, err).Error()
		return outcome
	}

	tx, err := ledger.DecodeTx(b.Serialized)
	if err != nil {
		return fail(core.BatchSubmitFailed, err)
	}
	if !tx.Message.FeePayer.Equals(creator) {
		return fail(core.BatchSubmitFailed, core.ErrSignerMismatch)
	}
	if err := tx.Verify(); err != nil {
		return fail(core.BatchSubmitFailed, err)
	}

	sig, state, err := submitAndConfirm(ctx, r.client, tx, r.config.ConfirmTimeout, r.config.PollInterval)
	if !sig.IsZero() {
		outcome.Signature = sig.String()
	}
	outcome.State = state
	if err != nil {
		outcome.Error = core.NewBatchError(index, state, err).Error()
	}
	return outcome
}
