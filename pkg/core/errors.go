package core

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrNoRecipients      = errors.New("airdrop: recipient list is empty")
	ErrInvalidRecipients = errors.New("airdrop: recipient list contains invalid or duplicate entries")
	ErrInvalidAddress    = errors.New("airdrop: invalid ledger address")
	ErrInvalidAmount     = errors.New("airdrop: amount must be a positive decimal number")
	ErrAmountPrecision   = errors.New("airdrop: amount has more fractional digits than the asset supports")
	ErrAmountOverflow    = errors.New("airdrop: amount exceeds the representable range")
	ErrDuplicateAddress  = errors.New("airdrop: duplicate recipient address")
	ErrTooManyRecipients = errors.New("airdrop: recipient list exceeds the per-job limit")
)

// Execution errors
var (
	ErrSenderHoldingMissing = errors.New("airdrop: sender has no holding account for this asset")
	ErrSignerMismatch       = errors.New("airdrop: signer does not control the creator address")
	ErrEmptyBatch           = errors.New("airdrop: batch has no buildable recipients")
	ErrSignatureMismatch    = errors.New("airdrop: serialized batch signature does not match its message")
)

// Relay and storage errors
var (
	ErrMissingFields   = errors.New("airdrop: missing required fields")
	ErrInvalidJobID    = errors.New("airdrop: invalid job id")
	ErrJobLocked       = errors.New("airdrop: job is already being relayed")
	ErrDuplicateRecord = errors.New("airdrop: a record with this job id already exists")
	ErrRecordNotFound  = errors.New("airdrop: record not found")
)

// BatchError reports why a single batch failed. It never escapes a job: the
// executors convert it into a BatchOutcome.
type BatchError struct {
	Index int
	State BatchState
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d %s: %v", e.Index, e.State, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// NewBatchError wraps err with the batch index and the state the batch ended in.
func NewBatchError(index int, state BatchState, err error) error {
	return &BatchError{Index: index, State: state, Err: err}
}
