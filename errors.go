package airdrop

import "github.com/jdziat/simple-durable-airdrops/pkg/core"

// Validation errors
var (
	ErrNoRecipients      = core.ErrNoRecipients
	ErrInvalidRecipients = core.ErrInvalidRecipients
	ErrInvalidAddress    = core.ErrInvalidAddress
	ErrInvalidAmount     = core.ErrInvalidAmount
	ErrAmountPrecision   = core.ErrAmountPrecision
	ErrTooManyRecipients = core.ErrTooManyRecipients
)

// Execution errors
var (
	ErrSenderHoldingMissing = core.ErrSenderHoldingMissing
	ErrSignerMismatch       = core.ErrSignerMismatch
	ErrEmptyBatch           = core.ErrEmptyBatch
	ErrSignatureMismatch    = core.ErrSignatureMismatch
)

// Relay errors
var (
	ErrMissingFields   = core.ErrMissingFields
	ErrInvalidJobID    = core.ErrInvalidJobID
	ErrJobLocked       = core.ErrJobLocked
	ErrDuplicateRecord = core.ErrDuplicateRecord
)

// BatchError reports why a single batch failed.
type BatchError = core.BatchError
