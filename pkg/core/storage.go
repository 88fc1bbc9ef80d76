package core

import (
	"context"
	"time"
)

// RecordFilter selects records for history listings. Page is 1-based.
type RecordFilter struct {
	Creator string
	AssetID string
	Page    int
	Limit   int
}

// Storage persists airdrop records and their batch outcomes.
type Storage interface {
	// Migrate creates or updates the schema.
	Migrate(ctx context.Context) error

	// CreateRecord inserts a record. Returns ErrDuplicateRecord when the id exists.
	CreateRecord(ctx context.Context, rec *Record) error

	// RecordBatch stores one batch outcome and folds it into the record's
	// signatures and failed batch list. Reporting the same batch twice is a no-op.
	RecordBatch(ctx context.Context, jobID string, outcome BatchOutcome) error

	// FinalizeRecord stores the outcomes of batches that have no row yet,
	// then recomputes the record status from its batch rows. Batches with
	// neither count as failed. lastError, when non-empty, is stored.
	FinalizeRecord(ctx context.Context, jobID string, outcomes []BatchOutcome, lastError string) (*Record, error)

	// GetRecord returns the record or nil when it does not exist.
	GetRecord(ctx context.Context, id string) (*Record, error)

	// GetBatches returns the batch rows of a job ordered by index.
	GetBatches(ctx context.Context, jobID string) ([]*BatchRecord, error)

	// ListRecords returns records newest first plus the total match count.
	ListRecords(ctx context.Context, filter RecordFilter) ([]*Record, int64, error)

	// GetStalePending returns pending records not updated for olderThan.
	GetStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*Record, error)

	// GetBatchesByState returns batch rows in the given state across all jobs.
	GetBatchesByState(ctx context.Context, state BatchState, limit int) ([]*BatchRecord, error)
}

// Stats counts records by status and batch rows by state.
type Stats struct {
	Records map[Status]int64     `json:"records"`
	Batches map[BatchState]int64 `json:"batches"`
	Since   *time.Time           `json:"since,omitempty"`
}
