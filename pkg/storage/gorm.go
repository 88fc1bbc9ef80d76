// Package storage provides storage implementations for the airdrop package.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/security"
)

// GormStorage implements core.Storage using GORM.
type GormStorage struct {
	db *gorm.DB
}

var _ core.Storage = (*GormStorage)(nil)

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db}
}

// DB returns the underlying database handle.
func (s *GormStorage) DB() *gorm.DB {
	return s.db
}

// IsSQLite reports whether the storage is backed by SQLite.
func (s *GormStorage) IsSQLite() bool {
	return s.db.Dialector.Name() == "sqlite"
}

// Migrate creates the necessary tables.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&core.Record{}, &core.BatchRecord{})
}

// CreateRecord inserts a record. Error text is sanitized before storage.
func (s *GormStorage) CreateRecord(ctx context.Context, rec *core.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Status == "" {
		rec.Status = core.StatusPending
	}
	rec.LastError = security.SanitizeErrorMessage(rec.LastError)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&core.Record{}).Where("id = ?", rec.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return core.ErrDuplicateRecord
		}
		err := tx.Create(rec).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return core.ErrDuplicateRecord
		}
		return err
	})
}

// RecordBatch stores one batch outcome. The first report of a batch wins;
// later reports of the same (job, batch) pair are ignored. When the last
// batch of the record is stored the record status is computed.
func (s *GormStorage) RecordBatch(ctx context.Context, jobID string, outcome core.BatchOutcome) error {
	row := batchRow(jobID, outcome)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec core.Record
		if err := tx.First(&rec, "id = ?", jobID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return core.ErrRecordNotFound
			}
			return err
		}

		result := tx.Clauses(onBatchConflict).Create(row)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		var rows []*core.BatchRecord
		if err := tx.Where("job_id = ?", jobID).Order("batch_index ASC").Find(&rows).Error; err != nil {
			return err
		}
		updates := fold(&rec, rows, false)
		if row.Error != "" {
			updates["last_error"] = row.Error
		}
		return tx.Model(&core.Record{}).Where("id = ?", jobID).Updates(updates).Error
	})
}

// onBatchConflict keeps the first stored row of a (job, batch) pair.
var onBatchConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "job_id"}, {Name: "batch_index"}},
	DoNothing: true,
}

func batchRow(jobID string, outcome core.BatchOutcome) *core.BatchRecord {
	failed := make(core.RecipientList, 0, len(outcome.Failed))
	for _, f := range outcome.Failed {
		failed = append(failed, f.Recipient)
	}
	return &core.BatchRecord{
		ID:               uuid.New().String(),
		JobID:            jobID,
		BatchIndex:       outcome.Index,
		State:            outcome.State,
		Signature:        outcome.Signature,
		Recipients:       core.RecipientList(outcome.Recipients),
		FailedRecipients: failed,
		Error:            security.SanitizeErrorMessage(outcome.Error),
	}
}

// FinalizeRecord computes the terminal status of a record from its batch
// rows. Outcomes of batches that have no row yet are stored first, so a
// batch whose earlier write was lost keeps its real state. Batches with
// neither a row nor an outcome count as failed.
func (s *GormStorage) FinalizeRecord(ctx context.Context, jobID string, outcomes []core.BatchOutcome, lastError string) (*core.Record, error) {
	var rec core.Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, "id = ?", jobID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return core.ErrRecordNotFound
			}
			return err
		}
		for _, o := range outcomes {
			if o.Index < 0 || o.Index >= rec.TotalBatches {
				continue
			}
			if err := tx.Clauses(onBatchConflict).Create(batchRow(jobID, o)).Error; err != nil {
				return err
			}
		}
		var rows []*core.BatchRecord
		if err := tx.Where("job_id = ?", jobID).Order("batch_index ASC").Find(&rows).Error; err != nil {
			return err
		}
		updates := fold(&rec, rows, true)
		if lastError != "" {
			updates["last_error"] = security.SanitizeErrorMessage(lastError)
		}
		if err := tx.Model(&core.Record{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&rec, "id = ?", jobID).Error
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// fold derives the aggregate columns of rec from its batch rows. The status
// is computed once every batch reported, or unconditionally when final is set.
func fold(rec *core.Record, rows []*core.BatchRecord, final bool) map[string]any {
	txIDs := core.StringList{}
	failedBatches := core.IntList{}
	reported := make(map[int]bool, len(rows))
	paid := 0
	for _, r := range rows {
		reported[r.BatchIndex] = true
		if r.State.Succeeded() {
			paid += len(r.Recipients)
			if r.Signature != "" {
				txIDs = append(txIDs, r.Signature)
			}
			continue
		}
		failedBatches = append(failedBatches, r.BatchIndex)
	}

	updates := map[string]any{
		"tx_ids":         txIDs,
		"failed_batches": failedBatches,
		"updated_at":     time.Now(),
	}
	if !final && len(reported) < rec.TotalBatches {
		return updates
	}
	for i := 0; i < rec.TotalBatches; i++ {
		if !reported[i] {
			failedBatches = append(failedBatches, i)
		}
	}
	updates["failed_batches"] = failedBatches

	total := len(rec.Recipients)
	updates["status"] = core.AggregateStatus(total, total-paid)
	updates["completed_at"] = time.Now()
	return updates
}

// GetRecord retrieves a record by ID. Returns nil when it does not exist.
func (s *GormStorage) GetRecord(ctx context.Context, id string) (*core.Record, error) {
	var rec core.Record
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetBatches retrieves the batch rows of a job ordered by index.
func (s *GormStorage) GetBatches(ctx context.Context, jobID string) ([]*core.BatchRecord, error) {
	var rows []*core.BatchRecord
	err := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("batch_index ASC").
		Find(&rows).Error
	return rows, err
}

// ListRecords returns records matching the filter, newest first, with the
// total number of matches.
func (s *GormStorage) ListRecords(ctx context.Context, filter core.RecordFilter) ([]*core.Record, int64, error) {
	q := s.db.WithContext(ctx).Model(&core.Record{})
	if filter.Creator != "" {
		q = q.Where("creator = ?", filter.Creator)
	}
	if filter.AssetID != "" {
		q = q.Where("token_mint = ?", filter.AssetID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := security.ClampPage(filter.Page, filter.Limit)
	var records []*core.Record
	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// GetStalePending returns pending records whose last update is older than olderThan.
func (s *GormStorage) GetStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*core.Record, error) {
	cutoff := time.Now().Add(-olderThan)
	var records []*core.Record
	err := s.db.WithContext(ctx).
		Where("status = ?", core.StatusPending).
		Where("updated_at < ?", cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// GetBatchesByState returns batch rows in the given state across all jobs,
// oldest first.
func (s *GormStorage) GetBatchesByState(ctx context.Context, state core.BatchState, limit int) ([]*core.BatchRecord, error) {
	var rows []*core.BatchRecord
	err := s.db.WithContext(ctx).
		Where("state = ?", state).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
