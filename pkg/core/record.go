package core

import "time"

// Record is the persisted summary of one airdrop job.
type Record struct {
	ID            string        `gorm:"primaryKey;size:128" json:"id"`
	Creator       string        `gorm:"index;size:128;not null" json:"creator"`
	AssetID       string        `gorm:"column:token_mint;index;size:128;not null" json:"tokenMint"`
	Recipients    RecipientList `gorm:"type:text" json:"recipients"`
	TxIDs         StringList    `gorm:"column:tx_ids;type:text" json:"txIds"`
	Status        Status        `gorm:"index;size:20;default:'pending'" json:"status"`
	TotalBatches  int           `json:"totalBatches"`
	FailedBatches IntList       `gorm:"type:text" json:"failedBatches"`
	LastError     string        `gorm:"type:text" json:"lastError,omitempty"`
	CreatedAt     time.Time     `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
}

// TableName returns the table name for GORM.
func (Record) TableName() string {
	return "airdrops"
}

// BatchRecord is one settled batch of a job. (JobID, BatchIndex) is unique.
type BatchRecord struct {
	ID         string        `gorm:"primaryKey;size:36" json:"id"`
	JobID      string        `gorm:"uniqueIndex:idx_airdrop_batches_job_batch;size:128;not null" json:"jobId"`
	BatchIndex int           `gorm:"uniqueIndex:idx_airdrop_batches_job_batch;not null" json:"batchIndex"`
	State      BatchState    `gorm:"size:20;not null" json:"state"`
	Signature  string        `gorm:"size:128;index" json:"signature,omitempty"`
	Recipients RecipientList `gorm:"type:text" json:"recipients"`

	// FailedRecipients were isolated while building the batch and never submitted.
	FailedRecipients RecipientList `gorm:"type:text" json:"failedRecipients,omitempty"`

	Error     string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name for GORM.
func (BatchRecord) TableName() string {
	return "airdrop_batches"
}

// NewRecord returns a pending record for a job about to be executed.
func NewRecord(id, creator, assetID string, recipients []Recipient, totalBatches int) *Record {
	return &Record{
		ID:            id,
		Creator:       creator,
		AssetID:       assetID,
		Recipients:    RecipientList(recipients),
		TxIDs:         StringList{},
		Status:        StatusPending,
		TotalBatches:  totalBatches,
		FailedBatches: IntList{},
	}
}

// RecordFromResult builds the terminal record for a job executed directly.
func RecordFromResult(job *Job, result *Result) *Record {
	rec := NewRecord(job.ID, job.Creator, job.AssetID, job.Recipients, len(job.Batches))
	rec.TxIDs = append(StringList{}, result.SuccessfulSignatures...)
	rec.FailedBatches = IntList(result.FailedBatchIndices())
	rec.Status = result.Status
	now := time.Now()
	rec.CompletedAt = &now
	for i := len(result.Outcomes) - 1; i >= 0; i-- {
		if result.Outcomes[i].Error != "" {
			rec.LastError = result.Outcomes[i].Error
			break
		}
	}
	return rec
}
