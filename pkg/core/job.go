package core

import "time"

const (
	// MaxBatchSize is the number of recipients carried by one signed batch.
	MaxBatchSize = 10

	// DefaultBatchFee is the fee, in base-fee units, assumed for a batch when
	// the network fee schedule cannot be queried.
	DefaultBatchFee uint64 = 5000

	// DefaultInterBatchDelay separates consecutive submissions of one job.
	DefaultInterBatchDelay = time.Second

	// DefaultConfirmTimeout bounds how long a submitted batch is awaited.
	DefaultConfirmTimeout = 60 * time.Second
)

// Batch is an ordered subset of a job's recipients, processed as one signed unit.
type Batch struct {
	Index      int         `json:"index"`
	Recipients []Recipient `json:"recipients"`
}

// Size returns the number of recipients in the batch.
func (b Batch) Size() int {
	return len(b.Recipients)
}

// Job is one distribution request: an asset, a creator paying from its holding
// account, and the planned batches. It is immutable once planned.
type Job struct {
	ID         string      `json:"id"`
	Creator    string      `json:"creator"`
	AssetID    string      `json:"assetId"`
	Decimals   uint8       `json:"decimals"`
	Recipients []Recipient `json:"recipients"`
	Batches    []Batch     `json:"batches"`
}

// TotalRecipients returns the sum of all batch sizes.
func (j *Job) TotalRecipients() int {
	n := 0
	for _, b := range j.Batches {
		n += b.Size()
	}
	return n
}

// SerializedBatch is a signed batch in transport form.
type SerializedBatch struct {
	Index        int         `json:"index"`
	Serialized   string      `json:"serialized"`
	Recipients   []Recipient `json:"recipients"`
	EstimatedFee uint64      `json:"estimatedFee,omitempty"`
}

// SerializedJob is the output of the relay preparation phase. Recipients that
// could not be built are listed in Failed and are not part of any batch.
type SerializedJob struct {
	JobID    string             `json:"jobId"`
	Creator  string             `json:"creator"`
	AssetID  string             `json:"assetId"`
	Batches  []SerializedBatch  `json:"batches"`
	Failed   []RecipientFailure `json:"failed,omitempty"`
	TotalFee uint64             `json:"totalFee"`
}
