package core

// BatchState is the terminal state of one batch.
type BatchState string

const (
	BatchConfirmed    BatchState = "confirmed"
	BatchRejected     BatchState = "rejected"      // Executed on the ledger with an error
	BatchTimedOut     BatchState = "timed_out"     // Not finalized within the validity window; may still land
	BatchSubmitFailed BatchState = "submit_failed" // Never accepted by the network
	BatchSignFailed   BatchState = "sign_failed"
	BatchBuildFailed  BatchState = "build_failed" // No operations could be built; nothing submitted
)

// Succeeded reports whether the batch was confirmed.
func (s BatchState) Succeeded() bool {
	return s == BatchConfirmed
}

// BatchOutcome is the settled result of one batch. Recipients are the
// recipients carried by the batch's operations; Failed are recipients that were
// isolated while building it.
type BatchOutcome struct {
	Index        int                `json:"index"`
	State        BatchState         `json:"state"`
	Signature    string             `json:"signature,omitempty"`
	Recipients   []Recipient        `json:"recipients"`
	Failed       []RecipientFailure `json:"failed,omitempty"`
	EstimatedFee uint64             `json:"estimatedFee,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// Progress is a full snapshot of a running job. Consumers treat each snapshot
// as the source of truth rather than a delta.
type Progress struct {
	JobID                string         `json:"jobId"`
	TotalRecipients      int            `json:"totalRecipients"`
	ProcessedRecipients  int            `json:"processedRecipients"`
	SuccessfulSignatures []string       `json:"successfulSignatures"`
	FailedRecipients     []Recipient    `json:"failedRecipients"`
	CurrentBatchIndex    int            `json:"currentBatchIndex"`
	TotalBatches         int            `json:"totalBatches"`
	Outcomes             []BatchOutcome `json:"outcomes"`
}

// Done reports whether every batch has settled.
func (p Progress) Done() bool {
	return len(p.Outcomes) >= p.TotalBatches
}

// Status is the aggregated status of a job or record.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusPartial || s == StatusFailed
}

// AggregateStatus applies the job status rule: success when nothing failed,
// failed when everything failed, partial otherwise.
func AggregateStatus(total, failed int) Status {
	switch {
	case failed == 0:
		return StatusSuccess
	case failed >= total:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// Result is the terminal progress of a job plus its aggregated status.
type Result struct {
	Progress
	Status Status `json:"status"`
}

// Success reports whether every recipient was paid.
func (r *Result) Success() bool {
	return r.Status == StatusSuccess
}

// FailedBatchIndices returns the indices of batches that did not confirm.
func (r *Result) FailedBatchIndices() []int {
	indices := []int{}
	for _, o := range r.Outcomes {
		if !o.State.Succeeded() {
			indices = append(indices, o.Index)
		}
	}
	return indices
}

// NewResult freezes a progress snapshot into a result.
func NewResult(p Progress) *Result {
	return &Result{
		Progress: p,
		Status:   AggregateStatus(p.TotalRecipients, len(p.FailedRecipients)),
	}
}
