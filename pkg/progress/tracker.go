package progress

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
)

// Publisher delivers snapshots outside the process.
type Publisher interface {
	Publish(ctx context.Context, p core.Progress) error
}

// Tracker accumulates batch outcomes for one job.
type Tracker struct {
	mu       sync.RWMutex
	progress core.Progress
	subs     []chan core.Progress
	closed   bool

	hooks      []func(core.Progress)
	publishers []Publisher
	metrics    *Metrics
	logger     *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithHook registers fn to be called synchronously with every snapshot.
func WithHook(fn func(core.Progress)) Option {
	return func(t *Tracker) {
		if fn != nil {
			t.hooks = append(t.hooks, fn)
		}
	}
}

// WithPublisher adds a publisher. Publish failures are logged and ignored.
func WithPublisher(p Publisher) Option {
	return func(t *Tracker) {
		if p != nil {
			t.publishers = append(t.publishers, p)
		}
	}
}

// WithMetrics sets the metrics recorder. Defaults to DefaultMetrics().
func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = l
	}
}

// NewTracker returns a tracker for a job with the given totals.
func NewTracker(jobID string, totalRecipients, totalBatches int, opts ...Option) *Tracker {
	t := &Tracker{
		progress: core.Progress{
			JobID:                jobID,
			TotalRecipients:      totalRecipients,
			TotalBatches:         totalBatches,
			SuccessfulSignatures: []string{},
			FailedRecipients:     []core.Recipient{},
			Outcomes:             []core.BatchOutcome{},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.metrics == nil {
		t.metrics = DefaultMetrics()
	}
	return t
}

// Record appends a batch outcome and emits the resulting snapshot. An outcome
// for a batch index that was already recorded is ignored and the current
// snapshot is returned, so repeated reports are harmless.
func (t *Tracker) Record(ctx context.Context, outcome core.BatchOutcome) core.Progress {
	t.mu.Lock()
	for _, o := range t.progress.Outcomes {
		if o.Index == outcome.Index {
			snap := t.snapshotLocked()
			t.mu.Unlock()
			return snap
		}
	}

	p := &t.progress
	p.Outcomes = append(p.Outcomes, outcome)
	if outcome.State.Succeeded() {
		p.ProcessedRecipients += len(outcome.Recipients)
		if outcome.Signature != "" {
			p.SuccessfulSignatures = append(p.SuccessfulSignatures, outcome.Signature)
		}
	} else {
		p.FailedRecipients = append(p.FailedRecipients, outcome.Recipients...)
	}
	for _, f := range outcome.Failed {
		p.FailedRecipients = append(p.FailedRecipients, f.Recipient)
	}
	p.CurrentBatchIndex = outcome.Index + 1

	snap := t.snapshotLocked()
	subs := make([]chan core.Progress, len(t.subs))
	copy(subs, t.subs)
	hooks := make([]func(core.Progress), len(t.hooks))
	copy(hooks, t.hooks)

	// Deliver while holding the lock so emissions reach every channel in
	// record order.
	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
			t.logger.Warn("progress subscriber full, snapshot not delivered",
				"job_id", snap.JobID, "batch", outcome.Index)
		}
	}
	t.mu.Unlock()

	t.metrics.RecordOutcome(ctx, outcome)
	for _, fn := range hooks {
		fn(snap)
	}
	for _, pub := range t.publishers {
		if err := pub.Publish(ctx, snap); err != nil {
			t.logger.Warn("failed to publish progress", "job_id", snap.JobID, "batch", outcome.Index, "error", err)
		}
	}
	return snap
}

// Snapshot returns a copy of the current progress.
func (t *Tracker) Snapshot() core.Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

// Result freezes the current progress into a result.
func (t *Tracker) Result() *core.Result {
	return core.NewResult(t.Snapshot())
}

// Subscribe returns a channel receiving every snapshot recorded after the
// call. The channel is closed by Close. Subscribing after Close returns a
// closed channel.
func (t *Tracker) Subscribe() <-chan core.Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan core.Progress, t.progress.TotalBatches+1)
	if t.closed {
		close(ch)
		return ch
	}
	t.subs = append(t.subs, ch)
	return ch
}

// Close closes every subscription channel. It is safe to call more than once.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for _, ch := range t.subs {
		close(ch)
	}
	t.subs = nil
}

func (t *Tracker) snapshotLocked() core.Progress {
	p := t.progress
	p.SuccessfulSignatures = append([]string{}, p.SuccessfulSignatures...)
	p.FailedRecipients = append([]core.Recipient{}, p.FailedRecipients...)
	p.Outcomes = append([]core.BatchOutcome{}, p.Outcomes...)
	return p
}
