package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
)

const (
	// DefaultStaleAfter is how long a pending record may go without progress.
	DefaultStaleAfter = 15 * time.Minute

	// DefaultBatchLimit caps the records handled per sweep.
	DefaultBatchLimit = 100
)

// Sweeper periodically finalizes abandoned pending records.
type Sweeper struct {
	storage    core.Storage
	schedule   Schedule
	staleAfter time.Duration
	limit      int
	reconciler *Reconciler
	logger     *slog.Logger
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithStaleAfter sets how long a pending record may go without progress
// before it is finalized.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithLimit caps the records handled per sweep.
func WithLimit(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithReconciler also reconciles timed-out batches on every sweep.
func WithReconciler(r *Reconciler) Option {
	return func(s *Sweeper) {
		s.reconciler = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSweeper returns a sweeper running on schedule.
func NewSweeper(storage core.Storage, schedule Schedule, opts ...Option) *Sweeper {
	s := &Sweeper{
		storage:    storage,
		schedule:   schedule,
		staleAfter: DefaultStaleAfter,
		limit:      DefaultBatchLimit,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start sweeps on every scheduled time until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info("sweeper started", "stale_after", s.staleAfter)
	for {
		now := time.Now()
		timer := time.NewTimer(s.schedule.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("sweeper stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("sweep failed", "error", err)
		}
	}
}

// RunOnce finalizes every stale pending record and, when configured,
// reconciles timed-out batches. It returns the finalized records.
func (s *Sweeper) RunOnce(ctx context.Context) ([]*core.Record, error) {
	stale, err := s.storage.GetStalePending(ctx, s.staleAfter, s.limit)
	if err != nil {
		return nil, fmt.Errorf("list stale records: %w", err)
	}

	finalized := make([]*core.Record, 0, len(stale))
	for _, rec := range stale {
		reason := fmt.Sprintf("relay abandoned: no progress since %s", rec.UpdatedAt.UTC().Format(time.RFC3339))
		final, err := s.storage.FinalizeRecord(ctx, rec.ID, nil, reason)
		if err != nil {
			s.logger.Error("failed to finalize stale record", "job_id", rec.ID, "error", err)
			continue
		}
		s.logger.Warn("finalized abandoned airdrop", "job_id", rec.ID, "status", final.Status)
		finalized = append(finalized, final)
	}

	if s.reconciler != nil {
		if _, err := s.reconciler.Reconcile(ctx, s.limit); err != nil {
			s.logger.Error("reconcile timed-out batches failed", "error", err)
		}
	}
	return finalized, nil
}
