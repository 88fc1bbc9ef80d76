package airdrop

import (
	"log/slog"
	"time"

	"github.com/jdziat/simple-durable-airdrops/pkg/executor"
	"github.com/jdziat/simple-durable-airdrops/pkg/lock"
	"github.com/jdziat/simple-durable-airdrops/pkg/progress"
)

// WithInterBatchDelay sets the pause between consecutive batch submissions.
func WithInterBatchDelay(d time.Duration) Option {
	return executor.WithInterBatchDelay(d)
}

// WithConfirmTimeout bounds how long each submitted batch is awaited.
func WithConfirmTimeout(d time.Duration) Option {
	return executor.WithConfirmTimeout(d)
}

// WithPollInterval sets how often signature status is polled.
func WithPollInterval(d time.Duration) Option {
	return executor.WithPollInterval(d)
}

// WithLogger sets the executor logger.
func WithLogger(l *slog.Logger) Option {
	return executor.WithLogger(l)
}

// WithProgress forwards options to every job's progress tracker.
func WithProgress(opts ...progress.Option) Option {
	return executor.WithProgress(opts...)
}

// WithLocker sets the per-job lock used by a relay.
func WithLocker(l lock.Locker) Option {
	return executor.WithLocker(l)
}

// OnProgress registers a hook called with a snapshot after every settled batch.
func OnProgress(fn func(Progress)) Option {
	return executor.WithProgress(progress.WithHook(fn))
}
