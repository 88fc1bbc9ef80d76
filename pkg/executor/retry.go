package executor

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
)

// RetryConfig bounds the retries of a relay's storage writes. The wait
// doubles after every failed attempt up to MaxBackoff, randomized by
// ±Jitter of its length.
type RetryConfig struct {
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
	Jitter      float64
}

// DefaultRetryConfig retries five times over roughly 1.5s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 5,
		Backoff:     100 * time.Millisecond,
		MaxBackoff:  5 * time.Second,
		Jitter:      0.1,
	}
}

func (c RetryConfig) wait(attempt int) time.Duration {
	d := c.Backoff << (attempt - 1)
	if d <= 0 || d > c.MaxBackoff {
		d = c.MaxBackoff
	}
	if c.Jitter > 0 {
		d += time.Duration(float64(d) * c.Jitter * (rand.Float64()*2 - 1))
	}
	return max(d, 0)
}

// persist runs a storage write until it succeeds, fails permanently, runs out
// of attempts or ctx ends. The last error is returned.
func persist(ctx context.Context, cfg RetryConfig, logger *slog.Logger, what string, write func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = write(); err == nil || !IsRetryableError(err) || attempt >= cfg.MaxAttempts {
			return err
		}
		wait := cfg.wait(attempt)
		logger.Debug("storage write failed, retrying", "write", what, "attempt", attempt, "wait", wait, "error", err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// IsRetryableError reports whether a storage error may succeed on retry.
// Cancellation and the record-level conflicts are permanent; anything else,
// such as a dropped connection or a lock timeout, is worth retrying.
func IsRetryableError(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, core.ErrDuplicateRecord), errors.Is(err, core.ErrRecordNotFound):
		return false
	}
	return true
}
