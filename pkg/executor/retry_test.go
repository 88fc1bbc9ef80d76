package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/security"
)

func TestRetryConfig_WaitDoublesUpToMax(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 10, Backoff: 10 * time.Millisecond, MaxBackoff: 50 * time.Millisecond}

	assert.Equal(t, 10*time.Millisecond, cfg.wait(1))
	assert.Equal(t, 20*time.Millisecond, cfg.wait(2))
	assert.Equal(t, 40*time.Millisecond, cfg.wait(3))
	assert.Equal(t, 50*time.Millisecond, cfg.wait(4))
	assert.Equal(t, 50*time.Millisecond, cfg.wait(9))
}

func TestRetryConfig_WaitJitterStaysInRange(t *testing.T) {
	cfg := DefaultRetryConfig()
	for range 50 {
		d := cfg.wait(1)
		assert.GreaterOrEqual(t, d, 90*time.Millisecond)
		assert.LessOrEqual(t, d, 110*time.Millisecond)
	}
}

func TestPersist_SucceedsAfterTransientFailures(t *testing.T) {
	var attempts int
	err := persist(context.Background(), fastRetry(), slog.Default(), "record batch", func() error {
		attempts++
		if attempts < 3 {
			return errDBDown
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestPersist_ReturnsLastErrorWhenExhausted(t *testing.T) {
	var attempts int
	err := persist(context.Background(), fastRetry(), slog.Default(), "record batch", func() error {
		attempts++
		return fmt.Errorf("attempt %d: %w", attempts, errDBDown)
	})

	assert.ErrorIs(t, err, errDBDown)
	assert.Contains(t, err.Error(), "attempt 3")
	assert.Equal(t, 3, attempts)
}

func TestPersist_StopsOnPermanentError(t *testing.T) {
	var attempts int
	err := persist(context.Background(), DefaultRetryConfig(), slog.Default(), "create record", func() error {
		attempts++
		return fmt.Errorf("insert: %w", core.ErrDuplicateRecord)
	})

	assert.ErrorIs(t, err, core.ErrDuplicateRecord)
	assert.Equal(t, 1, attempts)
}

func TestPersist_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	cfg := RetryConfig{MaxAttempts: 10, Backoff: time.Second, MaxBackoff: time.Second}
	var attempts int
	start := time.Now()
	err := persist(ctx, cfg, slog.Default(), "finalize record", func() error {
		attempts++
		return errDBDown
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), time.Second)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"context.Canceled", context.Canceled, false},
		{"context.DeadlineExceeded", context.DeadlineExceeded, false},
		{"duplicate record", core.ErrDuplicateRecord, false},
		{"wrapped missing record", fmt.Errorf("update: %w", core.ErrRecordNotFound), false},
		{"generic error", errors.New("connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryableError(tt.err))
		})
	}
}

func TestWithStorageRetry_ClampsAttempts(t *testing.T) {
	cfg := newConfig([]Option{WithStorageRetry(RetryConfig{MaxAttempts: 1000})})
	assert.Equal(t, security.MaxRetries, cfg.StorageRetry.MaxAttempts)

	cfg = newConfig([]Option{WithStorageRetry(RetryConfig{MaxAttempts: 0})})
	assert.Equal(t, 1, cfg.StorageRetry.MaxAttempts)
}

func TestOptions_Defaults(t *testing.T) {
	cfg := newConfig(nil)
	assert.Equal(t, core.DefaultInterBatchDelay, cfg.InterBatchDelay)
	assert.Equal(t, core.DefaultConfirmTimeout, cfg.ConfirmTimeout)
	assert.Equal(t, DefaultRetryConfig(), cfg.StorageRetry)
	assert.NotNil(t, cfg.Logger)

	cfg = newConfig([]Option{WithInterBatchDelay(-time.Second), WithConfirmTimeout(0), WithLogger(nil)})
	assert.Equal(t, core.DefaultInterBatchDelay, cfg.InterBatchDelay, "negative delay ignored")
	assert.Equal(t, core.DefaultConfirmTimeout, cfg.ConfirmTimeout, "zero timeout ignored")
	assert.NotNil(t, cfg.Logger)
}
