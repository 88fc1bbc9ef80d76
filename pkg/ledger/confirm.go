package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultPollInterval is how often WaitForConfirmation polls the ledger.
const DefaultPollInterval = 500 * time.Millisecond

// WaitForConfirmation polls the ledger until sig is finalized, rejected, or
// the block height passes lastValidHeight. The caller bounds the total wait
// with ctx. Transient lookup errors are retried until one of those happens.
//
// Returns nil once confirmed, an error wrapping ErrRejected when the
// transaction executed with an error, ErrExpired when the validity window
// closed first, or the context error.
func WaitForConfirmation(ctx context.Context, c Client, sig Signature, lastValidHeight uint64, poll time.Duration) error {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var lastErr error
	for {
		status, err := c.SignatureStatus(ctx, sig)
		switch {
		case err != nil:
			lastErr = err
		case status.Confirmed && status.Err != "":
			return fmt.Errorf("%w: %s", ErrRejected, status.Err)
		case status.Confirmed:
			return nil
		default:
			height, err := c.BlockHeight(ctx)
			if err != nil {
				lastErr = err
			} else if height > lastValidHeight {
				return fmt.Errorf("%w: height %d past %d", ErrExpired, height, lastValidHeight)
			}
		}

		select {
		case <-ctx.Done():
			if lastErr != nil && !errors.Is(lastErr, ctx.Err()) {
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
