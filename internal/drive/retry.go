package drive

import (
	"context"
	"time"

	"github.com/dgallion1/drivescope/internal/fault"
)

// withRetry runs fn up to maxRetries times. Only retryable faults (rate
// limits, transient network errors) are retried; everything else fails on
// first occurrence. The delay grows linearly with the attempt number.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil || !fault.Retryable(lastErr) {
			return lastErr
		}
		if attempt == c.maxRetries {
			break
		}
		delay := c.retryDelay * time.Duration(attempt)
		c.log.Warn("retryable store error",
			"op", op,
			"attempt", attempt,
			"delay", delay,
			"error", lastErr,
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fault.Wrap(fault.CodeNetwork, ctx.Err(), "%s cancelled", op)
		}
	}
	return lastErr
}
