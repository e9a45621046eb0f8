package util

import (
	"context"
	"fmt"
	"time"
)

// Retry runs fn up to maxAttempts times, doubling the wait between attempts
// starting from baseDelay. It stops early when the context is cancelled and
// wraps the last attempt's error when every attempt fails.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		timer := time.NewTimer(baseDelay << (attempt - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}
