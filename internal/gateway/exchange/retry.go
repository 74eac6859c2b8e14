package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tierbot/internal/logger"
)

var ErrRetriesExhausted = errors.New("retries exhausted")

// Retry calls fn up to attempts times, sleeping baseDelay·2^i between tries.
// The last error is wrapped together with ErrRetriesExhausted.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		delay := baseDelay << i
		logger.Debugf("retry %d/%d in %s: %v", i+1, attempts, delay, lastErr)
		if !sleepWithContext(ctx, delay) {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, lastErr)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
