package idosell

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// retry runs fn up to attempts times. Before attempt n+1 it waits
// n * baseDelay. The last error is returned when every attempt fails.
func retry[T any](ctx context.Context, logger *zap.Logger, attempts int, baseDelay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		logger.Warn("Attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)

		if attempt == attempts {
			break
		}

		timer := time.NewTimer(time.Duration(attempt) * baseDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}
