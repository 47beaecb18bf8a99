package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrRetriesExhausted wraps the last connect error once every attempt failed.
var ErrRetriesExhausted = errors.New("mqtt connect retries exhausted")

// ConnectWithRetry calls connect up to attempts times, sleeping delay between
// failures. It returns nil on the first success.
func ConnectWithRetry(ctx context.Context, attempts int, delay time.Duration, connect func(context.Context) error, logger *slog.Logger) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = connect(ctx)
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("Connected after retry", "attempt", attempt)
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.Warn("MQTT connect failed", "attempt", attempt, "max_attempts", attempts, "error", lastErr)
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	logger.Error("Giving up on MQTT connection", "attempts", attempts, "error", lastErr)
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, lastErr)
}
