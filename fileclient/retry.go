package fileclient

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

const (
	baseRetryDelay = 500 * time.Millisecond
	maxRetryDelay  = 30 * time.Second
)

// retryWithBackoff runs fn up to attempts times, doubling the delay between
// tries with ±20% jitter. It gives up early when ctx is done.
func retryWithBackoff(ctx context.Context, logger *zap.Logger, operation string, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		delay := backoff(attempt)
		logger.Info("retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("attempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s cancelled after %d attempts: %w", operation, attempt, err)
		case <-timer.C:
		}
	}

	if attempts == 1 {
		return err
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operation, attempts, err)
}

func backoff(attempt int) time.Duration {
	delay := baseRetryDelay * time.Duration(1<<uint(attempt-1))
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return time.Duration(float64(delay) * (0.8 + rand.Float64()*0.4))
}
