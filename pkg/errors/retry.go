package errors

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig holds configuration for retry logic
type RetryConfig struct {
	MaxRetries     int
	Delay          time.Duration
	RetryableError func(error) bool
	Sleep          func(time.Duration)
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 1,
		Delay:      5 * time.Second,
		RetryableError: func(err error) bool {
			return true
		},
	}
}

// RetryableFunc represents a function that can be retried
type RetryableFunc func(ctx context.Context) error

// Retry executes a function with fixed-delay retry logic. The function runs
// at most MaxRetries+1 times; the configured Sleep elapses between attempts.
func Retry(ctx context.Context, config *RetryConfig, fn RetryableFunc) error {
	sleep := config.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if config.RetryableError != nil && !config.RetryableError(err) {
			return err
		}

		if attempt == config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		sleep(config.Delay)
	}

	return Wrap(lastErr, ErrCodeMaxRetriesExceeded,
		fmt.Sprintf("Operation failed after %d attempts", config.MaxRetries+1))
}
