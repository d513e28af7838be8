package provider

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64

	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger zerolog.Logger
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    2,
		InitialDelay:  500 * time.Millisecond,
		BackoffFactor: 2.0,
		Logger:        zerolog.Nop(),
	}
}

// ComputeRetryDelay computes the delay before retry number attempt (1-based).
func ComputeRetryDelay(attempt int, cfg RetryConfig) time.Duration {
	factor := cfg.BackoffFactor
	if factor <= 0 {
		factor = 2.0
	}
	return time.Duration(float64(cfg.InitialDelay) * math.Pow(factor, float64(attempt-1)))
}

// WithRetry invokes op, re-invoking it while it fails with a transient
// signature (HTTP 429 or 5xx), at most cfg.MaxRetries extra times. Any other
// failure is returned immediately; exhausting retries returns the last error.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, op func(context.Context) (T, error)) (T, error) {
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	maxRetries := max(cfg.MaxRetries, 0)

	var zero T
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := ComputeRetryDelay(attempt, cfg)
			cfg.Logger.Debug().
				Int("attempt", attempt).
				Dur("delay", delay).
				Int("status", StatusCode(lastErr)).
				Msg("retrying transient vendor failure")
			if err := sleep(ctx, delay); err != nil {
				return zero, err
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !IsTransient(err) {
			return zero, err
		}
	}

	cfg.Logger.Warn().
		Int("attempts", maxRetries+1).
		Err(lastErr).
		Msg("retries exhausted")
	return zero, lastErr
}

// sleepWithContext sleeps for d, returning early if ctx is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
