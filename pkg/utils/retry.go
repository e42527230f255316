package utils

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryConfig controls the backoff schedule for Retry and
// RetryWithResult.
type RetryConfig struct {
	MaxAttempts     int           // Total attempts including the first
	InitialDelay    time.Duration // Delay before the first retry
	MaxDelay        time.Duration // Cap on the backoff delay
	Multiplier      float64       // Backoff growth factor
	Jitter          bool          // Randomize delays by ±25%
	RetryableErrors []error       // Errors worth retrying (nil = all)
}

// DatabaseRetryConfig is tuned for connection establishment: Postgres
// and Redis are usually a container that comes up moments after the
// server, so the schedule is short and aggressive.
func DatabaseRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// ExternalAPIRetryConfig is tuned for the Google Calendar API, which
// rate-limits and has the occasional 5xx. Fewer attempts with longer
// delays, since the caller is usually an interactive request.
func ExternalAPIRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Retry runs fn until it succeeds, attempts run out, or ctx is
// cancelled. Delays between attempts grow exponentially
// (initialDelay * multiplier^(attempt-1), capped at MaxDelay), with
// optional jitter so concurrent callers don't retry in lockstep.
func Retry(ctx context.Context, config RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, config, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult is Retry for functions that produce a value. The
// result of the first successful attempt is returned; on failure the
// zero value is returned along with the last error.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		res, err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Int("max_attempts", config.MaxAttempts).
					Msg("Operation succeeded after retry")
			}
			return res, nil
		}
		lastErr = err

		if !isRetryable(err, config.RetryableErrors) {
			return zero, fmt.Errorf("non-retryable error: %w", err)
		}
		if attempt >= config.MaxAttempts {
			log.Warn().
				Err(err).
				Int("attempts", attempt).
				Msg("Max retry attempts reached")
			break
		}

		delay := backoffDelay(attempt, config)
		log.Debug().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", config.MaxAttempts).
			Dur("delay", delay).
			Msg("Operation failed, retrying after delay")

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return zero, fmt.Errorf("max retries exceeded (%d attempts): %w", config.MaxAttempts, lastErr)
}

func backoffDelay(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	if config.Jitter {
		span := delay * 0.25
		delay += rand.Float64()*2*span - span
	}
	return time.Duration(delay)
}

func isRetryable(err error, retryable []error) bool {
	if len(retryable) == 0 {
		return true
	}
	for _, candidate := range retryable {
		if err == candidate || err.Error() == candidate.Error() {
			return true
		}
	}
	return false
}
