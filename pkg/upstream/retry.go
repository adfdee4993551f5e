package upstream

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// RetryConfig configures retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts after the first call
	MaxRetries int

	// InitialDelay is the initial backoff delay
	InitialDelay time.Duration

	// MaxDelay caps the backoff delay
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier (2.0 for exponential)
	Multiplier float64

	// RespectRetryAfter uses the Retry-After header when a 429 carries one
	RespectRetryAfter bool
}

// DefaultRetryConfig returns defaults tuned for interactive lookups: one
// quick retry, so a user never waits on a long backoff chain.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        1,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		Multiplier:        2.0,
		RespectRetryAfter: true,
	}
}

// NoRetry performs exactly one attempt.
func NoRetry() RetryConfig {
	return RetryConfig{Multiplier: 1}
}

// permanentError marks a failure that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so RetryWithBackoff returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// RetryWithBackoff executes fn with exponential backoff retry logic.
// Rate limit errors honour their Retry-After delay.
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := RetryWithBackoffResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithBackoffResult executes fn with exponential backoff and returns its result.
//
// Example usage:
//
//	places, err := RetryWithBackoffResult(ctx, DefaultRetryConfig(), func() ([]Place, error) {
//	    return geocoder.Search(ctx, "savassi")
//	})
func RetryWithBackoffResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-timer.C:
			}
		}

		res, err := fn()
		if err == nil {
			return res, nil
		}

		result = res
		lastErr = err

		if IsPermanent(err) {
			return result, err
		}
		if ctx.Err() != nil {
			return result, err
		}

		if attempt == cfg.MaxRetries {
			break
		}

		// delay = min(InitialDelay * Multiplier^attempt, MaxDelay)
		nextDelay := time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt)))
		if cfg.MaxDelay > 0 && nextDelay > cfg.MaxDelay {
			nextDelay = cfg.MaxDelay
		}
		delay = nextDelay

		if rle, ok := IsRateLimitError(err); ok && cfg.RespectRetryAfter && rle.RetryAfter > 0 {
			delay = rle.RetryAfter
		}
	}

	if cfg.MaxRetries == 0 {
		return result, lastErr
	}
	return result, fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
}
