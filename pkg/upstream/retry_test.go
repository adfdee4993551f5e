package upstream

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("Success on first attempt", func(t *testing.T) {
		attempts := 0
		err := RetryWithBackoff(context.Background(), fastRetry(3), func() error {
			attempts++
			return nil
		})
		if err != nil {
			t.Errorf("Expected no error, got: %v", err)
		}
		if attempts != 1 {
			t.Errorf("Expected 1 attempt, got %d", attempts)
		}
	})

	t.Run("Success after retries", func(t *testing.T) {
		attempts := 0
		err := RetryWithBackoff(context.Background(), fastRetry(3), func() error {
			attempts++
			if attempts < 3 {
				return errors.New("temporary error")
			}
			return nil
		})
		if err != nil {
			t.Errorf("Expected no error, got: %v", err)
		}
		if attempts != 3 {
			t.Errorf("Expected 3 attempts, got %d", attempts)
		}
	})

	t.Run("Max retries exceeded", func(t *testing.T) {
		attempts := 0
		err := RetryWithBackoff(context.Background(), fastRetry(3), func() error {
			attempts++
			return errors.New("persistent error")
		})
		if err == nil {
			t.Error("Expected error after max retries")
		}
		if attempts != 4 {
			t.Errorf("Expected 4 attempts (initial + 3 retries), got %d", attempts)
		}
	})

	t.Run("Permanent error stops immediately", func(t *testing.T) {
		attempts := 0
		sentinel := errors.New("bad request")
		err := RetryWithBackoff(context.Background(), fastRetry(3), func() error {
			attempts++
			return Permanent(sentinel)
		})
		if !errors.Is(err, sentinel) {
			t.Errorf("Expected sentinel error, got %v", err)
		}
		if attempts != 1 {
			t.Errorf("Expected 1 attempt, got %d", attempts)
		}
	})

	t.Run("Context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		cfg := RetryConfig{MaxRetries: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2}
		done := make(chan error, 1)
		go func() {
			done <- RetryWithBackoff(ctx, cfg, func() error {
				attempts++
				return errors.New("error")
			})
		}()
		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Retry did not stop after cancellation")
		}
		if attempts != 1 {
			t.Errorf("Expected 1 attempt, got %d", attempts)
		}
	})

	t.Run("No retry returns bare error", func(t *testing.T) {
		sentinel := errors.New("offline")
		err := RetryWithBackoff(context.Background(), NoRetry(), func() error { return sentinel })
		if err != sentinel {
			t.Errorf("Expected unwrapped sentinel, got %v", err)
		}
	})
}

func TestRetryWithBackoffResult(t *testing.T) {
	attempts := 0
	got, err := RetryWithBackoffResult(context.Background(), fastRetry(2), func() (string, error) {
		attempts++
		if attempts == 1 {
			return "", &RateLimitError{Provider: "nominatim", StatusCode: 429, RetryAfter: time.Millisecond, Message: "Rate limit exceeded"}
		}
		return "SAVASSI", nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "SAVASSI" {
		t.Errorf("Expected SAVASSI, got %q", got)
	}
}
