package db

import (
	"context"
	"strings"
	"time"

	"github.com/unklstewy/loc-v2/internal/logging"
	"github.com/unklstewy/loc-v2/pkg/config"
)

// maxReconnectDelay caps the backoff between connection attempts.
const maxReconnectDelay = 60 * time.Second

// ReconnectWithRetry attempts to connect to the database with exponential backoff.
//
// Parameters:
//   - cfg: Database configuration
//   - maxRetries: Maximum number of connection attempts (0 = until ctx is done)
//   - initialDelay: Initial wait time between retries
//
// Returns: Connected database or the last error
func ReconnectWithRetry(ctx context.Context, cfg config.DatabaseConfig, maxRetries int, initialDelay time.Duration) (*DB, error) {
	log := logging.GetLogger()
	delay := initialDelay
	attempt := 0

	for {
		attempt++
		log.Debugw("database connection attempt", "attempt", attempt, "host", cfg.Host)

		db, err := Connect(ctx, cfg)
		if err == nil {
			log.Infow("database connected", "attempt", attempt)
			return db, nil
		}

		if maxRetries > 0 && attempt >= maxRetries {
			log.Errorw("database unreachable", "attempts", attempt, "error", err)
			return nil, err
		}

		log.Warnw("database connection failed", "error", err, "retry_in", delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// HealthCheck reports whether the database answers a trivial query.
func HealthCheck(ctx context.Context, db *DB) bool {
	if db == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		logging.GetLogger().Warnw("database health check failed", "error", err)
		return false
	}
	return result == 1
}

// connErrors are message fragments of errors worth retrying.
var connErrors = []string{
	"connection refused",
	"broken pipe",
	"no connection",
	"connection reset",
	"eof",
	"timeout",
}

// IsConnectionError reports whether err looks like a transient connection failure.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range connErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// WithRetry executes a database operation, retrying connection failures.
// Other errors are returned immediately.
func WithRetry(ctx context.Context, operation func() error, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsConnectionError(err) {
			return err
		}

		if attempt < maxRetries {
			wait := time.Duration(attempt+1) * time.Second
			logging.GetLogger().Warnw("database operation failed",
				"attempt", attempt+1, "max", maxRetries+1, "error", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	return lastErr
}
