package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// RateLimitError represents an HTTP 429 rate limit error with retry information.
type RateLimitError struct {
	Provider   string
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Headers    RateLimitHeaders
}

// RateLimitHeaders contains rate limit information from response headers.
type RateLimitHeaders struct {
	Limit     int       // X-RateLimit-Limit: maximum requests allowed
	Remaining int       // X-RateLimit-Remaining: requests left in the window
	Reset     time.Time // X-RateLimit-Reset: when the window resets
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: %s (retry after %v)", e.Provider, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// IsRateLimitError checks if an error is, or wraps, a rate limit error.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500
}

// parseRetryAfter extracts the Retry-After header value.
// Supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(headers http.Header) time.Duration {
	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if retryTime, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(retryTime); d > 0 {
			return d
		}
	}

	return 0
}

// extractRateLimitHeaders reads the common rate limit headers.
// Unknown values are reported as -1.
func extractRateLimitHeaders(headers http.Header) RateLimitHeaders {
	rlh := RateLimitHeaders{
		Limit:     -1,
		Remaining: -1,
	}

	if v, ok := firstInt(headers, "X-RateLimit-Limit", "X-Rate-Limit-Limit"); ok {
		rlh.Limit = v
	}
	if v, ok := firstInt(headers, "X-RateLimit-Remaining", "X-Rate-Limit-Remaining"); ok {
		rlh.Remaining = v
	}
	if v, ok := firstInt(headers, "X-RateLimit-Reset", "X-Rate-Limit-Reset"); ok {
		rlh.Reset = time.Unix(int64(v), 0)
	}

	return rlh
}

func firstInt(headers http.Header, names ...string) (int, bool) {
	for _, name := range names {
		if raw := headers.Get(name); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}
