// Package upstream is the shared HTTP plumbing for the third-party map
// services: a rate-limited JSON client with retry and typed errors.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/unklstewy/loc-v2/internal/metrics"
	"golang.org/x/time/rate"
)

// DefaultUserAgent identifies the application to public APIs. Nominatim's
// usage policy requires one.
const DefaultUserAgent = "loc-v2-mg/2.0 (+https://github.com/unklstewy/loc-v2)"

// Options configures a Client.
type Options struct {
	// Name labels errors and metrics ("nominatim", "osrm", ...)
	Name string

	// Timeout bounds each HTTP attempt (default 10s)
	Timeout time.Duration

	// RequestsPerSecond throttles outgoing calls; 0 disables throttling
	RequestsPerSecond float64

	// Retry controls backoff between attempts
	Retry RetryConfig

	// UserAgent overrides DefaultUserAgent
	UserAgent string

	// Transport overrides the default transport, e.g. the asset cache
	Transport http.RoundTripper
}

// Client performs throttled, retried GET requests that decode JSON.
type Client struct {
	name        string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	retry       RetryConfig
	userAgent   string
}

// NewClient creates a client from opts.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		name: opts.Name,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		rateLimiter: limiter,
		retry:       opts.Retry,
		userAgent:   opts.UserAgent,
	}
}

// Name returns the provider label.
func (c *Client) Name() string {
	return c.name
}

// GetJSON fetches rawURL and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, headers map[string]string, out any) error {
	start := time.Now()
	err := RetryWithBackoff(ctx, c.retry, func() error {
		return c.getOnce(ctx, rawURL, headers, out)
	})
	metrics.ObserveProvider(c.name, start, err)
	return err
}

func (c *Client) getOnce(ctx context.Context, rawURL string, headers map[string]string, out any) error {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return Permanent(fmt.Errorf("rate limiter wait failed: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s data: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			Provider:   c.name,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header),
			Message:    "Rate limit exceeded",
			Headers:    extractRateLimitHeaders(resp.Header),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		se := &StatusError{Provider: c.name, StatusCode: resp.StatusCode, Body: string(body)}
		if se.Retryable() {
			return se
		}
		return Permanent(se)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Permanent(fmt.Errorf("failed to parse %s response: %w", c.name, err))
	}
	return nil
}
