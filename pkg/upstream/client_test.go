package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientGetJSON(t *testing.T) {
	t.Run("Decodes body and sends headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") != DefaultUserAgent {
				t.Errorf("Expected default user agent, got %q", r.Header.Get("User-Agent"))
			}
			if r.Header.Get("Accept-Language") != "pt-BR" {
				t.Errorf("Expected Accept-Language pt-BR, got %q", r.Header.Get("Accept-Language"))
			}
			w.Write([]byte(`{"code":"Ok"}`))
		}))
		defer server.Close()

		c := NewClient(Options{Name: "osrm", Retry: NoRetry()})
		var out struct {
			Code string `json:"code"`
		}
		err := c.GetJSON(context.Background(), server.URL, map[string]string{"Accept-Language": "pt-BR"}, &out)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if out.Code != "Ok" {
			t.Errorf("Expected code Ok, got %q", out.Code)
		}
	})

	t.Run("429 becomes RateLimitError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "30")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := NewClient(Options{Name: "nominatim", Retry: NoRetry()})
		var out map[string]any
		err := c.GetJSON(context.Background(), server.URL, nil, &out)

		rle, ok := IsRateLimitError(err)
		if !ok {
			t.Fatalf("Expected RateLimitError, got %v", err)
		}
		if rle.RetryAfter != 30*time.Second {
			t.Errorf("Expected RetryAfter 30s, got %v", rle.RetryAfter)
		}
		if rle.Headers.Remaining != 0 {
			t.Errorf("Expected Remaining 0, got %d", rle.Headers.Remaining)
		}
	})

	t.Run("4xx is not retried", func(t *testing.T) {
		var hits int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			http.Error(w, "no", http.StatusBadRequest)
		}))
		defer server.Close()

		c := NewClient(Options{Name: "osrm", Retry: fastRetry(3)})
		var out map[string]any
		err := c.GetJSON(context.Background(), server.URL, nil, &out)

		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected StatusError 400, got %v", err)
		}
		if atomic.LoadInt32(&hits) != 1 {
			t.Errorf("Expected 1 request, got %d", hits)
		}
	})

	t.Run("5xx is retried", func(t *testing.T) {
		var hits int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&hits, 1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		c := NewClient(Options{Name: "open-meteo", Retry: fastRetry(2)})
		var out []any
		if err := c.GetJSON(context.Background(), server.URL, nil, &out); err != nil {
			t.Errorf("Expected success after retry, got %v", err)
		}
		if atomic.LoadInt32(&hits) != 2 {
			t.Errorf("Expected 2 requests, got %d", hits)
		}
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		}))
		defer server.Close()

		c := NewClient(Options{Name: "osrm", Retry: fastRetry(2)})
		var out map[string]any
		if err := c.GetJSON(context.Background(), server.URL, nil, &out); err == nil {
			t.Error("Expected parse error")
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	h := http.Header{}
	if d := parseRetryAfter(h); d != 0 {
		t.Errorf("Expected 0 without header, got %v", d)
	}
	h.Set("Retry-After", "5")
	if d := parseRetryAfter(h); d != 5*time.Second {
		t.Errorf("Expected 5s, got %v", d)
	}
	h.Set("Retry-After", time.Now().Add(time.Minute).UTC().Format(http.TimeFormat))
	if d := parseRetryAfter(h); d <= 0 || d > time.Minute {
		t.Errorf("Expected duration within a minute, got %v", d)
	}
}
