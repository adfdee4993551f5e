package assetcache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, store Store, o *origin) *httptest.Server {
	t.Helper()
	c := newTestCache(t, store, Options{Origin: o.URL})
	srv := httptest.NewServer(NewServer(c, ServerOptions{
		Precache: []string{"/index.html", o.URL + "/leaflet.css"},
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestServerHealth(t *testing.T) {
	srv := newTestServer(t, NewMemoryStore(), newOrigin(t))

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusOK || body["version"] != testVersion {
		t.Errorf("Expected 200 with version, got %d %v", resp.StatusCode, body)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Expected JSON response, got %v", resp.Header)
	}
}

type downStore struct {
	*MemoryStore
}

func (downStore) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

func TestServerHealthDegraded(t *testing.T) {
	srv := newTestServer(t, downStore{NewMemoryStore()}, newOrigin(t))

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when the store is down, got %d", resp.StatusCode)
	}
}

func TestServerInstallActivateStatus(t *testing.T) {
	store := NewMemoryStore()
	store.Put(context.Background(), "old", Entry{URL: "https://a/x"})
	srv := newTestServer(t, store, newOrigin(t))

	resp, err := http.Post(srv.URL+"/cache/install", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /cache/install failed: %v", err)
	}
	var report InstallReport
	json.NewDecoder(resp.Body).Decode(&report)
	resp.Body.Close()
	if len(report.Stored) != 2 {
		t.Errorf("Expected 2 stored assets, got %+v", report)
	}

	resp, err = http.Post(srv.URL+"/cache/activate", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /cache/activate failed: %v", err)
	}
	var activated struct {
		Removed []string `json:"removed"`
	}
	json.NewDecoder(resp.Body).Decode(&activated)
	resp.Body.Close()
	if len(activated.Removed) != 1 || activated.Removed[0] != "old" {
		t.Errorf("Expected old generation removed, got %v", activated.Removed)
	}

	resp, err = http.Get(srv.URL + "/cache/status")
	if err != nil {
		t.Fatalf("GET /cache/status failed: %v", err)
	}
	var st Status
	json.NewDecoder(resp.Body).Decode(&st)
	resp.Body.Close()
	if st.Entries != 2 || len(st.Generations) != 1 {
		t.Errorf("Unexpected status %+v", st)
	}
}

func TestServerFetch(t *testing.T) {
	o := newOrigin(t)
	store := NewMemoryStore()
	srv := newTestServer(t, store, o)

	t.Run("rejects relative urls", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/fetch?url=/index.html")
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("relays GET through the cache", func(t *testing.T) {
		target := o.URL + "/leaflet.css"
		store.Put(context.Background(), testVersion, Entry{URL: target, StatusCode: 200, Body: []byte("cached css")})

		resp, err := http.Get(srv.URL + "/fetch?url=" + url.QueryEscape(target))
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(body) != "cached css" || resp.Header.Get("X-Cache") != "HIT" {
			t.Errorf("Expected cached body with HIT, got %q %v", body, resp.Header)
		}
	})

	t.Run("relays POST to the network", func(t *testing.T) {
		target := o.URL + "/submit"
		resp, err := http.Post(srv.URL+"/fetch?url="+url.QueryEscape(target), "text/plain", strings.NewReader("x"))
		if err != nil {
			t.Fatalf("POST failed: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(body) != "asset POST /submit" {
			t.Errorf("Expected origin response, got %q", body)
		}
	})

	t.Run("network failure is a bad gateway", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/fetch?url=" + url.QueryEscape("http://127.0.0.1:1/x.js"))
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("Expected 502, got %d", resp.StatusCode)
		}
	})
}
