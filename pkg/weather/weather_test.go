package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/unklstewy/loc-v2/pkg/geo"
	"github.com/unklstewy/loc-v2/pkg/upstream"
)

func TestCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/forecast" {
			t.Errorf("Expected /forecast, got %s", r.URL.Path)
		}
		if q.Get("latitude") != "-19.9322" || q.Get("longitude") != "-43.9378" || q.Get("current_weather") != "true" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"current_weather":{"temperature":23.6,"weathercode":61}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, upstream.NewClient(upstream.Options{Name: "open-meteo", Retry: upstream.NoRetry()}))
	snap, err := c.Current(context.Background(), geo.Coordinate{Lat: -19.9322, Lng: -43.9378})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if snap.Temp != 24 || snap.Code != 61 || snap.Condition != "CHUVA" {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
}

func TestCurrentMissingBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, upstream.NewClient(upstream.Options{Name: "open-meteo", Retry: upstream.NoRetry()}))
	if _, err := c.Current(context.Background(), geo.Coordinate{}); err == nil {
		t.Error("Expected error for missing current_weather")
	}
}

func TestDescribe(t *testing.T) {
	tests := map[int]string{
		0:  "CÉU LIMPO",
		2:  "NUBLADO",
		45: "NEBLINA",
		53: "GAROA",
		81: "CHUVA",
		95: "TEMPESTADE",
		42: "MG LOCAL",
	}
	for code, want := range tests {
		if got := Describe(code); got != want {
			t.Errorf("Describe(%d): expected %s, got %s", code, want, got)
		}
	}
}
