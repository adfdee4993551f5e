package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/unklstewy/loc-v2/pkg/geo"
	"github.com/unklstewy/loc-v2/pkg/upstream"
)

var (
	praca    = geo.Coordinate{Lat: -19.9322, Lng: -43.9378}
	mineirao = geo.Coordinate{Lat: -19.8659, Lng: -43.9710}
)

func newTestService(url string) *Service {
	return NewService(url, upstream.NewClient(upstream.Options{Name: "osrm", Retry: upstream.NoRetry()}), nil)
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters float64
		want   string
	}{
		{850, "850m"},
		{999.4, "999m"},
		{0, "0m"},
		{1000, "1.0km"},
		{1500, "1.5km"},
		{12345, "12.3km"},
	}
	for _, tt := range tests {
		if got := FormatDistance(tt.meters); got != tt.want {
			t.Errorf("FormatDistance(%v): expected %s, got %s", tt.meters, tt.want, got)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0 MIN"},
		{29, "0 MIN"},
		{90, "2 MIN"},
		{754, "13 MIN"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%v): expected %s, got %s", tt.seconds, tt.want, got)
		}
	}
}

func TestRouteOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected no network call in offline mode")
	}))
	defer server.Close()

	res, err := newTestService(server.URL).Route(context.Background(), praca, mineirao, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(res.Coordinates) != 2 || res.Start() != praca || res.End() != mineirao {
		t.Errorf("Expected [start, end], got %v", res.Coordinates)
	}
	if res.TotalDistance != "ESTIMADA" || res.TotalTime != "OFFLINE" {
		t.Errorf("Expected ESTIMADA/OFFLINE, got %s/%s", res.TotalDistance, res.TotalTime)
	}
	if res.Mode != ModeOffline {
		t.Errorf("Expected offline mode, got %s", res.Mode)
	}
}

func TestRouteOnline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantPath := "/route/v1/driving/-43.937800,-19.932200;-43.971000,-19.865900"
		if r.URL.Path != wantPath {
			t.Errorf("Expected path %s, got %s", wantPath, r.URL.Path)
		}
		if r.URL.Query().Get("overview") != "full" || r.URL.Query().Get("geometries") != "geojson" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"code":"Ok","routes":[{"distance":1500,"duration":754,
			"geometry":{"coordinates":[[-43.9378,-19.9322],[-43.95,-19.90],[-43.9710,-19.8659]]}}]}`))
	}))
	defer server.Close()

	res, _ := newTestService(server.URL).Route(context.Background(), praca, mineirao, false)
	if res.Mode != ModeOnline {
		t.Fatalf("Expected online route, got %s", res.Mode)
	}
	if res.TotalDistance != "1.5km" || res.TotalTime != "13 MIN" {
		t.Errorf("Expected 1.5km/13 MIN, got %s/%s", res.TotalDistance, res.TotalTime)
	}
	if len(res.Coordinates) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(res.Coordinates))
	}
	// geometry is [lng, lat] on the wire
	if res.Coordinates[1] != (geo.Coordinate{Lat: -19.90, Lng: -43.95}) {
		t.Errorf("Expected swapped axes, got %+v", res.Coordinates[1])
	}
}

func TestRouteDegraded(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"Non-Ok code", http.StatusOK, `{"code":"NoRoute","message":"Impossible route","routes":[]}`},
		{"HTTP 400 with code", http.StatusBadRequest, `{"code":"InvalidQuery"}`},
		{"Server error", http.StatusInternalServerError, `oops`},
		{"Empty routes", http.StatusOK, `{"code":"Ok","routes":[]}`},
		{"Single point geometry", http.StatusOK, `{"code":"Ok","routes":[{"distance":1,"duration":1,"geometry":{"coordinates":[[-43.9,-19.9]]}}]}`},
		{"Malformed body", http.StatusOK, `{"code":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			}))
			defer server.Close()

			res, err := newTestService(server.URL).Route(context.Background(), praca, mineirao, false)
			if err != nil {
				t.Fatalf("Expected route to always resolve, got %v", err)
			}
			if res.TotalDistance != "--" || res.TotalTime != "--" {
				t.Errorf("Expected --/--, got %s/%s", res.TotalDistance, res.TotalTime)
			}
			if len(res.Coordinates) != 2 || res.Start() != praca || res.End() != mineirao {
				t.Errorf("Expected [start, end], got %v", res.Coordinates)
			}
		})
	}
}

func TestRouteUnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	res, _ := newTestService(url).Route(context.Background(), praca, mineirao, false)
	if res.Mode != ModeDegraded || !strings.HasPrefix(res.TotalDistance, "--") {
		t.Errorf("Expected degraded route, got %+v", res)
	}
}
