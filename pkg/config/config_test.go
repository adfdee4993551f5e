package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestDefaultConfig verifies that DefaultConfig returns valid defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Region.CenterLat != -19.9322 || cfg.Region.CenterLng != -43.9378 {
		t.Errorf("Expected Praça da Liberdade center, got %v,%v", cfg.Region.CenterLat, cfg.Region.CenterLng)
	}
	if cfg.HUD.Zoom != 15 {
		t.Errorf("Expected default zoom 15, got %d", cfg.HUD.Zoom)
	}
	if cfg.HUD.SearchDebounceMs != 350 {
		t.Errorf("Expected debounce 350ms, got %d", cfg.HUD.SearchDebounceMs)
	}
	if cfg.Providers.Nominatim.RequestsPerSecond != 1.0 {
		t.Errorf("Expected nominatim throttled to 1 rps, got %v", cfg.Providers.Nominatim.RequestsPerSecond)
	}
	if cfg.AssetCache.Version != "loc-v2-mg-cache-v1" {
		t.Errorf("Expected cache version loc-v2-mg-cache-v1, got %s", cfg.AssetCache.Version)
	}
	if len(cfg.AssetCache.Precache) != 7 {
		t.Errorf("Expected 7 precached assets, got %d", len(cfg.AssetCache.Precache))
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Expected default postgres port 5432, got %d", cfg.Database.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

// TestLoadNonExistentFile verifies defaults are returned when the file is missing.
func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if cfg.HUD.Color != "green" {
		t.Errorf("Expected default color green, got %s", cfg.HUD.Color)
	}
}

// TestLoadValidConfig verifies a partial file is layered over the defaults.
func TestLoadValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"hud": {"zoom": 12, "color": "gold"},
		"location": {"source": "static", "static_lat": -20.3855, "static_lng": -43.5035},
		"asset_cache": {"store": "redis", "dynamic_hosts": ["api.open-meteo.com"]}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HUD.Zoom != 12 || cfg.HUD.Color != "gold" {
		t.Errorf("Expected zoom 12 gold, got %d %s", cfg.HUD.Zoom, cfg.HUD.Color)
	}
	if cfg.HUD.VisualFilter != "standard" {
		t.Errorf("Expected untouched default visual filter, got %s", cfg.HUD.VisualFilter)
	}
	if cfg.Location.Source != "static" || cfg.Location.StaticLat != -20.3855 {
		t.Errorf("Unexpected location %+v", cfg.Location)
	}
	if cfg.AssetCache.Store != "redis" || len(cfg.AssetCache.DynamicHosts) != 1 {
		t.Errorf("Unexpected asset cache %+v", cfg.AssetCache)
	}
	if cfg.Region.Bounds.West != -51.01 {
		t.Errorf("Expected default bounds, got %+v", cfg.Region.Bounds)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{ invalid json }`), 0644)

	if _, err := Load(path); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"hud": {"zoom": 25, "color": "red"}, "location": {"source": "replay"}}`), 0644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, want := range []string{"hud.zoom", "hud.color", "location.replay_file"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to mention %s, got %v", want, err)
		}
	}
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.json")

	cfg := DefaultConfig()
	cfg.HUD.VisualFilter = "night-vision"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved config: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Saved config is not valid JSON: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load of saved config failed: %v", err)
	}
	if loaded.HUD.VisualFilter != "night-vision" {
		t.Errorf("Expected night-vision, got %s", loaded.HUD.VisualFilter)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("LOCV2_HUD_ZOOM", "9")
	t.Setenv("LOCV2_LOCATION_SOURCE", "none")
	t.Setenv("LOCV2_DATABASE_PASSWORD", "env-password")
	t.Setenv("LOCV2_PROVIDERS_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "env-gemini-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HUD.Zoom != 9 {
		t.Errorf("Expected zoom 9 from env, got %d", cfg.HUD.Zoom)
	}
	if cfg.Location.Source != "none" {
		t.Errorf("Expected location source none, got %s", cfg.Location.Source)
	}
	if cfg.Database.Password != "env-password" {
		t.Errorf("Expected database password from env, got %q", cfg.Database.Password)
	}
	if cfg.Providers.Gemini.APIKey != "env-gemini-key" {
		t.Errorf("Expected gemini key from GEMINI_API_KEY, got %q", cfg.Providers.Gemini.APIKey)
	}
}

func TestDSN(t *testing.T) {
	d := DefaultConfig().Database
	d.Password = "secret"
	want := "host=localhost port=5432 user=locv2 password=secret dbname=locv2 sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
