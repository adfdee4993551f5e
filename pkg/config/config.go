package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/unklstewy/loc-v2/pkg/geo"
)

// EnvPrefix namespaces environment overrides, e.g. LOCV2_HUD_ZOOM=12.
const EnvPrefix = "LOCV2"

// Accepted enumerations.
var (
	HUDColors       = []string{"green", "blue", "purple", "gold"}
	VisualFilters   = []string{"standard", "high-contrast", "night-vision"}
	LocationSources = []string{"gpsd", "replay", "static", "none"}
	CacheStores     = []string{"memory", "redis", "postgres"}
)

// Config represents the complete application configuration.
type Config struct {
	Region     RegionConfig     `json:"region" mapstructure:"region"`
	Providers  ProvidersConfig  `json:"providers" mapstructure:"providers"`
	Location   LocationConfig   `json:"location" mapstructure:"location"`
	HUD        HUDConfig        `json:"hud" mapstructure:"hud"`
	AssetCache AssetCacheConfig `json:"asset_cache" mapstructure:"asset_cache"`
	Server     ServerConfig     `json:"server" mapstructure:"server"`
	Database   DatabaseConfig   `json:"database" mapstructure:"database"`
	Redis      RedisConfig      `json:"redis" mapstructure:"redis"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
	Metrics    MetricsConfig    `json:"metrics" mapstructure:"metrics"`
}

// RegionConfig describes the single map region the HUD operates in.
type RegionConfig struct {
	// Name is shown in boot logs and the settings panel
	Name string `json:"name" mapstructure:"name"`

	// Bounds restricts geocoding and shades the map outside the region
	Bounds geo.Bounds `json:"bounds" mapstructure:"bounds"`

	// CenterLat/CenterLng is the viewport center before the first fix
	CenterLat float64 `json:"center_lat" mapstructure:"center_lat"`
	CenterLng float64 `json:"center_lng" mapstructure:"center_lng"`

	// TimeZone is the IANA zone for the HUD clock
	TimeZone string `json:"timezone" mapstructure:"timezone"`

	// QuerySuffix is appended to geocoder queries
	QuerySuffix string `json:"query_suffix" mapstructure:"query_suffix"`
}

// Center returns the configured default viewport center.
func (r RegionConfig) Center() geo.Coordinate {
	return geo.Coordinate{Lat: r.CenterLat, Lng: r.CenterLng}
}

// ProvidersConfig contains the third-party map service settings.
type ProvidersConfig struct {
	Nominatim ProviderConfig `json:"nominatim" mapstructure:"nominatim"`
	OSRM      ProviderConfig `json:"osrm" mapstructure:"osrm"`
	OpenMeteo ProviderConfig `json:"open_meteo" mapstructure:"open_meteo"`
	Gemini    GeminiConfig   `json:"gemini" mapstructure:"gemini"`

	// TimeoutSeconds bounds each HTTP attempt
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`

	// MaxRetries is the number of extra attempts after a failure
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`
}

// ProviderConfig is one HTTP provider.
type ProviderConfig struct {
	// BaseURL is the API root
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// RequestsPerSecond throttles calls (0 = unlimited)
	// Nominatim's public policy allows 1 request per second
	RequestsPerSecond float64 `json:"requests_per_second" mapstructure:"requests_per_second"`
}

// GeminiConfig contains the generative search fallback settings.
type GeminiConfig struct {
	// APIKey enables the generator; empty disables it
	APIKey string `json:"api_key,omitempty" mapstructure:"api_key"`

	// Model is the Gemini model name
	Model string `json:"model" mapstructure:"model"`
}

// LocationConfig selects the positioning source.
type LocationConfig struct {
	// Source is "gpsd", "replay", "static" or "none"
	Source string `json:"source" mapstructure:"source"`

	// GPSDAddr is the gpsd host:port
	GPSDAddr string `json:"gpsd_addr" mapstructure:"gpsd_addr"`

	// ReplayFile is a GPX track for the replay source
	ReplayFile string `json:"replay_file" mapstructure:"replay_file"`

	// ReplayIntervalMs is the delay between replayed points
	ReplayIntervalMs int `json:"replay_interval_ms" mapstructure:"replay_interval_ms"`

	// ReplayLoop restarts the track at the end
	ReplayLoop bool `json:"replay_loop" mapstructure:"replay_loop"`

	// StaticLat/StaticLng is the fix reported by the static source
	StaticLat float64 `json:"static_lat" mapstructure:"static_lat"`
	StaticLng float64 `json:"static_lng" mapstructure:"static_lng"`
}

// HUDConfig holds the initial HUD settings.
type HUDConfig struct {
	// Operator is greeted at the end of the boot sequence
	Operator string `json:"operator" mapstructure:"operator"`

	// Zoom is the initial radar zoom (6-18)
	Zoom int `json:"zoom" mapstructure:"zoom"`

	// Color is the accent color: green, blue, purple or gold
	Color string `json:"color" mapstructure:"color"`

	// VisualFilter is standard, high-contrast or night-vision
	VisualFilter string `json:"visual_filter" mapstructure:"visual_filter"`

	ShowWeather   bool `json:"show_weather" mapstructure:"show_weather"`
	Notifications bool `json:"notifications" mapstructure:"notifications"`

	// StartOffline starts the session in offline mode
	StartOffline bool `json:"start_offline" mapstructure:"start_offline"`

	// SearchDebounceMs delays suggestion lookups while typing
	SearchDebounceMs int `json:"search_debounce_ms" mapstructure:"search_debounce_ms"`
}

// AssetCacheConfig configures the offline asset cache service.
type AssetCacheConfig struct {
	// Version is the current cache generation name
	Version string `json:"version" mapstructure:"version"`

	// Store is "memory", "redis" or "postgres"
	Store string `json:"store" mapstructure:"store"`

	// Precache lists the asset URLs stored on install
	Precache []string `json:"precache" mapstructure:"precache"`

	// Origin resolves relative precache entries such as "/index.html"
	Origin string `json:"origin" mapstructure:"origin"`

	// DynamicHosts are always fetched from the network
	DynamicHosts []string `json:"dynamic_hosts" mapstructure:"dynamic_hosts"`

	// StoreOnMiss also stores assets fetched after a cache miss
	StoreOnMiss bool `json:"store_on_miss" mapstructure:"store_on_miss"`

	// UpstreamTimeoutSeconds bounds each origin fetch
	UpstreamTimeoutSeconds int `json:"upstream_timeout_seconds" mapstructure:"upstream_timeout_seconds"`
}

// ServerConfig contains HTTP server configuration for the asset cache.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port string `json:"port" mapstructure:"port"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host" mapstructure:"host"`

	// AllowedOrigins for CORS
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`
}

// DatabaseConfig contains the postgres settings for the asset store.
type DatabaseConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	Database string `json:"database" mapstructure:"database"`
	Username string `json:"username" mapstructure:"username"`

	// Password should come from LOCV2_DATABASE_PASSWORD
	Password string `json:"password,omitempty" mapstructure:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode" mapstructure:"ssl_mode"`

	MaxOpenConns int `json:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns int `json:"max_idle_conns" mapstructure:"max_idle_conns"`
}

// RedisConfig contains the redis settings for the asset store.
type RedisConfig struct {
	Addr      string `json:"addr" mapstructure:"addr"`
	Password  string `json:"password,omitempty" mapstructure:"password"`
	DB        int    `json:"db" mapstructure:"db"`
	KeyPrefix string `json:"key_prefix" mapstructure:"key_prefix"`
}

// LoggingConfig controls zap output.
type LoggingConfig struct {
	Env   string `json:"env" mapstructure:"env"`
	Level string `json:"level" mapstructure:"level"`

	// File receives HUD logs; the terminal is owned by the TUI
	File string `json:"file" mapstructure:"file"`
}

// MetricsConfig controls the Prometheus endpoint of the HUD.
type MetricsConfig struct {
	// ListenAddr serves /metrics when set (e.g. ":9109")
	ListenAddr string `json:"listen_addr" mapstructure:"listen_addr"`
}

// Load reads configuration from a JSON file layered over DefaultConfig,
// then applies LOCV2_* environment overrides.
// If the file doesn't exist, the defaults (plus environment) are used.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// secrets are omitted from the defaults document, so viper only learns
	// these keys through explicit binding
	for _, key := range []string{"providers.gemini.api_key", "database.password", "redis.password"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	defaults, err := json.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Region: RegionConfig{
			Name:        "MINAS GERAIS",
			Bounds:      geo.MinasGerais,
			CenterLat:   -19.9322, // Praça da Liberdade, Belo Horizonte
			CenterLng:   -43.9378,
			TimeZone:    "America/Sao_Paulo",
			QuerySuffix: ", Minas Gerais, Brasil",
		},
		Providers: ProvidersConfig{
			Nominatim: ProviderConfig{
				BaseURL:           "https://nominatim.openstreetmap.org",
				RequestsPerSecond: 1.0,
			},
			OSRM: ProviderConfig{
				BaseURL: "https://router.project-osrm.org",
			},
			OpenMeteo: ProviderConfig{
				BaseURL: "https://api.open-meteo.com/v1",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.5-flash",
			},
			TimeoutSeconds: 10,
			MaxRetries:     1,
		},
		Location: LocationConfig{
			Source:           "gpsd",
			GPSDAddr:         "localhost:2947",
			ReplayIntervalMs: 1000,
		},
		HUD: HUDConfig{
			Operator:         "LEONARDO BRASILEIRO",
			Zoom:             15,
			Color:            "green",
			VisualFilter:     "standard",
			ShowWeather:      true,
			Notifications:    true,
			SearchDebounceMs: 350,
		},
		AssetCache: AssetCacheConfig{
			Version: "loc-v2-mg-cache-v1",
			Store:   "memory",
			Precache: []string{
				"/",
				"/index.html",
				"https://cdn.tailwindcss.com",
				"https://unpkg.com/leaflet@1.9.4/dist/leaflet.css",
				"https://unpkg.com/leaflet@1.9.4/dist/leaflet.js",
				"https://fonts.googleapis.com/css2?family=Orbitron:wght@400;700;900&family=Rajdhani:wght@500;700&display=swap",
				"https://cdn-icons-png.flaticon.com/512/854/854878.png",
			},
			DynamicHosts: []string{
				"nominatim.openstreetmap.org",
				"router.project-osrm.org",
				"api.open-meteo.com",
			},
			Origin:                 "http://localhost:8080",
			UpstreamTimeoutSeconds: 15,
		},
		Server: ServerConfig{
			Port:           "8080",
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "locv2",
			Username:     "locv2",
			SSLMode:      "disable",
			MaxOpenConns: 10,
			MaxIdleConns: 2,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "locv2:",
		},
		Logging: LoggingConfig{
			Env:   "development",
			Level: "info",
		},
	}
}

// Validate collects every problem instead of stopping at the first.
func (c *Config) Validate() error {
	var errs []string

	if err := c.Region.Bounds.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("region.bounds: %v", err))
	} else if !c.Region.Bounds.Contains(c.Region.Center()) {
		errs = append(errs, "region center must lie inside region.bounds")
	}
	if c.HUD.Zoom < 6 || c.HUD.Zoom > 18 {
		errs = append(errs, fmt.Sprintf("hud.zoom must be 6-18, got %d", c.HUD.Zoom))
	}
	if !oneOf(c.HUD.Color, HUDColors) {
		errs = append(errs, fmt.Sprintf("hud.color must be one of %v, got %q", HUDColors, c.HUD.Color))
	}
	if !oneOf(c.HUD.VisualFilter, VisualFilters) {
		errs = append(errs, fmt.Sprintf("hud.visual_filter must be one of %v, got %q", VisualFilters, c.HUD.VisualFilter))
	}
	if c.HUD.SearchDebounceMs < 0 {
		errs = append(errs, "hud.search_debounce_ms must not be negative")
	}
	if !oneOf(c.Location.Source, LocationSources) {
		errs = append(errs, fmt.Sprintf("location.source must be one of %v, got %q", LocationSources, c.Location.Source))
	}
	if c.Location.Source == "replay" && c.Location.ReplayFile == "" {
		errs = append(errs, "location.replay_file is required for the replay source")
	}
	if !oneOf(c.AssetCache.Store, CacheStores) {
		errs = append(errs, fmt.Sprintf("asset_cache.store must be one of %v, got %q", CacheStores, c.AssetCache.Store))
	}
	if c.AssetCache.Version == "" {
		errs = append(errs, "asset_cache.version is required")
	}
	if c.Providers.TimeoutSeconds <= 0 {
		errs = append(errs, "providers.timeout_seconds must be positive")
	}
	if c.Providers.MaxRetries < 0 {
		errs = append(errs, "providers.max_retries must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// DSN builds a lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode)
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// applyEnvironmentOverrides reads the conventional API key variables that
// do not follow the LOCV2_ prefix.
func (c *Config) applyEnvironmentOverrides() {
	if c.Providers.Gemini.APIKey != "" {
		return
	}
	for _, name := range []string{"GEMINI_API_KEY", "API_KEY"} {
		if key := os.Getenv(name); key != "" {
			c.Providers.Gemini.APIKey = key
			return
		}
	}
}
