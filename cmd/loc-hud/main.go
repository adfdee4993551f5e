package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unklstewy/loc-v2/internal/controller"
	"github.com/unklstewy/loc-v2/internal/hud"
	"github.com/unklstewy/loc-v2/internal/logging"
	"github.com/unklstewy/loc-v2/internal/metrics"
	"github.com/unklstewy/loc-v2/pkg/config"
	"github.com/unklstewy/loc-v2/pkg/geo"
	"github.com/unklstewy/loc-v2/pkg/location"
	"github.com/unklstewy/loc-v2/pkg/lookup"
	"github.com/unklstewy/loc-v2/pkg/routing"
	"github.com/unklstewy/loc-v2/pkg/upstream"
	"github.com/unklstewy/loc-v2/pkg/weather"
)

var (
	// Version information (set by build flags)
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("loc-hud version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}
	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The terminal belongs to the TUI, so logs always go to a file.
	logFile := cfg.Logging.File
	if logFile == "" {
		logFile = "loc-hud.log"
	}
	if err := logging.Init(logging.Options{Env: cfg.Logging.Env, Level: cfg.Logging.Level, File: logFile}); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()
	logger := logging.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		logging.Fatal("failed to build services", "error", err)
	}

	opts, err := buildOptions(cfg)
	if err != nil {
		logging.Fatal("invalid HUD configuration", "error", err)
	}

	ctl := controller.New(deps, opts)
	defer ctl.Shutdown()

	if addr := cfg.Metrics.ListenAddr; addr != "" {
		srv := &http.Server{Addr: addr, Handler: metrics.Handler(), ReadTimeout: 15 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorw("metrics server failed", "addr", addr, "error", err)
			}
		}()
		defer srv.Close()
		logger.Infow("metrics listening", "addr", addr)
	}

	logger.Infow("starting HUD", "version", version, "region", cfg.Region.Name, "location", cfg.Location.Source)

	p := tea.NewProgram(hud.New(ctl, cfg.Region.Bounds, version), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		logger.Errorw("HUD exited with error", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildDeps wires the providers named in cfg.
func buildDeps(ctx context.Context, cfg *config.Config) (controller.Deps, error) {
	logger := logging.GetLogger()
	timeout := time.Duration(cfg.Providers.TimeoutSeconds) * time.Second
	retry := upstream.DefaultRetryConfig()
	retry.MaxRetries = cfg.Providers.MaxRetries

	client := func(name string, p config.ProviderConfig) *upstream.Client {
		return upstream.NewClient(upstream.Options{
			Name:              name,
			Timeout:           timeout,
			RequestsPerSecond: p.RequestsPerSecond,
			Retry:             retry,
		})
	}

	ncfg := lookup.DefaultNominatimConfig()
	ncfg.BaseURL = cfg.Providers.Nominatim.BaseURL
	ncfg.Bounds = cfg.Region.Bounds
	ncfg.Suffix = cfg.Region.QuerySuffix
	geocoder := lookup.NewNominatim(ncfg, client("nominatim", cfg.Providers.Nominatim))

	var generator lookup.Generator
	gem, err := lookup.NewGemini(ctx, cfg.Providers.Gemini.APIKey, cfg.Providers.Gemini.Model)
	switch {
	case errors.Is(err, lookup.ErrGeneratorDisabled):
		logger.Infow("generative search disabled")
	case err != nil:
		logger.Warnw("generative search unavailable", "error", err)
	default:
		generator = gem
	}

	source, err := location.New(location.Options{
		Source:         location.Source(cfg.Location.Source),
		GPSDAddr:       cfg.Location.GPSDAddr,
		ReplayFile:     cfg.Location.ReplayFile,
		ReplayInterval: time.Duration(cfg.Location.ReplayIntervalMs) * time.Millisecond,
		ReplayLoop:     cfg.Location.ReplayLoop,
		Static:         geo.Coordinate{Lat: cfg.Location.StaticLat, Lng: cfg.Location.StaticLng},
	})
	if err != nil {
		return controller.Deps{}, fmt.Errorf("location source: %w", err)
	}

	return controller.Deps{
		Lookup:  lookup.NewService(geocoder, generator, logger.Named("lookup")),
		Router:  routing.NewService(cfg.Providers.OSRM.BaseURL, client("osrm", cfg.Providers.OSRM), logger.Named("routing")),
		Weather: weather.NewClient(cfg.Providers.OpenMeteo.BaseURL, client("open-meteo", cfg.Providers.OpenMeteo)),
		Source:  source,
		Logger:  logger.Named("controller"),
	}, nil
}

// buildOptions applies the HUD section of cfg over the stock options.
func buildOptions(cfg *config.Config) (controller.Options, error) {
	opts := controller.DefaultOptions()
	opts.Center = cfg.Region.Center()
	if cfg.Region.Name != "" {
		opts.Region = cfg.Region.Name
	}
	if cfg.HUD.Operator != "" {
		opts.Operator = cfg.HUD.Operator
	}
	if cfg.Region.TimeZone != "" {
		loc, err := time.LoadLocation(cfg.Region.TimeZone)
		if err != nil {
			return opts, fmt.Errorf("timezone %q: %w", cfg.Region.TimeZone, err)
		}
		opts.TimeZone = loc
	}
	if cfg.HUD.SearchDebounceMs > 0 {
		opts.Debounce = time.Duration(cfg.HUD.SearchDebounceMs) * time.Millisecond
	}
	if cfg.Providers.TimeoutSeconds > 0 {
		// every attempt plus the retries must fit in one request
		opts.RequestTimeout = time.Duration(cfg.Providers.TimeoutSeconds*(cfg.Providers.MaxRetries+1)+2) * time.Second
	}

	color, err := controller.ParseHUDColor(cfg.HUD.Color)
	if err != nil {
		return opts, err
	}
	filter, err := controller.ParseVisualFilter(cfg.HUD.VisualFilter)
	if err != nil {
		return opts, err
	}
	opts.Settings = controller.Settings{
		Offline:              cfg.HUD.StartOffline,
		RadarZoom:            controller.ClampZoom(cfg.HUD.Zoom),
		HUDColor:             color,
		VisualFilter:         filter,
		ShowWeather:          cfg.HUD.ShowWeather,
		NotificationsEnabled: cfg.HUD.Notifications,
	}
	return opts, nil
}

func printHelp() {
	fmt.Println("loc-hud - Minas Gerais navigation HUD")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  loc-hud [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to configuration file (default: configs/config.json)")
	fmt.Println("  -version")
	fmt.Println("        Show version information")
	fmt.Println("  -help")
	fmt.Println("        Show this help message")
	fmt.Println()
	fmt.Println("KEYBOARD SHORTCUTS:")
	fmt.Println("  Map:")
	fmt.Println("    /              Search")
	fmt.Println("    +/-            Zoom in/out (mouse wheel too)")
	fmt.Println("    c              Recenter on GPS fix")
	fmt.Println("    m              Designate a target with the cursor (or click)")
	fmt.Println("    t              Plan a route")
	fmt.Println("    x              Clear route and target")
	fmt.Println()
	fmt.Println("  Settings:")
	fmt.Println("    s              Open settings")
	fmt.Println("    o              Toggle offline mode")
	fmt.Println("    h              Cycle HUD color")
	fmt.Println("    v              Cycle visual filter")
	fmt.Println("    w              Toggle weather")
	fmt.Println()
	fmt.Println("    q / ctrl+c     Quit")
	fmt.Println()
	fmt.Println("ENVIRONMENT:")
	fmt.Println("  LOCV2_GEMINI_API_KEY   Enables generative search fallback")
	fmt.Println("  LOCV2_<SECTION>_<KEY>  Overrides any configuration value")
}
