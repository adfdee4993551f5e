package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/unklstewy/loc-v2/internal/logging"
	"github.com/unklstewy/loc-v2/pkg/config"
	"github.com/unklstewy/loc-v2/pkg/geo"
	"github.com/unklstewy/loc-v2/pkg/lookup"
	"github.com/unklstewy/loc-v2/pkg/routing"
	"github.com/unklstewy/loc-v2/pkg/upstream"
	"github.com/unklstewy/loc-v2/pkg/weather"
)

// probe-providers checks the lookup, routing and weather providers from the
// command line using the same configuration as the HUD.
func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	query := flag.String("query", "Mineirão", "Place to look up")
	from := flag.String("from", "", "Route origin as lat,lng (default: region center)")
	to := flag.String("to", "", "Route destination as lat,lng (default: first lookup result)")
	offline := flag.Bool("offline", false, "Skip network providers")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logging.Init(logging.Options{Env: cfg.Logging.Env, Level: cfg.Logging.Level}); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()
	logger := logging.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	origin := cfg.Region.Center()
	if *from != "" {
		if origin, err = parseCoordinate(*from); err != nil {
			log.Fatalf("Invalid -from: %v", err)
		}
	}

	client := func(name string, p config.ProviderConfig) *upstream.Client {
		retry := upstream.DefaultRetryConfig()
		retry.MaxRetries = cfg.Providers.MaxRetries
		return upstream.NewClient(upstream.Options{
			Name:              name,
			Timeout:           time.Duration(cfg.Providers.TimeoutSeconds) * time.Second,
			RequestsPerSecond: p.RequestsPerSecond,
			Retry:             retry,
		})
	}

	fmt.Println("LOC V2 provider probe")
	fmt.Println("=====================================")
	fmt.Printf("Origin:  %s\n", origin)
	fmt.Printf("Offline: %v\n\n", *offline)

	// Lookup
	ncfg := lookup.DefaultNominatimConfig()
	ncfg.BaseURL = cfg.Providers.Nominatim.BaseURL
	ncfg.Bounds = cfg.Region.Bounds
	ncfg.Suffix = cfg.Region.QuerySuffix

	var generator lookup.Generator
	if gem, err := lookup.NewGemini(ctx, cfg.Providers.Gemini.APIKey, cfg.Providers.Gemini.Model); err == nil {
		generator = gem
	} else if !errors.Is(err, lookup.ErrGeneratorDisabled) {
		logger.Warnw("generator unavailable", "error", err)
	}

	svc := lookup.NewService(lookup.NewNominatim(ncfg, client("nominatim", cfg.Providers.Nominatim)), generator, logger.Named("lookup"))
	start := time.Now()
	results, source := svc.SearchWithSource(ctx, *query, origin, *offline)
	fmt.Printf("Lookup %q: %d results from %s (%v)\n", *query, len(results), source, time.Since(start).Round(time.Millisecond))
	for i, r := range results {
		fmt.Printf("  %d. %-40s %-12s %.5f, %.5f\n", i+1, r.Name, r.Type, r.Lat, r.Lng)
	}
	fmt.Println()

	// Route
	var dest geo.Coordinate
	switch {
	case *to != "":
		if dest, err = parseCoordinate(*to); err != nil {
			log.Fatalf("Invalid -to: %v", err)
		}
	case len(results) > 0:
		dest = results[0].Coordinate()
	default:
		fmt.Println("No destination; skipping route")
	}

	if !dest.IsZero() {
		router := routing.NewService(cfg.Providers.OSRM.BaseURL, client("osrm", cfg.Providers.OSRM), logger.Named("routing"))
		start = time.Now()
		route, _ := router.Route(ctx, origin, dest, *offline)
		fmt.Printf("Route to %s (%v)\n", dest, time.Since(start).Round(time.Millisecond))
		fmt.Printf("  Mode:     %s\n", route.Mode)
		fmt.Printf("  Distance: %s\n", route.TotalDistance)
		fmt.Printf("  Time:     %s\n", route.TotalTime)
		fmt.Printf("  Points:   %d\n", len(route.Coordinates))
		fmt.Printf("  Direct:   %s\n\n", routing.FormatDistance(geo.DistanceMeters(origin, dest)))
	}

	// Weather
	if *offline {
		return
	}
	w := weather.NewClient(cfg.Providers.OpenMeteo.BaseURL, client("open-meteo", cfg.Providers.OpenMeteo))
	snap, err := w.Current(ctx, origin)
	if err != nil {
		fmt.Printf("Weather: unavailable (%v)\n", err)
		os.Exit(1)
	}
	fmt.Printf("Weather: %d°C %s (WMO %d)\n", snap.Temp, snap.Condition, snap.Code)
}

// parseCoordinate reads "lat,lng".
func parseCoordinate(s string) (geo.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geo.Coordinate{}, fmt.Errorf("expected lat,lng, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("invalid latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("invalid longitude: %w", err)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return geo.Coordinate{}, fmt.Errorf("coordinate out of range: %q", s)
	}
	return geo.Coordinate{Lat: lat, Lng: lng}, nil
}
