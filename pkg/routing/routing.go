// Package routing computes driving routes between two coordinates through
// OSRM, with offline and degraded results that always carry at least the
// start and end points.
package routing

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/unklstewy/loc-v2/internal/metrics"
	"github.com/unklstewy/loc-v2/pkg/geo"
	"github.com/unklstewy/loc-v2/pkg/upstream"
	"go.uber.org/zap"
)

// DefaultOSRMURL is the public OSRM demo server.
const DefaultOSRMURL = "https://router.project-osrm.org"

// Labels for routes that were not computed by the router.
const (
	OfflineDistance  = "ESTIMADA"
	OfflineTime      = "OFFLINE"
	DegradedDistance = "--"
	DegradedTime     = "--"
)

// Mode records how a Result was produced.
type Mode string

const (
	ModeOnline   Mode = "online"
	ModeOffline  Mode = "offline"
	ModeDegraded Mode = "degraded"
)

// Instruction is a turn-by-turn step. The HUD does not request steps, so
// results carry an empty list.
type Instruction struct {
	Text     string
	Distance float64
}

// Result is a computed (or placeholder) route.
type Result struct {
	// Coordinates is the polyline, always at least start and end
	Coordinates []geo.Coordinate

	// TotalDistance is display-ready ("850m", "1.5km", "ESTIMADA", "--")
	TotalDistance string

	// TotalTime is display-ready ("12 MIN", "OFFLINE", "--")
	TotalTime string

	Instructions []Instruction

	Mode Mode
}

// Start returns the first polyline point.
func (r Result) Start() geo.Coordinate {
	return r.Coordinates[0]
}

// End returns the last polyline point.
func (r Result) End() geo.Coordinate {
	return r.Coordinates[len(r.Coordinates)-1]
}

// Service resolves routes. Route never returns an error.
type Service struct {
	baseURL string
	profile string
	client  *upstream.Client
	log     *zap.SugaredLogger
}

// NewService creates a route service against an OSRM instance.
func NewService(baseURL string, client *upstream.Client, log *zap.SugaredLogger) *Service {
	if baseURL == "" {
		baseURL = DefaultOSRMURL
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: "driving",
		client:  client,
		log:     log,
	}
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// Route computes a route from start to end. The error is always nil; the
// signature matches the controller's router contract.
func (s *Service) Route(ctx context.Context, start, end geo.Coordinate, offline bool) (Result, error) {
	if offline {
		metrics.RouteResults.WithLabelValues(string(ModeOffline)).Inc()
		return Result{
			Coordinates:   []geo.Coordinate{start, end},
			TotalDistance: OfflineDistance,
			TotalTime:     OfflineTime,
			Instructions:  []Instruction{},
			Mode:          ModeOffline,
		}, nil
	}

	res, err := s.fetch(ctx, start, end)
	if err != nil {
		s.log.Warnw("route unavailable, using straight line", "start", start.String(), "end", end.String(), "error", err)
		metrics.RouteResults.WithLabelValues(string(ModeDegraded)).Inc()
		return Result{
			Coordinates:   []geo.Coordinate{start, end},
			TotalDistance: DegradedDistance,
			TotalTime:     DegradedTime,
			Instructions:  []Instruction{},
			Mode:          ModeDegraded,
		}, nil
	}

	metrics.RouteResults.WithLabelValues(string(ModeOnline)).Inc()
	return res, nil
}

func (s *Service) fetch(ctx context.Context, start, end geo.Coordinate) (Result, error) {
	// OSRM takes lon,lat pairs
	endpoint := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		s.baseURL, s.profile, start.Lng, start.Lat, end.Lng, end.Lat)

	var resp osrmResponse
	if err := s.client.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return Result{}, err
	}

	if resp.Code != "Ok" {
		return Result{}, fmt.Errorf("osrm returned code %q: %s", resp.Code, resp.Message)
	}
	if len(resp.Routes) == 0 {
		return Result{}, fmt.Errorf("osrm returned no routes")
	}

	route := resp.Routes[0]
	coords := make([]geo.Coordinate, 0, len(route.Geometry.Coordinates))
	for _, pair := range route.Geometry.Coordinates {
		if len(pair) < 2 {
			continue
		}
		coords = append(coords, geo.Coordinate{Lat: pair[1], Lng: pair[0]})
	}
	if len(coords) < 2 {
		return Result{}, fmt.Errorf("osrm geometry has %d points", len(coords))
	}

	return Result{
		Coordinates:   coords,
		TotalDistance: FormatDistance(route.Distance),
		TotalTime:     FormatDuration(route.Duration),
		Instructions:  []Instruction{},
		Mode:          ModeOnline,
	}, nil
}

// FormatDistance renders meters: under 1000 as whole meters, otherwise
// kilometers with one decimal.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}

// FormatDuration renders seconds as rounded whole minutes.
func FormatDuration(seconds float64) string {
	return fmt.Sprintf("%d MIN", int(math.Round(seconds/60)))
}
