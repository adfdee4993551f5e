// Package lookup resolves free-text place queries for the Minas Gerais
// region. Sources are tried in a fixed order: the Nominatim geocoder, then
// a generative model, then a bundled offline table.
package lookup

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/unklstewy/loc-v2/internal/metrics"
	"github.com/unklstewy/loc-v2/pkg/geo"
	"go.uber.org/zap"
)

// MinQueryLength is the shortest query that triggers any lookup.
const MinQueryLength = 2

// SearchResult is a named place candidate.
type SearchResult struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Type string  `json:"type"`
}

// Coordinate returns the result position.
func (r SearchResult) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: r.Lat, Lng: r.Lng}
}

// Geocoder resolves a query against a map database.
type Geocoder interface {
	Geocode(ctx context.Context, query string) ([]SearchResult, error)
}

// Generator asks a generative model for plausible places.
type Generator interface {
	Generate(ctx context.Context, query string, origin geo.Coordinate) ([]SearchResult, error)
}

// Source names the tier that answered a search.
type Source string

const (
	SourceNone      Source = "none"
	SourceOffline   Source = "offline"
	SourceGeocoder  Source = "geocoder"
	SourceGenerator Source = "generator"
	SourceFallback  Source = "fallback"
)

// Service is the lookup entry point used by the controller.
type Service struct {
	geocoder  Geocoder
	generator Generator
	offline   []SearchResult
	log       *zap.SugaredLogger
}

// NewService wires the lookup tiers. generator may be nil, in which case a
// geocoder miss falls through to the offline table.
func NewService(geocoder Geocoder, generator Generator, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{
		geocoder:  geocoder,
		generator: generator,
		offline:   OfflineTable(),
		log:       log,
	}
}

// Search never fails; every error path degrades to the offline table.
func (s *Service) Search(ctx context.Context, query string, origin geo.Coordinate, offline bool) []SearchResult {
	results, _ := s.SearchWithSource(ctx, query, origin, offline)
	return results
}

// SearchWithSource is Search plus the tier that produced the answer.
func (s *Service) SearchWithSource(ctx context.Context, query string, origin geo.Coordinate, offline bool) ([]SearchResult, Source) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < MinQueryLength {
		return nil, SourceNone
	}

	results, source := s.search(ctx, q, origin, offline)
	metrics.LookupResults.WithLabelValues(string(source)).Inc()
	return results, source
}

func (s *Service) search(ctx context.Context, q string, origin geo.Coordinate, offline bool) ([]SearchResult, Source) {
	if offline {
		return FilterOffline(s.offline, q, MatchNameOrType), SourceOffline
	}

	results, err := s.geocoder.Geocode(ctx, q)
	if err != nil {
		s.log.Warnw("geocoder failed, using offline table", "query", q, "error", err)
		return FilterOffline(s.offline, q, MatchName), SourceFallback
	}
	if len(results) > 0 {
		return results, SourceGeocoder
	}

	if s.generator == nil {
		s.log.Debugw("no geocoder results and no generator configured", "query", q)
		return FilterOffline(s.offline, q, MatchName), SourceFallback
	}

	generated, err := s.generator.Generate(ctx, q, origin)
	if err != nil {
		s.log.Warnw("generator failed, using offline table", "query", q, "error", err)
		return FilterOffline(s.offline, q, MatchName), SourceFallback
	}
	return generated, SourceGenerator
}
