package lookup

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/unklstewy/loc-v2/pkg/geo"
	"github.com/unklstewy/loc-v2/pkg/upstream"
)

// DefaultNominatimURL is the public OSM geocoder.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// NominatimConfig configures the geocoder.
type NominatimConfig struct {
	// BaseURL of the Nominatim instance
	BaseURL string

	// Suffix is appended to every query to anchor it in the region
	Suffix string

	// Bounds restricts results (bounded=1)
	Bounds geo.Bounds

	// Limit is the maximum number of results
	Limit int

	// Language is sent as Accept-Language
	Language string
}

// DefaultNominatimConfig targets Minas Gerais in Portuguese.
func DefaultNominatimConfig() NominatimConfig {
	return NominatimConfig{
		BaseURL:  DefaultNominatimURL,
		Suffix:   ", Minas Gerais, Brasil",
		Bounds:   geo.MinasGerais,
		Limit:    8,
		Language: "pt-BR",
	}
}

// Nominatim implements Geocoder against the OSM Nominatim API.
type Nominatim struct {
	cfg    NominatimConfig
	client *upstream.Client
}

// NewNominatim creates a geocoder. client should be throttled to 1 rps to
// respect the public usage policy.
func NewNominatim(cfg NominatimConfig, client *upstream.Client) *Nominatim {
	return &Nominatim{cfg: cfg, client: client}
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Type        string `json:"type"`
}

// Geocode runs a bounded search. Zero hits is not an error.
func (n *Nominatim) Geocode(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query+n.cfg.Suffix)
	params.Set("limit", strconv.Itoa(n.cfg.Limit))
	params.Set("viewbox", n.cfg.Bounds.Viewbox())
	params.Set("bounded", "1")

	endpoint := strings.TrimRight(n.cfg.BaseURL, "/") + "/search?" + params.Encode()

	var places []nominatimPlace
	if err := n.client.GetJSON(ctx, endpoint, map[string]string{"Accept-Language": n.cfg.Language}, &places); err != nil {
		return nil, fmt.Errorf("failed to geocode %q: %w", query, err)
	}

	results := make([]SearchResult, 0, len(places))
	for _, p := range places {
		r, err := p.toResult()
		if err != nil {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

func (p nominatimPlace) toResult() (SearchResult, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return SearchResult{}, fmt.Errorf("bad lat %q: %w", p.Lat, err)
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return SearchResult{}, fmt.Errorf("bad lon %q: %w", p.Lon, err)
	}

	name, _, _ := strings.Cut(p.DisplayName, ",")
	placeType := strings.ToUpper(strings.TrimSpace(p.Type))
	if placeType == "" {
		placeType = "LOCAL"
	}

	return SearchResult{
		Name: strings.ToUpper(strings.TrimSpace(name)),
		Lat:  lat,
		Lng:  lng,
		Type: placeType,
	}, nil
}
