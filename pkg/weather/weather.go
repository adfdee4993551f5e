// Package weather fetches current conditions from Open-Meteo.
package weather

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/unklstewy/loc-v2/pkg/geo"
	"github.com/unklstewy/loc-v2/pkg/upstream"
)

// DefaultOpenMeteoURL is the public forecast API.
const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1"

// Snapshot is a point-in-time weather reading.
type Snapshot struct {
	// Temp is the air temperature in whole degrees Celsius
	Temp int

	// Condition is a short uppercase label for Code
	Condition string

	// Code is the WMO weather interpretation code
	Code int
}

// Client talks to Open-Meteo.
type Client struct {
	baseURL string
	client  *upstream.Client
}

// NewClient creates a weather client.
func NewClient(baseURL string, client *upstream.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type forecastResponse struct {
	CurrentWeather *struct {
		Temperature float64 `json:"temperature"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
}

// Current returns the conditions at c.
func (w *Client) Current(ctx context.Context, c geo.Coordinate) (Snapshot, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", c.Lat))
	params.Set("longitude", fmt.Sprintf("%.4f", c.Lng))
	params.Set("current_weather", "true")

	var resp forecastResponse
	if err := w.client.GetJSON(ctx, w.baseURL+"/forecast?"+params.Encode(), nil, &resp); err != nil {
		return Snapshot{}, fmt.Errorf("failed to fetch weather: %w", err)
	}
	if resp.CurrentWeather == nil {
		return Snapshot{}, fmt.Errorf("weather response has no current_weather block")
	}

	return Snapshot{
		Temp:      int(math.Round(resp.CurrentWeather.Temperature)),
		Condition: Describe(resp.CurrentWeather.WeatherCode),
		Code:      resp.CurrentWeather.WeatherCode,
	}, nil
}

// Describe maps a WMO code to a HUD label.
func Describe(code int) string {
	switch {
	case code == 0:
		return "CÉU LIMPO"
	case code <= 3:
		return "NUBLADO"
	case code == 45 || code == 48:
		return "NEBLINA"
	case code >= 51 && code <= 57:
		return "GAROA"
	case code >= 61 && code <= 67, code >= 80 && code <= 82:
		return "CHUVA"
	case code >= 71 && code <= 77, code == 85 || code == 86:
		return "NEVE"
	case code >= 95:
		return "TEMPESTADE"
	default:
		return "MG LOCAL"
	}
}
