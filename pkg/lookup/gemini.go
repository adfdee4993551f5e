package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/unklstewy/loc-v2/pkg/geo"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// ErrGeneratorDisabled is returned when no API key was configured.
var ErrGeneratorDisabled = errors.New("generator disabled: no API key")

// Gemini implements Generator with Gemini structured JSON output.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a generator. An empty apiKey yields ErrGeneratorDisabled.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrGeneratorDisabled
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// placesSchema is an array of {name, lat, lng, type}, all required.
func placesSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name": {Type: genai.TypeString},
				"lat":  {Type: genai.TypeNumber},
				"lng":  {Type: genai.TypeNumber},
				"type": {Type: genai.TypeString},
			},
			Required: []string{"name", "lat", "lng", "type"},
		},
	}
}

func buildPrompt(query string, origin geo.Coordinate) string {
	return fmt.Sprintf(
		"Localize lugares reais em Minas Gerais, Brasil, que correspondam a %q. "+
			"O usuário está próximo de %.4f,%.4f. "+
			"Responda com nome em maiúsculas, latitude, longitude e uma categoria curta em maiúsculas.",
		query, origin.Lat, origin.Lng)
}

// Generate asks the model for places matching query.
func (g *Gemini) Generate(ctx context.Context, query string, origin geo.Coordinate) ([]SearchResult, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(buildPrompt(query, origin)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   placesSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate places: %w", err)
	}

	return parseGenerated(resp.Text())
}

// parseGenerated decodes the model's JSON array. Blank text is an empty list.
func parseGenerated(text string) ([]SearchResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var results []SearchResult
	if err := json.Unmarshal([]byte(text), &results); err != nil {
		return nil, fmt.Errorf("failed to parse generated places: %w", err)
	}

	out := results[:0]
	for _, r := range results {
		// the model sometimes answers 0,0 or a namesake in another state
		if r.Name == "" || !geo.MinasGerais.Contains(r.Coordinate()) {
			continue
		}
		r.Name = strings.ToUpper(r.Name)
		r.Type = strings.ToUpper(r.Type)
		out = append(out, r)
	}
	return out, nil
}
