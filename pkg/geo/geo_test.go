package geo

import (
	"math"
	"testing"
)

func TestDistanceMeters(t *testing.T) {
	praca := Coordinate{Lat: -19.9322, Lng: -43.9378}
	mineirao := Coordinate{Lat: -19.8659, Lng: -43.9710}

	t.Run("zero distance to itself", func(t *testing.T) {
		if d := DistanceMeters(praca, praca); d != 0 {
			t.Errorf("Expected 0, got %v", d)
		}
	})

	t.Run("praca to mineirao is about 8km", func(t *testing.T) {
		d := DistanceMeters(praca, mineirao)
		if d < 7800 || d > 8200 {
			t.Errorf("Expected ~8000m, got %.0f", d)
		}
	})
}

func TestBearing(t *testing.T) {
	origin := Coordinate{Lat: 0, Lng: 0}
	tests := []struct {
		name string
		to   Coordinate
		want float64
	}{
		{"north", Coordinate{Lat: 1, Lng: 0}, 0},
		{"east", Coordinate{Lat: 0, Lng: 1}, 90},
		{"south", Coordinate{Lat: -1, Lng: 0}, 180},
		{"west", Coordinate{Lat: 0, Lng: -1}, 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bearing(origin, tt.to)
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNormalizeHeading(t *testing.T) {
	if got := NormalizeHeading(-90); got != 270 {
		t.Errorf("Expected 270, got %v", got)
	}
	if got := NormalizeHeading(720); got != 0 {
		t.Errorf("Expected 0, got %v", got)
	}
}

func TestOffsetRoundTrip(t *testing.T) {
	center := Coordinate{Lat: -19.9322, Lng: -43.9378}
	moved := Offset(center, 500, -250)
	east, north := LocalDelta(center, moved)
	if math.Abs(east-500) > 0.5 || math.Abs(north+250) > 0.5 {
		t.Errorf("Expected (500,-250), got (%.2f,%.2f)", east, north)
	}
}

func TestMinasGeraisBounds(t *testing.T) {
	if !MinasGerais.Contains(Coordinate{Lat: -19.9322, Lng: -43.9378}) {
		t.Error("Expected Belo Horizonte inside MG bounds")
	}
	if MinasGerais.Contains(Coordinate{Lat: -23.55, Lng: -46.63}) {
		t.Error("Expected São Paulo outside MG bounds")
	}
	if got := MinasGerais.Viewbox(); got != "-51.01,-14.23,-39.85,-22.92" {
		t.Errorf("Expected viewbox -51.01,-14.23,-39.85,-22.92, got %s", got)
	}
	if err := MinasGerais.Validate(); err != nil {
		t.Errorf("Expected valid bounds, got %v", err)
	}
	if err := (Bounds{South: 1, North: 0, West: 0, East: 1}).Validate(); err == nil {
		t.Error("Expected error for inverted bounds")
	}
}
