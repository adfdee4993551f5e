package controller

import "fmt"

// Radar zoom limits.
const (
	MinZoom     = 6
	MaxZoom     = 18
	DefaultZoom = 15
)

// HUDColor is the accent color of the interface.
type HUDColor string

const (
	ColorGreen  HUDColor = "green"
	ColorBlue   HUDColor = "blue"
	ColorPurple HUDColor = "purple"
	ColorGold   HUDColor = "gold"
)

// HUDColors lists the accent colors in cycling order.
var HUDColors = []HUDColor{ColorGreen, ColorBlue, ColorPurple, ColorGold}

// Next returns the following color, wrapping around.
func (c HUDColor) Next() HUDColor {
	for i, v := range HUDColors {
		if v == c {
			return HUDColors[(i+1)%len(HUDColors)]
		}
	}
	return ColorGreen
}

// ParseHUDColor validates a configured color name.
func ParseHUDColor(s string) (HUDColor, error) {
	for _, v := range HUDColors {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown HUD color %q", s)
}

// VisualFilter is the map rendering mode.
type VisualFilter string

const (
	FilterStandard     VisualFilter = "standard"
	FilterHighContrast VisualFilter = "high-contrast"
	FilterNightVision  VisualFilter = "night-vision"
)

// VisualFilters lists the filters in cycling order.
var VisualFilters = []VisualFilter{FilterStandard, FilterHighContrast, FilterNightVision}

// Next returns the following filter, wrapping around.
func (f VisualFilter) Next() VisualFilter {
	for i, v := range VisualFilters {
		if v == f {
			return VisualFilters[(i+1)%len(VisualFilters)]
		}
	}
	return FilterStandard
}

// ParseVisualFilter validates a configured filter name.
func ParseVisualFilter(s string) (VisualFilter, error) {
	for _, v := range VisualFilters {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown visual filter %q", s)
}

// Settings is the user-adjustable HUD configuration.
type Settings struct {
	// Offline skips every network provider
	Offline bool

	// RadarZoom is always within [MinZoom, MaxZoom]
	RadarZoom int

	HUDColor     HUDColor
	VisualFilter VisualFilter

	ShowWeather          bool
	NotificationsEnabled bool
}

// DefaultSettings returns the settings of a fresh session.
func DefaultSettings() Settings {
	return Settings{
		RadarZoom:            DefaultZoom,
		HUDColor:             ColorGreen,
		VisualFilter:         FilterStandard,
		ShowWeather:          true,
		NotificationsEnabled: true,
	}
}

// ClampZoom forces z into [MinZoom, MaxZoom].
func ClampZoom(z int) int {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}
