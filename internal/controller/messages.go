package controller

import (
	"time"

	"github.com/unklstewy/loc-v2/pkg/geo"
	"github.com/unklstewy/loc-v2/pkg/location"
	"github.com/unklstewy/loc-v2/pkg/lookup"
	"github.com/unklstewy/loc-v2/pkg/routing"
	"github.com/unklstewy/loc-v2/pkg/weather"
)

// Intent is a user action sent by the presentation layer.
type Intent interface {
	isIntent()
}

type (
	// SelectTarget routes from the current origin to Target.
	SelectTarget struct{ Target lookup.SearchResult }

	// MapClick designates an arbitrary map point as the target.
	MapClick struct{ Coordinate geo.Coordinate }

	// Recenter moves the viewport to the last fix.
	Recenter struct{}

	// DismissRoute clears the active route.
	DismissRoute struct{}

	// ToggleOffline flips offline mode.
	ToggleOffline struct{}

	// Zoom changes the radar zoom by Delta, clamped.
	Zoom struct{ Delta int }

	// QueryChanged reports new search bar text.
	QueryChanged struct{ Text string }

	// PickSuggestion selects a suggestion from the list.
	PickSuggestion struct{ Result lookup.SearchResult }

	// HideSuggestions closes the suggestion list.
	HideSuggestions struct{}

	// PlanRoute submits the route-planning form.
	PlanRoute struct{ Start, End string }

	OpenNavOverlay      struct{}
	CloseNavOverlay     struct{}
	OpenSettings        struct{}
	CloseSettings       struct{}
	SetHUDColor         struct{ Color HUDColor }
	CycleHUDColor       struct{}
	SetVisualFilter     struct{ Filter VisualFilter }
	CycleVisualFilter   struct{}
	ToggleWeather       struct{}
	ToggleNotifications struct{}
)

func (SelectTarget) isIntent()        {}
func (MapClick) isIntent()            {}
func (Recenter) isIntent()            {}
func (DismissRoute) isIntent()        {}
func (ToggleOffline) isIntent()       {}
func (Zoom) isIntent()                {}
func (QueryChanged) isIntent()        {}
func (PickSuggestion) isIntent()      {}
func (HideSuggestions) isIntent()     {}
func (PlanRoute) isIntent()           {}
func (OpenNavOverlay) isIntent()      {}
func (CloseNavOverlay) isIntent()     {}
func (OpenSettings) isIntent()        {}
func (CloseSettings) isIntent()       {}
func (SetHUDColor) isIntent()         {}
func (CycleHUDColor) isIntent()       {}
func (SetVisualFilter) isIntent()     {}
func (CycleVisualFilter) isIntent()   {}
func (ToggleWeather) isIntent()       {}
func (ToggleNotifications) isIntent() {}

// LocationUpdate delivers a sample from outside the controller's own
// subscription (tests, alternate sources).
type LocationUpdate struct{ Sample geo.LocationSample }

// LocationLost reports that the position source failed.
type LocationLost struct{ Err error }

// internal completions and timers
type (
	bootTickMsg  struct{}
	bootDoneMsg  struct{}
	logRotateMsg struct{}
	clockTickMsg time.Time

	routeResolvedMsg struct {
		gen    uint64
		result routing.Result
		err    error
	}

	debounceMsg struct{ seq uint64 }

	suggestionsMsg struct {
		seq     uint64
		results []lookup.SearchResult
	}

	planResolvedMsg struct {
		gen     uint64
		origin  *geo.Coordinate
		results []lookup.SearchResult
	}

	weatherMsg struct {
		snap weather.Snapshot
		err  error
	}

	locationMsg struct {
		reading location.Reading
		closed  bool
	}
)
