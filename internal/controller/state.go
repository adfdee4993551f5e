package controller

import (
	"github.com/unklstewy/loc-v2/pkg/geo"
	"github.com/unklstewy/loc-v2/pkg/lookup"
	"github.com/unklstewy/loc-v2/pkg/routing"
	"github.com/unklstewy/loc-v2/pkg/weather"
)

// Phase is the top-level application phase.
type Phase int

const (
	PhaseBooting Phase = iota
	PhaseReady
)

func (p Phase) String() string {
	if p == PhaseReady {
		return "ready"
	}
	return "booting"
}

// RouteState tracks the route request lifecycle.
type RouteState int

const (
	RouteNone RouteState = iota
	RouteRequested
	RouteActive
	RouteFailed
)

func (r RouteState) String() string {
	switch r {
	case RouteRequested:
		return "requested"
	case RouteActive:
		return "active"
	case RouteFailed:
		return "failed"
	default:
		return "none"
	}
}

// State is everything the presentation layer renders. Values returned by
// Snapshot are copies and safe to hold.
type State struct {
	Phase        Phase
	BootProgress int
	BootLog      string
	Clock        string
	SessionID    string

	// Center is the viewport center; never undefined
	Center       geo.Coordinate
	UserLocation *geo.Coordinate
	Heading      int
	HasHeading   bool

	Settings Settings
	Weather  *weather.Snapshot

	Route          RouteState
	Searching      bool
	Target         *lookup.SearchResult
	ActiveRoute    *routing.Result
	ShowRoutePanel bool

	Query              string
	Suggestions        []lookup.SearchResult
	ShowSuggestions    bool
	SuggestionsLoading bool

	ShowNavOverlay bool
	Planning       bool
	ShowSettings   bool

	// Notice is a transient message, set only when notifications are on
	Notice string
}

func (s State) clone() State {
	out := s
	if s.UserLocation != nil {
		loc := *s.UserLocation
		out.UserLocation = &loc
	}
	if s.Weather != nil {
		w := *s.Weather
		out.Weather = &w
	}
	if s.Target != nil {
		t := *s.Target
		out.Target = &t
	}
	if s.ActiveRoute != nil {
		r := *s.ActiveRoute
		r.Coordinates = append([]geo.Coordinate(nil), s.ActiveRoute.Coordinates...)
		r.Instructions = append([]routing.Instruction(nil), s.ActiveRoute.Instructions...)
		out.ActiveRoute = &r
	}
	if s.Suggestions != nil {
		out.Suggestions = append([]lookup.SearchResult(nil), s.Suggestions...)
	}
	return out
}
