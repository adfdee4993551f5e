// Package controller is the orchestration state machine of the HUD. All
// state lives in a Controller and is only mutated inside Update, which the
// Bubble Tea event loop calls from a single goroutine. Service calls run as
// tea.Cmd functions and report back through messages.
package controller

import (
	"context"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/unklstewy/loc-v2/internal/metrics"
	"github.com/unklstewy/loc-v2/pkg/geo"
	"github.com/unklstewy/loc-v2/pkg/location"
	"github.com/unklstewy/loc-v2/pkg/lookup"
	"github.com/unklstewy/loc-v2/pkg/routing"
	"github.com/unklstewy/loc-v2/pkg/weather"
	"go.uber.org/zap"
)

// CurrentLocationLabel is the route-planning origin meaning "where I am".
const CurrentLocationLabel = "Localização atual"

// DesignatedTargetName labels a point picked directly on the map.
const DesignatedTargetName = "ALVO DESIGNADO"

// QuickDestinations are offered in the route-planning overlay.
var QuickDestinations = []string{"PRAÇA DA LIBERDADE", "MERCADO CENTRAL", "MINEIRÃO", "SAVASSI"}

// Router computes routes. Implementations should resolve rather than fail;
// an error is still handled as a failed request.
type Router interface {
	Route(ctx context.Context, start, end geo.Coordinate, offline bool) (routing.Result, error)
}

// Lookup resolves free-text queries.
type Lookup interface {
	Search(ctx context.Context, query string, origin geo.Coordinate, offline bool) []lookup.SearchResult
}

// WeatherSource returns current conditions.
type WeatherSource interface {
	Current(ctx context.Context, c geo.Coordinate) (weather.Snapshot, error)
}

// TickFunc schedules fn after d. tea.Tick in production.
type TickFunc func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd

// Deps are the collaborators of a Controller.
type Deps struct {
	Lookup  Lookup
	Router  Router
	Weather WeatherSource     // optional
	Source  location.Provider // optional; nil disables location
	Logger  *zap.SugaredLogger
	Now     func() time.Time
	Tick    TickFunc
}

// Options tune timings and initial values.
type Options struct {
	Center   geo.Coordinate
	Settings Settings
	TimeZone *time.Location
	Region   string
	Operator string

	RequestTimeout time.Duration
	Debounce       time.Duration
	BootStep       time.Duration
	BootHold       time.Duration
	LogRotation    time.Duration
	ClockInterval  time.Duration

	// CloseZoom is applied by Recenter, RouteZoom when a route arrives
	CloseZoom int
	RouteZoom int
}

// DefaultOptions returns the stock timings centered on Praça da Liberdade.
func DefaultOptions() Options {
	return Options{
		Center:         geo.Coordinate{Lat: -19.9322, Lng: -43.9378},
		Settings:       DefaultSettings(),
		TimeZone:       time.Local,
		Region:         "MINAS GERAIS",
		Operator:       "LEONARDO BRASILEIRO",
		RequestTimeout: 20 * time.Second,
		Debounce:       350 * time.Millisecond,
		BootStep:       30 * time.Millisecond,
		BootHold:       2 * time.Second,
		LogRotation:    400 * time.Millisecond,
		ClockInterval:  time.Second,
		CloseZoom:      17,
		RouteZoom:      17,
	}
}

// Controller owns the HUD state.
type Controller struct {
	deps Deps
	opts Options
	log  *zap.SugaredLogger

	ctx         context.Context
	cancel      context.CancelFunc
	watchCancel context.CancelFunc
	readings    <-chan location.Reading

	state    State
	bootLogs []string

	started          bool
	stopped          atomic.Bool
	stopOnce         sync.Once
	hasFix           bool
	weatherRequested bool

	// generation counters; a completion is applied only if it matches
	routeGen uint64
	querySeq uint64
	planGen  uint64
}

// New creates a controller in the booting phase.
func New(deps Deps, opts Options) *Controller {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Tick == nil {
		deps.Tick = tea.Tick
	}
	if opts.TimeZone == nil {
		opts.TimeZone = time.Local
	}
	opts.Settings.RadarZoom = ClampZoom(opts.Settings.RadarZoom)

	ctx, cancel := context.WithCancel(context.Background())
	sessionID := uuid.NewString()

	c := &Controller{
		deps:   deps,
		opts:   opts,
		log:    deps.Logger.With("session", sessionID),
		ctx:    ctx,
		cancel: cancel,
		bootLogs: []string{
			"> INITIALIZING TACTICAL KERNEL...",
			"> MG-SAT LINK 100% ESTABLISHED",
			"> SECTOR DATA LOADED: " + opts.Region,
			"> HUD SYNC COMPLETE",
			"> ACCESS GRANTED: " + opts.Operator,
		},
	}
	c.state = State{
		Phase:     PhaseBooting,
		SessionID: sessionID,
		Center:    opts.Center,
		Settings:  opts.Settings,
		Clock:     c.formatClock(deps.Now()),
	}
	c.state.BootLog = c.bootLogs[0]
	return c
}

// Snapshot returns an immutable copy of the current state.
func (c *Controller) Snapshot() State {
	return c.state.clone()
}

// BootLogs returns the boot sequence lines.
func (c *Controller) BootLogs() []string {
	return append([]string(nil), c.bootLogs...)
}

// Init starts the timers and the location subscription. Calling it twice
// is a no-op.
func (c *Controller) Init() tea.Cmd {
	if c.started || c.stopped.Load() {
		return nil
	}
	c.started = true

	cmds := []tea.Cmd{
		c.after(c.opts.BootStep, bootTickMsg{}),
		c.after(c.opts.LogRotation, logRotateMsg{}),
		c.clockTick(),
	}

	if c.deps.Source != nil {
		wctx, cancel := context.WithCancel(c.ctx)
		c.watchCancel = cancel
		c.readings = c.deps.Source.Watch(wctx)
		cmds = append(cmds, c.waitForReading())
	} else {
		c.log.Infow("location disabled")
	}

	c.log.Infow("controller started", "center", c.state.Center.String(), "offline", c.state.Settings.Offline)
	return tea.Batch(cmds...)
}

// Shutdown releases the location subscription, cancels in-flight requests
// and stops every timer from re-arming. Safe to call more than once.
func (c *Controller) Shutdown() {
	c.stopOnce.Do(func() {
		c.stopped.Store(true)
		if c.watchCancel != nil {
			c.watchCancel()
		}
		c.cancel()
		c.log.Infow("controller stopped")
	})
}

// Update applies msg and returns the follow-up command, if any.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	if c.stopped.Load() {
		return nil
	}
	if _, ok := msg.(Intent); ok {
		c.state.Notice = ""
	}

	switch msg := msg.(type) {
	// timers
	case bootTickMsg:
		return c.onBootTick()
	case bootDoneMsg:
		c.state.Phase = PhaseReady
		c.state.BootLog = c.bootLogs[len(c.bootLogs)-1]
		c.log.Infow("boot complete")
		return nil
	case logRotateMsg:
		if c.state.Phase == PhaseReady {
			return nil
		}
		idx := (c.indexOfBootLog() + 1) % len(c.bootLogs)
		c.state.BootLog = c.bootLogs[idx]
		return c.after(c.opts.LogRotation, logRotateMsg{})
	case clockTickMsg:
		c.state.Clock = c.formatClock(c.deps.Now())
		return c.clockTick()

	// location
	case locationMsg:
		return c.onLocationMsg(msg)
	case LocationUpdate:
		return c.applySample(msg.Sample)
	case LocationLost:
		c.onLocationLost(msg.Err)
		return nil

	// routing
	case SelectTarget:
		return c.selectTarget(msg.Target, c.origin())
	case MapClick:
		return c.selectTarget(lookup.SearchResult{
			Name: DesignatedTargetName,
			Lat:  msg.Coordinate.Lat,
			Lng:  msg.Coordinate.Lng,
			Type: "COORD",
		}, c.origin())
	case routeResolvedMsg:
		return c.onRouteResolved(msg)
	case DismissRoute:
		c.routeGen++
		c.state.Searching = false
		c.state.Route = RouteNone
		c.state.ActiveRoute = nil
		c.state.Target = nil
		c.state.ShowRoutePanel = false
		return nil
	case Recenter:
		if c.state.UserLocation == nil {
			return nil
		}
		c.state.Center = *c.state.UserLocation
		c.state.Settings.RadarZoom = ClampZoom(c.opts.CloseZoom)
		return nil
	case Zoom:
		c.state.Settings.RadarZoom = ClampZoom(c.state.Settings.RadarZoom + msg.Delta)
		return nil

	// search
	case QueryChanged:
		c.state.Query = msg.Text
		c.state.ShowSuggestions = true
		return c.queueSearch()
	case debounceMsg:
		if msg.seq != c.querySeq {
			return nil
		}
		return c.searchCmd(msg.seq, c.state.Query)
	case suggestionsMsg:
		if msg.seq != c.querySeq {
			metrics.StaleDiscarded.WithLabelValues("suggestions").Inc()
			return nil
		}
		c.state.Suggestions = msg.results
		c.state.SuggestionsLoading = false
		return nil
	case PickSuggestion:
		c.querySeq++
		c.state.Query = msg.Result.Name
		c.state.ShowSuggestions = false
		c.state.SuggestionsLoading = false
		return c.selectTarget(msg.Result, c.origin())
	case HideSuggestions:
		c.state.ShowSuggestions = false
		return nil

	// route planning
	case PlanRoute:
		return c.planRoute(msg)
	case planResolvedMsg:
		return c.onPlanResolved(msg)
	case OpenNavOverlay:
		c.state.ShowNavOverlay = true
		c.state.ShowSettings = false
		return nil
	case CloseNavOverlay:
		c.planGen++
		c.state.Planning = false
		c.state.ShowNavOverlay = false
		return nil

	// settings
	case OpenSettings:
		c.state.ShowSettings = true
		c.state.ShowNavOverlay = false
		return nil
	case CloseSettings:
		c.state.ShowSettings = false
		return nil
	case ToggleOffline:
		c.state.Settings.Offline = !c.state.Settings.Offline
		if c.state.Settings.Offline {
			c.notify("MODO OFFLINE ATIVO")
		} else {
			c.notify("MODO ONLINE")
		}
		c.log.Infow("offline mode toggled", "offline", c.state.Settings.Offline)
		return c.queueSearch()
	case SetHUDColor:
		if _, err := ParseHUDColor(string(msg.Color)); err == nil {
			c.state.Settings.HUDColor = msg.Color
		}
		return nil
	case CycleHUDColor:
		c.state.Settings.HUDColor = c.state.Settings.HUDColor.Next()
		return nil
	case SetVisualFilter:
		if _, err := ParseVisualFilter(string(msg.Filter)); err == nil {
			c.state.Settings.VisualFilter = msg.Filter
		}
		return nil
	case CycleVisualFilter:
		c.state.Settings.VisualFilter = c.state.Settings.VisualFilter.Next()
		return nil
	case ToggleWeather:
		c.state.Settings.ShowWeather = !c.state.Settings.ShowWeather
		return nil
	case ToggleNotifications:
		c.state.Settings.NotificationsEnabled = !c.state.Settings.NotificationsEnabled
		return nil
	case weatherMsg:
		if msg.err != nil {
			c.log.Warnw("weather unavailable", "error", msg.err)
			return nil
		}
		snap := msg.snap
		c.state.Weather = &snap
		return nil
	}

	return nil
}

func (c *Controller) onBootTick() tea.Cmd {
	if c.state.Phase == PhaseReady {
		return nil
	}
	c.state.BootProgress += 5
	if c.state.BootProgress >= 100 {
		c.state.BootProgress = 100
		return c.after(c.opts.BootHold, bootDoneMsg{})
	}
	return c.after(c.opts.BootStep, bootTickMsg{})
}

func (c *Controller) indexOfBootLog() int {
	for i, l := range c.bootLogs {
		if l == c.state.BootLog {
			return i
		}
	}
	return 0
}

// origin is the last fix, or the viewport center before any fix.
func (c *Controller) origin() geo.Coordinate {
	if c.state.UserLocation != nil {
		return *c.state.UserLocation
	}
	return c.state.Center
}

func (c *Controller) applySample(s geo.LocationSample) tea.Cmd {
	coord := s.Coordinate
	c.state.UserLocation = &coord
	if s.Heading != nil {
		c.state.Heading = int(math.Round(geo.NormalizeHeading(*s.Heading))) % 360
		c.state.HasHeading = true
	}

	if c.hasFix {
		return nil
	}
	c.hasFix = true
	c.state.Center = coord
	c.log.Infow("first location fix", "position", coord.String(), "accuracy", s.Accuracy)

	if c.weatherRequested || c.deps.Weather == nil {
		return nil
	}
	c.weatherRequested = true
	return c.weatherCmd(coord)
}

func (c *Controller) onLocationMsg(msg locationMsg) tea.Cmd {
	if msg.closed {
		c.log.Infow("location stream closed")
		c.readings = nil
		return nil
	}
	var cmd tea.Cmd
	if msg.reading.Err != nil {
		c.onLocationLost(msg.reading.Err)
	} else {
		cmd = c.applySample(msg.reading.Sample)
	}
	return tea.Batch(cmd, c.waitForReading())
}

func (c *Controller) onLocationLost(err error) {
	c.log.Warnw("location unavailable", "error", err)
	c.notify("SINAL GPS INDISPONÍVEL")
}

func (c *Controller) selectTarget(target lookup.SearchResult, origin geo.Coordinate) tea.Cmd {
	c.routeGen++
	t := target
	c.state.Target = &t
	c.state.Searching = true
	c.state.Route = RouteRequested
	c.state.ShowSuggestions = false

	c.log.Infow("route requested", "target", target.Name, "origin", origin.String(),
		"offline", c.state.Settings.Offline, "generation", c.routeGen)
	return c.routeCmd(c.routeGen, origin, target.Coordinate(), c.state.Settings.Offline)
}

func (c *Controller) onRouteResolved(msg routeResolvedMsg) tea.Cmd {
	if msg.gen != c.routeGen {
		metrics.StaleDiscarded.WithLabelValues("route").Inc()
		c.log.Debugw("discarding superseded route", "generation", msg.gen, "current", c.routeGen)
		return nil
	}
	c.state.Searching = false

	if msg.err != nil {
		c.state.Route = RouteFailed
		c.state.ActiveRoute = nil
		c.state.ShowRoutePanel = false
		c.log.Errorw("route request failed", "error", msg.err)
		c.notify("FALHA AO CALCULAR ROTA")
		return nil
	}

	res := msg.result
	c.state.ActiveRoute = &res
	c.state.Route = RouteActive
	c.state.Center = res.Start()
	c.state.Settings.RadarZoom = ClampZoom(c.opts.RouteZoom)
	c.state.ShowRoutePanel = true

	switch res.Mode {
	case routing.ModeDegraded:
		c.notify("ROTA ESTIMADA: SERVIÇO INDISPONÍVEL")
	case routing.ModeOffline:
		c.notify("ROTA OFFLINE")
	default:
		c.notify("ROTA CALCULADA")
	}
	return nil
}

func (c *Controller) queueSearch() tea.Cmd {
	c.querySeq++
	if utf8.RuneCountInString(strings.TrimSpace(c.state.Query)) < lookup.MinQueryLength {
		c.state.Suggestions = nil
		c.state.SuggestionsLoading = false
		return nil
	}
	c.state.SuggestionsLoading = true
	return c.after(c.opts.Debounce, debounceMsg{seq: c.querySeq})
}

func (c *Controller) planRoute(msg PlanRoute) tea.Cmd {
	end := strings.TrimSpace(msg.End)
	if end == "" {
		c.notify("INFORME O DESTINO")
		return nil
	}

	start := strings.TrimSpace(msg.Start)
	if strings.EqualFold(start, CurrentLocationLabel) {
		start = ""
	}

	c.planGen++
	c.state.Planning = true
	c.log.Infow("route planning", "start", start, "end", end)
	return c.planCmd(c.planGen, start, end)
}

func (c *Controller) onPlanResolved(msg planResolvedMsg) tea.Cmd {
	if msg.gen != c.planGen {
		metrics.StaleDiscarded.WithLabelValues("plan").Inc()
		return nil
	}
	c.state.Planning = false
	c.state.ShowNavOverlay = false

	if len(msg.results) == 0 {
		c.notify("DESTINO NÃO ENCONTRADO")
		return nil
	}

	origin := c.origin()
	if msg.origin != nil {
		origin = *msg.origin
	}
	return c.selectTarget(msg.results[0], origin)
}

func (c *Controller) notify(text string) {
	if c.state.Settings.NotificationsEnabled {
		c.state.Notice = text
	}
}

func (c *Controller) formatClock(t time.Time) string {
	return t.In(c.opts.TimeZone).Format("15:04:05")
}
