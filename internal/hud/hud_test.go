package hud

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unklstewy/loc-v2/internal/controller"
	"github.com/unklstewy/loc-v2/pkg/geo"
	"github.com/unklstewy/loc-v2/pkg/lookup"
	"github.com/unklstewy/loc-v2/pkg/routing"
)

type stubLookup struct {
	queries []string
}

func (s *stubLookup) Search(ctx context.Context, query string, origin geo.Coordinate, offline bool) []lookup.SearchResult {
	s.queries = append(s.queries, query)
	return lookup.FilterOffline(lookup.OfflineTable(), query, lookup.MatchNameOrType)
}

type stubRouter struct{}

func (stubRouter) Route(ctx context.Context, start, end geo.Coordinate, offline bool) (routing.Result, error) {
	return routing.Result{
		Coordinates:   []geo.Coordinate{start, end},
		TotalDistance: "1.5km",
		TotalTime:     "4 MIN",
		Mode:          routing.ModeOnline,
	}, nil
}

func immediateTick(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
	return func() tea.Msg { return fn(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)) }
}

// pump runs cmd and everything it produces through m, up to budget messages.
func pump(m Model, cmd tea.Cmd, budget int) Model {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 && budget > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		switch msg := msg.(type) {
		case nil, tea.QuitMsg:
			continue
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		}
		budget--
		next, nc := m.Update(msg)
		m = next.(Model)
		queue = append(queue, nc)
	}
	return m
}

func press(m Model, msg tea.KeyMsg) Model {
	next, cmd := m.Update(msg)
	return pump(next.(Model), cmd, 20)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newReadyModel(t *testing.T) (Model, *stubLookup) {
	t.Helper()
	lk := &stubLookup{}
	opts := controller.DefaultOptions()
	opts.TimeZone = time.UTC
	ctl := controller.New(controller.Deps{
		Lookup: lk,
		Router: stubRouter{},
		Tick:   immediateTick,
	}, opts)

	m := New(ctl, geo.MinasGerais, "test")
	m = pump(m, m.Init(), 400)
	if got := ctl.Snapshot().Phase; got != controller.PhaseReady {
		t.Fatalf("Expected ready phase, got %v", got)
	}
	return m, lk
}

func TestProjectionRoundTrip(t *testing.T) {
	p := Projection{Center: geo.Coordinate{Lat: -19.9322, Lng: -43.9378}, Zoom: 15, Width: 60, Height: 20}

	cx, cy, ok := p.ToScreen(p.Center)
	if !ok || cx != 30 || cy != 10 {
		t.Errorf("Expected center at (30,10), got (%d,%d) ok=%v", cx, cy, ok)
	}

	for _, cell := range [][2]int{{0, 0}, {59, 19}, {12, 7}, {45, 3}} {
		c := p.ToCoord(cell[0], cell[1])
		x, y, ok := p.ToScreen(c)
		if !ok || x != cell[0] || y != cell[1] {
			t.Errorf("Expected (%d,%d), got (%d,%d) ok=%v", cell[0], cell[1], x, y, ok)
		}
	}

	if _, _, ok := p.ToScreen(geo.Coordinate{Lat: -21.0, Lng: -45.0}); ok {
		t.Error("Expected distant point to fall off the grid")
	}
}

func TestProjectionScale(t *testing.T) {
	p := Projection{Center: geo.Coordinate{Lat: -19.9, Lng: -43.9}, Zoom: 15, Width: 60, Height: 20}
	q := p
	q.Zoom = 16

	ratio := p.MetersPerColumn() / q.MetersPerColumn()
	if ratio < 1.999 || ratio > 2.001 {
		t.Errorf("Expected one zoom step to halve the scale, got ratio %f", ratio)
	}
	if p.MetersPerRow() != 2*p.MetersPerColumn() {
		t.Errorf("Expected rows to cover twice the column distance")
	}
}

func TestClipSegment(t *testing.T) {
	t.Run("outside", func(t *testing.T) {
		if _, _, _, _, ok := clipSegment(-10, -10, -5, -2, 0, 0, 9, 9); ok {
			t.Error("Expected segment outside the box to be rejected")
		}
	})

	t.Run("crossing", func(t *testing.T) {
		x0, y0, x1, y1, ok := clipSegment(-10, 5, 20, 5, 0, 0, 9, 9)
		if !ok {
			t.Fatal("Expected crossing segment to be kept")
		}
		if x0 != 0 || x1 != 9 || y0 != 5 || y1 != 5 {
			t.Errorf("Expected (0,5)-(9,5), got (%v,%v)-(%v,%v)", x0, y0, x1, y1)
		}
	})
}

func TestHeadingArrow(t *testing.T) {
	tests := []struct {
		heading int
		want    rune
	}{
		{0, '↑'},
		{44, '↗'},
		{90, '→'},
		{225, '↙'},
		{359, '↑'},
	}
	for _, tt := range tests {
		if got := headingArrow(tt.heading); got != tt.want {
			t.Errorf("Expected %c for %d, got %c", tt.want, tt.heading, got)
		}
	}
}

func TestBootView(t *testing.T) {
	ctl := controller.New(controller.Deps{Lookup: &stubLookup{}, Router: stubRouter{}}, controller.DefaultOptions())
	m := New(ctl, geo.MinasGerais, "test")

	view := m.View()
	if !strings.Contains(view, "INITIALIZING TACTICAL KERNEL") {
		t.Errorf("Expected first boot log line, got %q", view)
	}
	if !strings.Contains(view, "0%") {
		t.Errorf("Expected progress percentage, got %q", view)
	}

	m.Update(runes("+"))
	if ctl.Snapshot().Settings.RadarZoom != controller.DefaultZoom {
		t.Error("Expected keys to be ignored while booting")
	}
}

func TestMapKeys(t *testing.T) {
	m, _ := newReadyModel(t)
	ctl := m.ctl

	m = press(m, runes("+"))
	if got := ctl.Snapshot().Settings.RadarZoom; got != controller.DefaultZoom+1 {
		t.Errorf("Expected zoom %d, got %d", controller.DefaultZoom+1, got)
	}

	for i := 0; i < 20; i++ {
		m = press(m, runes("-"))
	}
	if got := ctl.Snapshot().Settings.RadarZoom; got != controller.MinZoom {
		t.Errorf("Expected zoom clamped to %d, got %d", controller.MinZoom, got)
	}

	m = press(m, runes("o"))
	if !ctl.Snapshot().Settings.Offline {
		t.Error("Expected offline mode after 'o'")
	}
	if !strings.Contains(m.View(), "OFFLINE") {
		t.Error("Expected OFFLINE badge in view")
	}

	m = press(m, runes("h"))
	if got := ctl.Snapshot().Settings.HUDColor; got != controller.ColorBlue {
		t.Errorf("Expected blue HUD, got %s", got)
	}
}

func TestSettingsPanel(t *testing.T) {
	m, _ := newReadyModel(t)
	ctl := m.ctl

	m = press(m, runes("s"))
	if !ctl.Snapshot().ShowSettings {
		t.Fatal("Expected settings panel open")
	}
	if !strings.Contains(m.View(), "MG_CORE") {
		t.Error("Expected settings panel title in view")
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := ctl.Snapshot().Settings.VisualFilter; got != controller.FilterHighContrast {
		t.Errorf("Expected high-contrast filter, got %s", got)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if ctl.Snapshot().ShowSettings {
		t.Error("Expected settings panel closed")
	}
}

func TestSearchAndPick(t *testing.T) {
	m, lk := newReadyModel(t)
	ctl := m.ctl

	m = press(m, runes("/"))
	m = press(m, runes("c"))
	if len(lk.queries) != 0 {
		t.Errorf("Expected no lookup for a single character, got %v", lk.queries)
	}
	m = press(m, runes("e"))
	m = press(m, runes("n"))

	state := ctl.Snapshot()
	if state.Query != "cen" {
		t.Errorf("Expected query 'cen', got %q", state.Query)
	}
	if len(state.Suggestions) == 0 {
		t.Fatal("Expected suggestions for 'cen'")
	}
	if !strings.Contains(m.View(), state.Suggestions[0].Name) {
		t.Error("Expected suggestion in view")
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	state = ctl.Snapshot()
	if state.Route != controller.RouteActive {
		t.Fatalf("Expected active route, got %v", state.Route)
	}
	if state.Target == nil || state.Target.Name != state.Query {
		t.Errorf("Expected picked suggestion as target, got %+v", state.Target)
	}
	view := m.View()
	if !strings.Contains(view, "ROTA ATIVA") || !strings.Contains(view, "1.5km") {
		t.Errorf("Expected route panel in view, got %q", view)
	}

	m = press(m, runes("x"))
	if ctl.Snapshot().ActiveRoute != nil {
		t.Error("Expected route dismissed")
	}
}

func TestMouseDesignate(t *testing.T) {
	m, _ := newReadyModel(t)
	ctl := m.ctl

	next, cmd := m.Update(tea.MouseMsg{
		X:      mapLeft + 5,
		Y:      mapTop + 4,
		Action: tea.MouseActionPress,
		Button: tea.MouseButtonLeft,
	})
	m = pump(next.(Model), cmd, 20)

	state := ctl.Snapshot()
	if state.Target == nil || state.Target.Name != controller.DesignatedTargetName {
		t.Fatalf("Expected designated target, got %+v", state.Target)
	}
	if state.Target.Type != "COORD" {
		t.Errorf("Expected COORD type, got %s", state.Target.Type)
	}
}

func TestCursorDesignate(t *testing.T) {
	m, _ := newReadyModel(t)
	ctl := m.ctl
	center := ctl.Snapshot().Center

	m = press(m, runes("m"))
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})

	target := ctl.Snapshot().Target
	if target == nil {
		t.Fatal("Expected target from cursor")
	}
	if d := geo.DistanceMeters(center, target.Coordinate()); d > 1 {
		t.Errorf("Expected cursor at center to designate the center, off by %.1fm", d)
	}
}

func TestNavOverlay(t *testing.T) {
	m, lk := newReadyModel(t)
	ctl := m.ctl

	m = press(m, runes("t"))
	if !ctl.Snapshot().ShowNavOverlay {
		t.Fatal("Expected nav overlay open")
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if ctl.Snapshot().Notice == "" {
		t.Error("Expected notice for empty destination")
	}
	if !ctl.Snapshot().ShowNavOverlay {
		t.Error("Expected overlay to stay open on empty destination")
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}, Alt: true})
	if m.navEnd != controller.QuickDestinations[1] {
		t.Errorf("Expected quick destination %q, got %q", controller.QuickDestinations[1], m.navEnd)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	state := ctl.Snapshot()
	if state.ShowNavOverlay {
		t.Error("Expected overlay closed after planning")
	}
	if state.Route != controller.RouteActive {
		t.Errorf("Expected active route, got %v", state.Route)
	}
	if len(lk.queries) == 0 || lk.queries[len(lk.queries)-1] != controller.QuickDestinations[1] {
		t.Errorf("Expected destination lookup, got %v", lk.queries)
	}
}

func TestQuit(t *testing.T) {
	m, _ := newReadyModel(t)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
	if next.(Model).View() != "" {
		t.Error("Expected empty view after quit")
	}
	before := m.ctl.Snapshot().Settings.RadarZoom
	m.ctl.Update(controller.Zoom{Delta: 1})
	if got := m.ctl.Snapshot().Settings.RadarZoom; got != before {
		t.Errorf("Expected controller stopped after quit, zoom moved to %d", got)
	}
}
