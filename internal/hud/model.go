// Package hud is the terminal presentation layer. It renders controller
// snapshots and turns keys and mouse clicks into controller intents; it
// never mutates state itself.
package hud

import (
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unklstewy/loc-v2/internal/controller"
	"github.com/unklstewy/loc-v2/pkg/geo"
)

// Layout constants. The radar grid starts below the top bar, the search
// bar and its own border.
const (
	sidePanelWidth = 34
	mapTop         = 3
	mapLeft        = 1
	minMapWidth    = 40
	minMapHeight   = 12
	reservedRows   = 7
)

type mode int

const (
	modeMap mode = iota
	modeSearch
	modeDesignate
)

// Settings panel rows.
const (
	rowOffline = iota
	rowHUDColor
	rowFilter
	rowWeather
	rowNotifications
	settingsRows
)

// Model is the Bubble Tea model of the HUD.
type Model struct {
	ctl     *controller.Controller
	region  geo.Bounds
	version string

	width  int
	height int

	mode       mode
	suggestion int

	navField int
	navStart string
	navEnd   string

	settingsRow int

	cursorX int
	cursorY int

	quitting bool
}

// New wraps ctl. region is shaded outside its bounds on the radar.
func New(ctl *controller.Controller, region geo.Bounds, version string) Model {
	return Model{
		ctl:     ctl,
		region:  region,
		version: version,
		width:   100,
		height:  32,
	}
}

func (m Model) Init() tea.Cmd {
	return m.ctl.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampCursor()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, m.ctl.Update(msg)
}

func (m Model) send(intent controller.Intent) tea.Cmd {
	return m.ctl.Update(intent)
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.ctl.Shutdown()
	return m, tea.Quit
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	state := m.ctl.Snapshot()
	if state.Phase != controller.PhaseReady {
		if msg.String() == "q" {
			return m.quit()
		}
		return m, nil
	}

	switch {
	case state.ShowNavOverlay:
		return m.handleNavKey(msg)
	case state.ShowSettings:
		return m.handleSettingsKey(msg, state)
	case m.mode == modeSearch:
		return m.handleSearchKey(msg, state)
	case m.mode == modeDesignate:
		return m.handleDesignateKey(msg, state)
	}

	switch msg.String() {
	case "q":
		return m.quit()
	case "/":
		m.mode = modeSearch
		m.suggestion = 0
	case "+", "=":
		return m, m.send(controller.Zoom{Delta: 1})
	case "-", "_":
		return m, m.send(controller.Zoom{Delta: -1})
	case "c":
		return m, m.send(controller.Recenter{})
	case "o":
		return m, m.send(controller.ToggleOffline{})
	case "x", "esc":
		if state.Route != controller.RouteNone || state.Target != nil {
			return m, m.send(controller.DismissRoute{})
		}
	case "t":
		m.navField = 1
		m.navStart = controller.CurrentLocationLabel
		m.navEnd = ""
		return m, m.send(controller.OpenNavOverlay{})
	case "s":
		m.settingsRow = 0
		return m, m.send(controller.OpenSettings{})
	case "h":
		return m, m.send(controller.CycleHUDColor{})
	case "v":
		return m, m.send(controller.CycleVisualFilter{})
	case "w":
		return m, m.send(controller.ToggleWeather{})
	case "m":
		m.mode = modeDesignate
		m.cursorX, m.cursorY = m.mapWidth()/2, m.mapHeight()/2
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg, state controller.State) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeMap
		return m, m.send(controller.HideSuggestions{})
	case tea.KeyUp:
		if m.suggestion > 0 {
			m.suggestion--
		}
		return m, nil
	case tea.KeyDown:
		if m.suggestion < len(state.Suggestions)-1 {
			m.suggestion++
		}
		return m, nil
	case tea.KeyEnter:
		if m.suggestion < len(state.Suggestions) {
			m.mode = modeMap
			return m, m.send(controller.PickSuggestion{Result: state.Suggestions[m.suggestion]})
		}
		return m, nil
	case tea.KeyBackspace:
		q := state.Query
		if q == "" {
			return m, nil
		}
		_, size := utf8.DecodeLastRuneInString(q)
		m.suggestion = 0
		return m, m.send(controller.QueryChanged{Text: q[:len(q)-size]})
	case tea.KeySpace:
		m.suggestion = 0
		return m, m.send(controller.QueryChanged{Text: state.Query + " "})
	case tea.KeyRunes:
		m.suggestion = 0
		return m, m.send(controller.QueryChanged{Text: state.Query + string(msg.Runes)})
	}
	return m, nil
}

func (m Model) handleNavKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, m.send(controller.CloseNavOverlay{})
	case "tab", "shift+tab", "up", "down":
		m.navField = 1 - m.navField
		return m, nil
	case "enter":
		return m, m.send(controller.PlanRoute{Start: m.navStart, End: m.navEnd})
	case "alt+1", "alt+2", "alt+3", "alt+4":
		idx := int(msg.String()[4] - '1')
		if idx < len(controller.QuickDestinations) {
			m.navEnd = controller.QuickDestinations[idx]
			m.navField = 1
		}
		return m, nil
	}

	field := &m.navEnd
	if m.navField == 0 {
		field = &m.navStart
	}
	switch msg.Type {
	case tea.KeyBackspace:
		if *field != "" {
			_, size := utf8.DecodeLastRuneInString(*field)
			*field = (*field)[:len(*field)-size]
		}
	case tea.KeySpace:
		*field += " "
	case tea.KeyRunes:
		*field += string(msg.Runes)
	}
	return m, nil
}

func (m Model) handleSettingsKey(msg tea.KeyMsg, state controller.State) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "s", "q":
		return m, m.send(controller.CloseSettings{})
	case "up", "k":
		if m.settingsRow > 0 {
			m.settingsRow--
		}
	case "down", "j":
		if m.settingsRow < settingsRows-1 {
			m.settingsRow++
		}
	case "enter", " ", "right", "l":
		return m, m.send(settingsIntent(m.settingsRow))
	}
	return m, nil
}

// settingsIntent maps a settings row to the intent that changes it.
func settingsIntent(row int) controller.Intent {
	switch row {
	case rowOffline:
		return controller.ToggleOffline{}
	case rowHUDColor:
		return controller.CycleHUDColor{}
	case rowFilter:
		return controller.CycleVisualFilter{}
	case rowWeather:
		return controller.ToggleWeather{}
	default:
		return controller.ToggleNotifications{}
	}
}

func (m Model) handleDesignateKey(msg tea.KeyMsg, state controller.State) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "m":
		m.mode = modeMap
	case "up", "k":
		m.cursorY--
	case "down", "j":
		m.cursorY++
	case "left", "h":
		m.cursorX--
	case "right", "l":
		m.cursorX++
	case "enter", " ":
		m.mode = modeMap
		coord := m.projection(state).ToCoord(m.cursorX, m.cursorY)
		return m, m.send(controller.MapClick{Coordinate: coord})
	}
	m.clampCursor()
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	state := m.ctl.Snapshot()
	if state.Phase != controller.PhaseReady || msg.Action != tea.MouseActionPress {
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return m, m.send(controller.Zoom{Delta: 1})
	case tea.MouseButtonWheelDown:
		return m, m.send(controller.Zoom{Delta: -1})
	case tea.MouseButtonLeft:
		x, y := msg.X-mapLeft, msg.Y-mapTop
		if x < 0 || y < 0 || x >= m.mapWidth() || y >= m.mapHeight() {
			return m, nil
		}
		m.mode = modeMap
		coord := m.projection(state).ToCoord(x, y)
		return m, m.send(controller.MapClick{Coordinate: coord})
	}
	return m, nil
}

func (m Model) mapWidth() int {
	w := m.width - sidePanelWidth - 4
	if w < minMapWidth {
		w = minMapWidth
	}
	return w
}

func (m Model) mapHeight() int {
	h := m.height - reservedRows
	if h < minMapHeight {
		h = minMapHeight
	}
	return h
}

func (m Model) projection(state controller.State) Projection {
	return Projection{
		Center: state.Center,
		Zoom:   state.Settings.RadarZoom,
		Width:  m.mapWidth(),
		Height: m.mapHeight(),
	}
}

func (m *Model) clampCursor() {
	m.cursorX = max(0, min(m.cursorX, m.mapWidth()-1))
	m.cursorY = max(0, min(m.cursorY, m.mapHeight()-1))
}
