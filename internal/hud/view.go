package hud

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/loc-v2/internal/controller"
	"github.com/unklstewy/loc-v2/pkg/routing"
)

const bootBarWidth = 40

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	state := m.ctl.Snapshot()
	t := newTheme(state.Settings)

	if state.Phase != controller.PhaseReady {
		return m.renderBoot(state, t)
	}

	var s strings.Builder
	s.WriteString(m.renderTopBar(state, t))
	s.WriteString("\n")
	s.WriteString(m.renderSearchBar(state, t))
	s.WriteString("\n")

	radar := renderRadar(radarView{
		state:     state,
		proj:      m.projection(state),
		theme:     t,
		designate: m.mode == modeDesignate,
		cursorX:   m.cursorX,
		cursorY:   m.cursorY,
		region:    m.region,
	})

	var side string
	switch {
	case state.ShowNavOverlay:
		side = m.renderNavOverlay(state, t)
	case state.ShowSettings:
		side = m.renderSettings(state, t)
	default:
		side = m.renderSidePanel(state, t)
	}

	radarLines := strings.Split(radar, "\n")
	sideLines := strings.Split(side, "\n")
	n := max(len(radarLines), len(sideLines))
	for i := 0; i < n; i++ {
		if i < len(radarLines) {
			s.WriteString(radarLines[i])
		} else {
			s.WriteString(strings.Repeat(" ", m.mapWidth()+2))
		}
		s.WriteString("  ")
		if i < len(sideLines) {
			s.WriteString(sideLines[i])
		}
		s.WriteString("\n")
	}

	if state.Notice != "" {
		s.WriteString(t.warning.Render("» " + state.Notice))
	}
	s.WriteString("\n")
	s.WriteString(t.help.Render(m.helpLine()))
	return s.String()
}

func (m Model) renderBoot(state controller.State, t theme) string {
	var s strings.Builder
	s.WriteString(t.title.Render("LOC V2 // SISTEMA TÁTICO"))
	s.WriteString("\n\n")

	filled := state.BootProgress * bootBarWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", bootBarWidth-filled)
	s.WriteString(lipgloss.NewStyle().Foreground(t.accent).Render(bar))
	s.WriteString(fmt.Sprintf(" %3d%%\n\n", state.BootProgress))
	s.WriteString(t.text.Render(state.BootLog))
	s.WriteString("\n\n")
	s.WriteString(t.dim.Render(state.Clock))
	return s.String()
}

func (m Model) renderTopBar(state controller.State, t theme) string {
	azm := "---"
	if state.HasHeading {
		azm = fmt.Sprintf("%03d°", state.Heading)
	}
	parts := []string{
		t.title.Render("LOC V2 // MG"),
		t.text.Render("AZM " + azm),
		t.text.Render(state.Clock),
	}
	if state.Settings.Offline {
		parts = append(parts, t.alert.Render("OFFLINE"))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderSearchBar(state controller.State, t theme) string {
	prompt := t.dim.Render("/ BUSCAR ")
	if m.mode != modeSearch {
		if state.Query == "" {
			return prompt + t.dim.Render("(pressione / para buscar)")
		}
		return prompt + t.text.Render(state.Query)
	}
	line := prompt + lipgloss.NewStyle().Foreground(t.accent).Render("> "+state.Query+"_")
	if state.SuggestionsLoading {
		line += t.dim.Render("  ...")
	}
	return line
}

func (m Model) renderSidePanel(state controller.State, t theme) string {
	var s strings.Builder

	if m.mode == modeSearch && state.ShowSuggestions {
		s.WriteString(m.renderSuggestions(state, t))
		s.WriteString("\n")
	}

	switch {
	case state.Searching:
		s.WriteString(t.warning.Render("CALCULANDO ROTA..."))
		s.WriteString("\n")
		if state.Target != nil {
			s.WriteString(t.text.Render(state.Target.Name))
			s.WriteString("\n")
		}
	case state.ShowRoutePanel && state.ActiveRoute != nil:
		s.WriteString(renderRoutePanel(state, t))
		s.WriteString("\n")
	case state.Route == controller.RouteFailed:
		s.WriteString(t.alert.Render("ROTA INDISPONÍVEL"))
		s.WriteString("\n")
	case state.Settings.ShowWeather && state.Weather != nil:
		s.WriteString(t.panel.Render(fmt.Sprintf("%d°C  %s", state.Weather.Temp, state.Weather.Condition)))
		s.WriteString("\n")
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(t.accent)
	s.WriteString(header.Render("RADAR"))
	s.WriteString("\n")
	s.WriteString(t.text.Render(fmt.Sprintf("Centro: %.4f, %.4f", state.Center.Lat, state.Center.Lng)))
	s.WriteString("\n")
	if state.UserLocation != nil {
		s.WriteString(t.text.Render(fmt.Sprintf("GPS:    %.4f, %.4f", state.UserLocation.Lat, state.UserLocation.Lng)))
	} else {
		s.WriteString(t.dim.Render("GPS:    SEM SINAL"))
	}
	s.WriteString("\n")
	p := m.projection(state)
	s.WriteString(t.text.Render(fmt.Sprintf("Zoom:   %d  (alcance %s)", state.Settings.RadarZoom, routing.FormatDistance(p.RangeMeters()))))
	s.WriteString("\n")

	if m.mode == modeDesignate {
		c := p.ToCoord(m.cursorX, m.cursorY)
		s.WriteString(t.cursor.Render(fmt.Sprintf("MIRA:   %.4f, %.4f", c.Lat, c.Lng)))
		s.WriteString("\n")
	}
	return s.String()
}

func renderRoutePanel(state controller.State, t theme) string {
	r := state.ActiveRoute
	name := ""
	if state.Target != nil {
		name = state.Target.Name
	}
	body := fmt.Sprintf("%s\nDIST:  %s\nTEMPO: %s", name, r.TotalDistance, r.TotalTime)
	switch r.Mode {
	case routing.ModeOffline:
		body += "\n" + t.warning.Render("MODO OFFLINE")
	case routing.ModeDegraded:
		body += "\n" + t.warning.Render("ROTA ESTIMADA")
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(t.accent).Render("ROTA ATIVA")
	return t.panel.Render(title + "\n" + body)
}

func (m Model) renderSuggestions(state controller.State, t theme) string {
	var s strings.Builder
	if state.SuggestionsLoading && len(state.Suggestions) == 0 {
		return t.dim.Render("buscando...")
	}
	if len(state.Suggestions) == 0 {
		return t.dim.Render("sem resultados")
	}
	for i, r := range state.Suggestions {
		line := fmt.Sprintf("%s  %s", r.Name, t.dim.Render(r.Type))
		if i == m.suggestion {
			s.WriteString(lipgloss.NewStyle().Foreground(t.accent).Bold(true).Render("▶ " + line))
		} else {
			s.WriteString("  " + t.text.Render(line))
		}
		s.WriteString("\n")
	}
	return strings.TrimRight(s.String(), "\n")
}

func (m Model) renderNavOverlay(state controller.State, t theme) string {
	var s strings.Builder
	header := lipgloss.NewStyle().Bold(true).Foreground(t.accent)
	s.WriteString(header.Render("PLANEJAR ROTA"))
	s.WriteString("\n\n")

	fields := []struct {
		label string
		value string
	}{
		{"ORIGEM ", m.navStart},
		{"DESTINO", m.navEnd},
	}
	for i, f := range fields {
		value := f.value
		style := t.text
		if i == m.navField {
			value += "_"
			style = lipgloss.NewStyle().Foreground(t.accent)
		}
		s.WriteString(t.dim.Render(f.label+" ") + style.Render(value))
		s.WriteString("\n")
	}
	s.WriteString("\n")
	for i, d := range controller.QuickDestinations {
		s.WriteString(t.dim.Render(fmt.Sprintf("alt+%d ", i+1)) + t.text.Render(d))
		s.WriteString("\n")
	}
	if state.Planning {
		s.WriteString("\n")
		s.WriteString(t.warning.Render("RESOLVENDO..."))
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(t.help.Render("TAB: campo  ENTER: traçar  ESC: fechar"))
	return t.panel.Render(s.String())
}

func (m Model) renderSettings(state controller.State, t theme) string {
	onOff := func(v bool) string {
		if v {
			return "ON"
		}
		return "OFF"
	}
	rows := []string{
		rowOffline:       "MODO OFFLINE   " + onOff(state.Settings.Offline),
		rowHUDColor:      "COR DO HUD     " + strings.ToUpper(string(state.Settings.HUDColor)),
		rowFilter:        "FILTRO VISUAL  " + strings.ToUpper(string(state.Settings.VisualFilter)),
		rowWeather:       "CLIMA          " + onOff(state.Settings.ShowWeather),
		rowNotifications: "NOTIFICAÇÕES   " + onOff(state.Settings.NotificationsEnabled),
	}

	var s strings.Builder
	header := lipgloss.NewStyle().Bold(true).Foreground(t.accent)
	s.WriteString(header.Render("MG_CORE"))
	s.WriteString("\n\n")
	for i, r := range rows {
		if i == m.settingsRow {
			s.WriteString(lipgloss.NewStyle().Foreground(t.accent).Bold(true).Render("▶ " + r))
		} else {
			s.WriteString(t.text.Render("  " + r))
		}
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(t.dim.Render("VERSÃO " + m.version))
	s.WriteString("\n")
	s.WriteString(t.dim.Render("SESSÃO " + shortID(state.SessionID)))
	s.WriteString("\n\n")
	s.WriteString(t.help.Render("↑/↓: item  ENTER: alterar  ESC: fechar"))
	return t.panel.Render(s.String())
}

func (m Model) helpLine() string {
	switch m.mode {
	case modeSearch:
		return "↑/↓: sugestão  ENTER: selecionar  ESC: sair da busca"
	case modeDesignate:
		return "SETAS: mover mira  ENTER: designar alvo  ESC: cancelar"
	}
	return "/: buscar  t: rota  m: mira  +/-: zoom  c: centralizar  o: offline  x: limpar  s: ajustes  q: sair"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
