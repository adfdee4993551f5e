package hud

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/loc-v2/internal/controller"
)

// theme holds every style the views use for one color/filter combination.
type theme struct {
	accent  lipgloss.Color
	title   lipgloss.Style
	text    lipgloss.Style
	dim     lipgloss.Style
	help    lipgloss.Style
	border  lipgloss.Style
	alert   lipgloss.Style
	route   lipgloss.Style
	user    lipgloss.Style
	target  lipgloss.Style
	ring    lipgloss.Style
	masked  lipgloss.Style
	panel   lipgloss.Style
	cursor  lipgloss.Style
	warning lipgloss.Style
}

var accentColors = map[controller.HUDColor]lipgloss.Color{
	controller.ColorGreen:  lipgloss.Color("46"),
	controller.ColorBlue:   lipgloss.Color("39"),
	controller.ColorPurple: lipgloss.Color("135"),
	controller.ColorGold:   lipgloss.Color("220"),
}

func newTheme(s controller.Settings) theme {
	accent, ok := accentColors[s.HUDColor]
	if !ok {
		accent = accentColors[controller.ColorGreen]
	}

	text := lipgloss.Color("252")
	dim := lipgloss.Color("244")
	ring := lipgloss.Color("240")
	mask := lipgloss.Color("236")

	switch s.VisualFilter {
	case controller.FilterHighContrast:
		text = lipgloss.Color("231")
		dim = lipgloss.Color("250")
		ring = lipgloss.Color("248")
		mask = lipgloss.Color("238")
	case controller.FilterNightVision:
		accent = lipgloss.Color("46")
		text = lipgloss.Color("34")
		dim = lipgloss.Color("28")
		ring = lipgloss.Color("22")
		mask = lipgloss.Color("233")
	}

	return theme{
		accent:  accent,
		title:   lipgloss.NewStyle().Bold(true).Foreground(accent).Background(lipgloss.Color("235")).Padding(0, 1),
		text:    lipgloss.NewStyle().Foreground(text),
		dim:     lipgloss.NewStyle().Foreground(dim),
		help:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		border:  lipgloss.NewStyle().Foreground(ring),
		alert:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		route:   lipgloss.NewStyle().Foreground(accent).Bold(true),
		user:    lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
		target:  lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
		ring:    lipgloss.NewStyle().Foreground(ring),
		masked:  lipgloss.NewStyle().Foreground(mask),
		panel:   lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(accent).Padding(0, 1),
		cursor:  lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Bold(true),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
}
