package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/SkothaSec/project-mimir/pkg/models"
)

var (
	colorPrimary   = lipgloss.Color("#00ffff")
	colorSuccess   = lipgloss.Color("#00ff00")
	colorWarning   = lipgloss.Color("#ffaa00")
	colorError     = lipgloss.Color("#ff0000")
	colorMuted     = lipgloss.Color("#666666")
	colorBorder    = lipgloss.Color("#3d5a80")
	colorSelection = lipgloss.Color("#000000")
)

type styles struct {
	title    lipgloss.Style
	subtitle lipgloss.Style
	errorBox lipgloss.Style
	muted    lipgloss.Style
	help     lipgloss.Style
	panel    lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Padding(0, 1),
		subtitle: lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true).
			MarginBottom(1),
		errorBox: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorError).
			Foreground(colorError).
			Bold(true).
			Padding(0, 1),
		muted: lipgloss.NewStyle().
			Foreground(colorMuted),
		help: lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder),
	}
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorBorder).
		BorderBottom(true).
		Bold(true).
		Foreground(colorPrimary)
	s.Selected = s.Selected.
		Foreground(colorSelection).
		Background(colorPrimary).
		Bold(true)
	return s
}

func severityStyle(s models.Severity) lipgloss.Style {
	switch s {
	case models.SeverityBenign:
		return lipgloss.NewStyle().Foreground(colorSuccess)
	case models.SeverityWarning:
		return lipgloss.NewStyle().Foreground(colorWarning)
	case models.SeverityMalicious:
		return lipgloss.NewStyle().Foreground(colorError).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(colorMuted)
	}
}
