package tui

import (
	"github.com/charmbracelet/bubbles/v2/table"
	"github.com/charmbracelet/lipgloss/v2"
)

// Color constants matching vacuum EXACTLY
var (
	RGBBlue       = lipgloss.Color("45")
	RGBPink       = lipgloss.Color("201")
	RGBRed        = lipgloss.Color("196")
	RGBYellow     = lipgloss.Color("220")
	RGBGreen      = lipgloss.Color("46")
	RGBGrey       = lipgloss.Color("246")
	RGBSubtlePink = lipgloss.Color("#2a1a2a")
)

// General styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(RGBPink)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(RGBGrey)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(RGBBlue)

	MetricValueStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(RGBGreen)

	MetricUnavailableStyle = lipgloss.NewStyle().
				Foreground(RGBRed)

	BorderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(RGBBlue)

	HelpStyle = lipgloss.NewStyle().
			Foreground(RGBGrey)
)

// tableStyles returns the table chrome shared by both panes.
func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		Bold(true).
		Foreground(RGBBlue).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(RGBGrey).
		BorderBottom(true)
	s.Selected = s.Selected.
		Background(RGBSubtlePink).
		Foreground(RGBPink)
	return s
}
