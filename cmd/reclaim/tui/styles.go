// Package tui provides the interactive clean confirmation screen.
// It uses Charmbracelet's Bubble Tea, Lip Gloss and Bubbles.
package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Color palette for the TUI.
var (
	primaryColor = lipgloss.Color("#7D56F4")
	accentColor  = lipgloss.Color("#00D9FF")
	warningColor = lipgloss.Color("#FFC107")
	mutedColor   = lipgloss.Color("#666666")
	borderColor  = lipgloss.Color("#333333")
	highlight    = lipgloss.Color("#1A1A2E")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	mutedTextStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	sizeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	warningTextStyle = lipgloss.NewStyle().
				Foreground(warningColor)

	keyStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	keyDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	tableBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor)
)

// tableStyles returns the table styles for the item list.
func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		BorderBottom(true).
		Bold(true).
		Foreground(primaryColor)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(highlight).
		Bold(true)
	return s
}
