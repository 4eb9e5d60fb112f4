package tui

import "github.com/charmbracelet/lipgloss"

var styles = newPalette("#7D56F4", "#04B575", "#FF5F87", "#626262")

// palette is a small stylesheet of named [lipgloss.Style] fields.
type palette struct {
	title   lipgloss.Style
	heading lipgloss.Style
	bullet  lipgloss.Style
	err     lipgloss.Style
	muted   lipgloss.Style
}

func newPalette(title, accent, errColor, muted string) palette {
	return palette{
		title:   lipgloss.NewStyle().Foreground(lipgloss.Color(title)).Bold(true).MarginBottom(1),
		heading: lipgloss.NewStyle().Foreground(lipgloss.Color(title)).Underline(true),
		bullet:  lipgloss.NewStyle().Foreground(lipgloss.Color(accent)),
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color(errColor)).Bold(true),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color(muted)).Italic(true),
	}
}
