package main

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("#74c7ec")
	colorGood   = lipgloss.Color("#a6e3a1")
	colorWarn   = lipgloss.Color("#fab387")
	colorBad    = lipgloss.Color("#f38ba8")
	colorMuted  = lipgloss.Color("#a6adc8")

	styleTitle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	styleLabel = lipgloss.NewStyle().Foreground(colorMuted).Width(16)
	styleMuted = lipgloss.NewStyle().Foreground(colorMuted)
	styleGood  = lipgloss.NewStyle().Foreground(colorGood).Bold(true)
	styleWarn  = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	styleBad   = lipgloss.NewStyle().Foreground(colorBad).Bold(true)

	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)

// row renders one "label value" line.
func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, styleLabel.Render(label), value)
}

// panel stacks rows under a title inside a rounded border.
func panel(title string, rows ...string) string {
	body := append([]string{styleTitle.Render(title)}, rows...)
	return stylePanel.Render(lipgloss.JoinVertical(lipgloss.Left, body...))
}

// scoreStyle colours a 0-100 score.
func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 80:
		return styleGood
	case score >= 50:
		return styleWarn
	default:
		return styleBad
	}
}
