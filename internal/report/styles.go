package report

import "github.com/charmbracelet/lipgloss"

var (
	primary = lipgloss.Color("205")
	subtle  = lipgloss.Color("240")
	success = lipgloss.Color("42")
	warning = lipgloss.Color("220")
	danger  = lipgloss.Color("196")
	muted   = lipgloss.Color("245")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primary)

	labelStyle = lipgloss.NewStyle().
			Foreground(muted).
			Width(18)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primary).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	numberStyle = cellStyle.
			Align(lipgloss.Right)

	helpStyle = lipgloss.NewStyle().
			Foreground(subtle)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtle).
			Padding(0, 1)
)

// complianceStyle colors a percent-in-range value.
func complianceStyle(percent float64) lipgloss.Style {
	switch {
	case percent >= 90:
		return lipgloss.NewStyle().Foreground(success)
	case percent >= 70:
		return lipgloss.NewStyle().Foreground(warning)
	default:
		return lipgloss.NewStyle().Foreground(danger).Bold(true)
	}
}
