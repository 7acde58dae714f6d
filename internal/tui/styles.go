package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "25", Dark: "75"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "244", Dark: "243"}
	colorError  = lipgloss.AdaptiveColor{Light: "160", Dark: "203"}
	colorOK     = lipgloss.AdaptiveColor{Light: "28", Dark: "114"}

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	selectedStyle = lipgloss.NewStyle().Bold(true)
	tagStyle      = lipgloss.NewStyle().Foreground(colorAccent)
	errorStyle    = lipgloss.NewStyle().Foreground(colorError)
	successStyle  = lipgloss.NewStyle().Foreground(colorOK)
	editBoxStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Faint(true)
)
