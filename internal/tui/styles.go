package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	primaryColor   = lipgloss.Color("#A78BFA") // Purple
	secondaryColor = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#F87171") // Red
	mutedColor     = lipgloss.Color("#9CA3AF") // Gray
	textColor      = lipgloss.Color("#F9FAFB") // Light text
	borderColor    = lipgloss.Color("#6B7280") // Gray
	stuckColor     = lipgloss.Color("#FB923C") // Orange

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	textStyle    = lipgloss.NewStyle().Foreground(textColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	stuckStyle   = lipgloss.NewStyle().Foreground(stuckColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(labelWidth)

	rareStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Background(secondaryColor).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)
