package viewer

import "github.com/charmbracelet/lipgloss"

// Component color scheme - each message kind has a distinct, consistent color.
var (
	// Structural / metadata
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // Gray - timestamps, metadata

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // Gray - labels

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")) // White - values

	// Message roles
	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")) // Yellow - system events

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")) // White - assistant turns

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")) // Cyan - user turns

	// Tools - Blue, MCP tools - Orange
	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")) // Blue

	mcpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")) // Orange

	// Outcomes
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")) // Green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")) // Red

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")) // Yellow

	// Timeline
	seqStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Width(5).
			Align(lipgloss.Right)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	// Pager chrome
	pagerTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	pagerInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	pagerHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	liveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10")) // Green - live indicator
)
