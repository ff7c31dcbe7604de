package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
)

//nolint:gochecknoglobals // Styles are immutable after initialization.
var (
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	alarmPanelStyle = panelStyle.
			BorderForeground(errorColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(12)

	distanceStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(fgColor)

	conditionStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	messageStyle = lipgloss.NewStyle().
			Foreground(successColor)

	badgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(fgColor).
			Padding(0, 1)
)

func stateBadge(state geofence.SessionState) string {
	color := mutedColor

	switch state {
	case geofence.StateIdle:
	case geofence.StateArmed:
		color = successColor
	case geofence.StateTriggered:
		color = errorColor
	case geofence.StateSnoozed:
		color = warningColor
	}

	return badgeStyle.Background(color).Render(state.String())
}
