// FILE: adminfeed/src/internal/tui/styles.go
package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#B4BEFE"))

	filterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6ADC8"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).Padding(1, 0, 0, 0)

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))

	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))

	inputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))

	badgeStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("#1E1E2E"))

	liveBadge         = badgeStyle.Background(lipgloss.Color("#A6E3A1"))
	reconnectingBadge = badgeStyle.Background(lipgloss.Color("#FAB387"))
	pollingBadge      = badgeStyle.Background(lipgloss.Color("#89B4FA"))
	pausedBadge       = badgeStyle.Background(lipgloss.Color("#585B70"))
	closedBadge       = badgeStyle.Background(lipgloss.Color("#F38BA8"))

	// Entry line parts
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	originStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#CBA6F7"))

	errorLogStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
	warningLogStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAB387"))
	infoLogStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#89B4FA"))
	debugLogStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	defaultLogStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#CDD6F4"))
)
