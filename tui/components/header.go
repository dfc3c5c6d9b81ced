package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"dumamon/tui/styles"
)

// RenderHeader renders the top header bar with app name, router name,
// live/offline status, and online device count.
func RenderHeader(theme styles.Theme, routerName string, reachable bool, onlineCount, totalCount, width int) string {
	left := lipgloss.NewStyle().
		Foreground(theme.Base0D).
		Background(theme.Base01).
		Bold(true).
		Render("dumamon")

	displayName := routerName
	if displayName == "" {
		displayName = "(no router)"
	}
	center := lipgloss.NewStyle().
		Foreground(theme.Base05).
		Background(theme.Base01).
		Render(displayName)

	status := "UNREACHABLE"
	statusColor := theme.Base08
	if reachable {
		status = "LIVE"
		statusColor = theme.Base0B
	}
	right := lipgloss.NewStyle().
		Foreground(statusColor).
		Background(theme.Base01).
		Render(status)

	devices := lipgloss.NewStyle().
		Foreground(theme.Base04).
		Background(theme.Base01).
		Render(fmt.Sprintf("%d/%d online", onlineCount, totalCount))

	content := fmt.Sprintf(" %s  |  %s  |  %s  |  %s ", left, center, right, devices)

	return lipgloss.NewStyle().
		Background(theme.Base01).
		Width(width).
		Render(content)
}
