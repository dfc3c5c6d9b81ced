package views

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"dumamon/tui/styles"
)

// HelpView renders a modal overlay showing all keyboard shortcuts.
type HelpView struct {
	theme   styles.Theme
	sty     *styles.Styles
	width   int
	height  int
	visible bool
}

// NewHelpView creates a new HelpView with the given theme.
func NewHelpView(theme styles.Theme) HelpView {
	return HelpView{
		theme: theme,
		sty:   styles.NewStyles(theme),
	}
}

// Toggle flips the help overlay visibility.
func (v *HelpView) Toggle() {
	v.visible = !v.visible
}

// IsVisible returns whether the help overlay is currently shown.
func (v HelpView) IsVisible() bool {
	return v.visible
}

// SetSize updates the available dimensions for the overlay.
func (v *HelpView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// View renders the help overlay as a centered modal box.
func (v HelpView) View() string {
	sectionStyle := lipgloss.NewStyle().
		Foreground(v.theme.Base0E).
		Bold(true)
	keyStyle := lipgloss.NewStyle().
		Foreground(v.theme.Base0D).
		Bold(true)
	descStyle := lipgloss.NewStyle().
		Foreground(v.theme.Base05)
	dimStyle := lipgloss.NewStyle().
		Foreground(v.theme.Base04)

	bindingLine := func(keys, desc string) string {
		return fmt.Sprintf("  %s  %s",
			keyStyle.Render(padRight(keys, 14)),
			descStyle.Render(desc),
		)
	}

	lines := []string{
		v.sty.ModalTitle.Render("Keyboard Shortcuts"),
		"",
		sectionStyle.Render("Global"),
		bindingLine("q / ctrl+c", "quit"),
		bindingLine("?", "toggle this help"),
		bindingLine("r", "router switcher"),
		bindingLine("tab", "next router"),
		"",
		sectionStyle.Render("Dashboard"),
		bindingLine("up/k, down/j", "move cursor"),
		bindingLine("enter", "device detail"),
		bindingLine("o", "show/hide offline devices"),
		"",
		sectionStyle.Render("Detail"),
		bindingLine("esc", "back to dashboard"),
		"",
		dimStyle.Render("  Press ? or esc to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	modal := v.sty.ModalBorder.Render(content)

	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, modal)
}
