package views

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dumamon/internal/engine"
	"dumamon/tui/keys"
	"dumamon/tui/styles"
)

// SwitcherView is a modal list for switching between monitored routers.
type SwitcherView struct {
	theme   styles.Theme
	sty     *styles.Styles
	routers []engine.Info
	cursor  int
	width   int
	height  int
}

// NewSwitcherView creates a new SwitcherView with the given theme.
func NewSwitcherView(theme styles.Theme) SwitcherView {
	return SwitcherView{
		theme: theme,
		sty:   styles.NewStyles(theme),
	}
}

// SetRouters updates the list of routers, keeping the cursor in range.
func (v *SwitcherView) SetRouters(routers []engine.Info) {
	v.routers = routers
	if v.cursor >= len(routers) && len(routers) > 0 {
		v.cursor = len(routers) - 1
	}
}

// SetSize updates the available dimensions for the view.
func (v *SwitcherView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// Update handles key messages. The returned name is non-empty when the
// user picked a router; done is true when the modal should close.
func (v SwitcherView) Update(msg tea.Msg) (SwitcherView, string, bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.DefaultKeyMap.Up):
			if v.cursor > 0 {
				v.cursor--
			}
		case key.Matches(msg, keys.DefaultKeyMap.Down):
			if v.cursor < len(v.routers)-1 {
				v.cursor++
			}
		case key.Matches(msg, keys.DefaultKeyMap.Enter):
			if v.cursor < len(v.routers) {
				return v, v.routers[v.cursor].Name, true
			}
			return v, "", true
		case key.Matches(msg, keys.DefaultKeyMap.Escape):
			return v, "", true
		}
	}
	return v, "", false
}

// View renders the switcher as a centered modal box.
func (v SwitcherView) View() string {
	title := v.sty.ModalTitle.Render("Routers")

	var lines []string
	lines = append(lines, title, "")

	if len(v.routers) == 0 {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(v.theme.Base04).
			Render("No routers configured."))
	}

	for i, rt := range v.routers {
		nameStyle := v.sty.RouterName
		stateStyle := v.sty.RouterState
		prefix := "  "
		if i == v.cursor {
			prefix = "> "
			nameStyle = nameStyle.Background(v.theme.Base02)
			stateStyle = stateStyle.Background(v.theme.Base02)
		}

		last := "no cycles yet"
		if !rt.LastCycle.IsZero() {
			last = fmt.Sprintf("last cycle %s ago", time.Since(rt.LastCycle).Round(time.Second))
		}
		state := fmt.Sprintf("%d cycles, %d errors, %s", rt.CycleCount, rt.ErrorCount, last)

		lines = append(lines, fmt.Sprintf("%s%s  %s",
			prefix,
			nameStyle.Render(padRight(rt.Name, 20)),
			stateStyle.Render(state),
		))
	}

	lines = append(lines, "", lipgloss.NewStyle().
		Foreground(v.theme.Base04).
		Render("enter: select   esc: close"))

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	modal := v.sty.ModalBorder.Render(content)

	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, modal)
}
