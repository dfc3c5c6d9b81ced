package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dumamon/internal/config"
	"dumamon/internal/engine"
	"dumamon/tui/components"
	"dumamon/tui/keys"
	"dumamon/tui/styles"
	"dumamon/tui/views"
)

// AppState represents the current screen/view of the application.
type AppState int

const (
	StateDashboard AppState = iota
	StateDetail
	StateSwitcher
)

// TickMsg triggers a periodic UI refresh to pick up new poll data.
type TickMsg struct{}

// AppModel is the root Bubble Tea model that manages all views and state.
type AppModel struct {
	state        AppState
	theme        styles.Theme
	config       *config.Config
	manager      *engine.Manager
	dashboard    views.DashboardView
	detail       views.DetailView
	switcher     views.SwitcherView
	help         views.HelpView
	width        int
	height       int
	activeRouter string
}

// NewAppModel creates a new AppModel with the given config and engine
// manager. An empty themeOverride uses the configured theme.
func NewAppModel(cfg *config.Config, mgr *engine.Manager, themeOverride string) AppModel {
	theme := styles.DefaultTheme
	if t := styles.GetThemeByName(cfg.Theme); t != nil {
		theme = *t
	}
	if t := styles.GetThemeByName(themeOverride); t != nil {
		theme = *t
	}

	active := ""
	if names := mgr.Names(); len(names) > 0 {
		active = names[0]
	}

	return AppModel{
		state:        StateDashboard,
		theme:        theme,
		config:       cfg,
		manager:      mgr,
		dashboard:    views.NewDashboardView(theme),
		detail:       views.NewDetailView(theme),
		switcher:     views.NewSwitcherView(theme),
		help:         views.NewHelpView(theme),
		activeRouter: active,
	}
}

// Init returns the initial command to start the tick loop.
func (m AppModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and dispatches to the active view.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Body height = total - 1 (header) - 2 (status bar lines)
		bodyHeight := msg.Height - 3
		m.dashboard.SetSize(msg.Width, bodyHeight)
		m.detail.SetSize(msg.Width, bodyHeight)
		m.switcher.SetSize(msg.Width, bodyHeight)
		m.help.SetSize(msg.Width, bodyHeight)
		return m, nil

	case TickMsg:
		m.refresh()
		return m, tickCmd()

	case tea.KeyMsg:
		// Global key bindings
		switch {
		case key.Matches(msg, keys.DefaultKeyMap.Quit):
			m.manager.StopAll()
			return m, tea.Quit
		case key.Matches(msg, keys.DefaultKeyMap.Help):
			m.help.Toggle()
			return m, nil
		case key.Matches(msg, keys.DefaultKeyMap.Tab):
			m.cycleRouter()
			return m, nil
		}

		if m.help.IsVisible() {
			if key.Matches(msg, keys.DefaultKeyMap.Escape) {
				m.help.Toggle()
			}
			return m, nil
		}

		// State-specific key handling
		switch m.state {
		case StateDashboard:
			switch {
			case key.Matches(msg, keys.DefaultKeyMap.Enter):
				if d := m.dashboard.SelectedDevice(); d != nil {
					m.detail.SetDevice(d)
					m.state = StateDetail
				}
				return m, nil
			case key.Matches(msg, keys.DefaultKeyMap.Routers):
				m.switcher.SetRouters(m.manager.List())
				m.state = StateSwitcher
				return m, nil
			}
			var cmd tea.Cmd
			m.dashboard, cmd = m.dashboard.Update(msg)
			return m, cmd

		case StateDetail:
			var cmd tea.Cmd
			var back bool
			m.detail, cmd, back = m.detail.Update(msg)
			if back {
				m.state = StateDashboard
			}
			return m, cmd

		case StateSwitcher:
			var picked string
			var done bool
			m.switcher, picked, done = m.switcher.Update(msg)
			if picked != "" {
				m.activeRouter = picked
				m.refresh()
			}
			if done {
				m.state = StateDashboard
			}
			return m, nil
		}
	}
	return m, nil
}

// refresh pulls the latest snapshot for the active router into the views.
func (m *AppModel) refresh() {
	if m.activeRouter == "" {
		return
	}
	snap, err := m.manager.GetSnapshot(m.activeRouter)
	if err != nil || snap == nil {
		return
	}
	m.dashboard.SetSnapshot(snap)

	// Keep the detail view tracking its device across cycles.
	if id := m.detail.DeviceID(); id != "" {
		for i := range snap.Devices {
			if snap.Devices[i].ID == id {
				m.detail.SetDevice(&snap.Devices[i])
				break
			}
		}
	}

	if m.state == StateSwitcher {
		m.switcher.SetRouters(m.manager.List())
	}
}

// cycleRouter advances the active router to the next configured one.
func (m *AppModel) cycleRouter() {
	names := m.manager.Names()
	if len(names) < 2 {
		return
	}
	for i, n := range names {
		if n == m.activeRouter {
			m.activeRouter = names[(i+1)%len(names)]
			m.refresh()
			return
		}
	}
	m.activeRouter = names[0]
	m.refresh()
}

// View renders the full application UI by composing header, body, and status.
func (m AppModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var snap *engine.Snapshot
	if m.activeRouter != "" {
		if s, err := m.manager.GetSnapshot(m.activeRouter); err == nil {
			snap = s
		}
	}

	// Header bar
	reachable := false
	online, total := 0, 0
	if snap != nil {
		reachable = !snap.LastSuccess.Devices.IsZero()
		total = len(snap.Devices)
		for _, d := range snap.Devices {
			if d.Online {
				online++
			}
		}
	}
	header := components.RenderHeader(m.theme, m.activeRouter, reachable, online, total, m.width)

	// Body content based on current state
	var body string
	switch m.state {
	case StateDashboard:
		body = m.dashboard.View()
	case StateDetail:
		body = m.detail.View()
	case StateSwitcher:
		body = m.switcher.View()
	default:
		body = "View not implemented"
	}

	if m.help.IsVisible() {
		body = m.help.View()
	}

	// Gather status bar metrics
	var lastCycle time.Time
	var interval time.Duration
	cycleCount, errorCount := 0, 0
	if snap != nil {
		lastCycle = snap.LastCycle
	}
	interval = m.config.PollInterval
	for _, info := range m.manager.List() {
		if info.Name == m.activeRouter {
			cycleCount = info.CycleCount
			errorCount = info.ErrorCount
			break
		}
	}

	statusBar := components.RenderStatusBar(m.theme, interval, lastCycle, cycleCount, errorCount, m.width)

	// Fill body to the available height between header and status bar
	bodyHeight := m.height - 1 - 2 // 1 header line, 2 status bar lines
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	bodyStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(bodyHeight).
		Background(m.theme.Base00).
		Foreground(m.theme.Base05)

	return lipgloss.JoinVertical(lipgloss.Left, header, bodyStyle.Render(body), statusBar)
}
