package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dumamon/internal/engine"
	"dumamon/tui/components"
	"dumamon/tui/keys"
	"dumamon/tui/styles"
)

// DetailView is a split-screen view showing device information at the top
// and RX/TX traffic charts at the bottom.
type DetailView struct {
	theme  styles.Theme
	sty    *styles.Styles
	device *engine.Device
	width  int
	height int
}

// NewDetailView creates a new DetailView with the given theme.
func NewDetailView(theme styles.Theme) DetailView {
	return DetailView{
		theme: theme,
		sty:   styles.NewStyles(theme),
	}
}

// SetDevice updates the detail view with new device data.
func (v *DetailView) SetDevice(d *engine.Device) {
	v.device = d
}

// DeviceID returns the identity of the device being shown, or "".
func (v DetailView) DeviceID() string {
	if v.device == nil {
		return ""
	}
	return v.device.ID
}

// SetSize updates the available dimensions for the view.
func (v *DetailView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// Update handles key messages for the detail view. The third return value
// indicates whether the user wants to go back (Esc pressed).
func (v DetailView) Update(msg tea.Msg) (DetailView, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.DefaultKeyMap.Escape):
			return v, nil, true
		}
	}
	return v, nil, false
}

// View renders the detail view with an info panel and traffic charts.
func (v DetailView) View() string {
	if v.device == nil {
		return v.renderEmpty()
	}
	return v.renderDetail()
}

// renderEmpty shows a placeholder when no device is selected.
func (v DetailView) renderEmpty() string {
	msg := lipgloss.NewStyle().
		Foreground(v.theme.Base04).
		Align(lipgloss.Center).
		Render("No device selected")
	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, msg)
}

// renderDetail renders the full split-screen detail view.
func (v DetailView) renderDetail() string {
	infoPanel := v.renderInfoPanel(v.device)

	infoPanelHeight := 11 // fixed info panel height
	chartHeight := v.height - infoPanelHeight
	if chartHeight < 6 {
		chartHeight = 6
	}
	chartWidth := (v.width - 3) / 2 // 3 chars for separator and padding
	if chartWidth < 15 {
		chartWidth = 15
	}

	rxData, txData := v.extractRateData()

	rxChart := components.RenderChart(rxData, chartWidth, chartHeight, "Download")
	txChart := components.RenderChart(txData, chartWidth, chartHeight, "Upload")

	rxChartStyled := lipgloss.NewStyle().
		Foreground(v.theme.Base0B). // green for download
		Render(rxChart)
	txChartStyled := lipgloss.NewStyle().
		Foreground(v.theme.Base0C). // cyan for upload
		Render(txChart)

	sep := lipgloss.NewStyle().
		Foreground(v.theme.Base03).
		Render(strings.Repeat(" | \n", chartHeight))
	chartsSection := lipgloss.JoinHorizontal(lipgloss.Top, rxChartStyled, sep, txChartStyled)

	helpLine := v.renderHelp()
	return lipgloss.JoinVertical(lipgloss.Left, infoPanel, "", chartsSection, helpLine)
}

// renderInfoPanel renders the device information section at the top.
func (v DetailView) renderInfoPanel(d *engine.Device) string {
	labelStyle := lipgloss.NewStyle().
		Foreground(v.theme.Base04).
		Width(16)
	valueStyle := lipgloss.NewStyle().
		Foreground(v.theme.Base05)
	highlightStyle := lipgloss.NewStyle().
		Foreground(v.theme.Base0D).
		Bold(true)

	statusStyle := lipgloss.NewStyle().Foreground(v.theme.Base08)
	statusText := "offline"
	if d.Online {
		statusStyle = lipgloss.NewStyle().Foreground(v.theme.Base0B)
		statusText = "online"
	}

	validityStyle := lipgloss.NewStyle().Foreground(v.theme.Base0B)
	switch d.RateValidity {
	case engine.ValidityReset:
		validityStyle = lipgloss.NewStyle().Foreground(v.theme.Base0A)
	case engine.ValidityNone, engine.ValidityBadInterval:
		validityStyle = lipgloss.NewStyle().Foreground(v.theme.Base04)
	}

	lastSeen := "never"
	if !d.LastSeen.IsZero() {
		lastSeen = d.LastSeen.Format("2006-01-02 15:04:05")
	}

	rows := []string{
		"",
		fmt.Sprintf("  %s%s",
			labelStyle.Render("Device:"),
			highlightStyle.Render(d.Name)),
		fmt.Sprintf("  %s%s",
			labelStyle.Render("Identity:"),
			valueStyle.Render(d.ID)),
		fmt.Sprintf("  %s%s",
			labelStyle.Render("MACs:"),
			valueStyle.Render(strings.Join(d.MACs, ", "))),
		fmt.Sprintf("  %s%s",
			labelStyle.Render("Status:"),
			statusStyle.Render(statusText)),
		fmt.Sprintf("  %s%s",
			labelStyle.Render("Last seen:"),
			valueStyle.Render(lastSeen)),
		fmt.Sprintf("  %s%s",
			labelStyle.Render("Download:"),
			valueStyle.Render(components.FormatRate(d.RxRate)+"/s")),
		fmt.Sprintf("  %s%s",
			labelStyle.Render("Upload:"),
			valueStyle.Render(components.FormatRate(d.TxRate)+"/s")),
		fmt.Sprintf("  %s%s",
			labelStyle.Render("Totals:"),
			valueStyle.Render(fmt.Sprintf("%s down, %s up",
				components.FormatBytes(d.RxBytesTotal),
				components.FormatBytes(d.TxBytesTotal)))),
		fmt.Sprintf("  %s%s",
			labelStyle.Render("Rate state:"),
			validityStyle.Render(d.RateValidity.String())),
	}

	return strings.Join(rows, "\n")
}

// renderHelp renders a help line at the bottom of the detail view.
func (v DetailView) renderHelp() string {
	helpStyle := lipgloss.NewStyle().Foreground(v.theme.Base04)
	keyStyle := lipgloss.NewStyle().Foreground(v.theme.Base0D).Bold(true)
	return helpStyle.Render(fmt.Sprintf("  %s to go back", keyStyle.Render("[esc]")))
}

// extractRateData pulls RX and TX rate slices from the device history.
func (v DetailView) extractRateData() (rxData, txData []float64) {
	if v.device == nil || v.device.History == nil {
		return nil, nil
	}

	points := v.device.History.All()
	if len(points) == 0 {
		return nil, nil
	}

	rxData = make([]float64, len(points))
	txData = make([]float64, len(points))
	for i, p := range points {
		rxData[i] = p.RxRate
		txData[i] = p.TxRate
	}
	return rxData, txData
}
