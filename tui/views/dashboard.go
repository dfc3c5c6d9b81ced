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

// Column width constants (minimum widths).
const (
	colName     = 20
	colMAC      = 19
	colStatus   = 9
	colRx       = 10
	colTx       = 10
	colTotal    = 11
	colSparkMin = 12
)

// DashboardView is the main monitoring table showing every device the
// router has ever reported, online first.
type DashboardView struct {
	theme       styles.Theme
	sty         *styles.Styles
	snapshot    *engine.Snapshot
	rows        []engine.Device
	showOffline bool
	cursor      int
	width       int
	height      int
	offset      int // scroll offset for vertical scrolling
}

// NewDashboardView creates a new DashboardView with the given theme.
func NewDashboardView(theme styles.Theme) DashboardView {
	return DashboardView{
		theme:       theme,
		sty:         styles.NewStyles(theme),
		showOffline: true,
	}
}

// Update handles key messages for cursor navigation within the dashboard.
func (v DashboardView) Update(msg tea.Msg) (DashboardView, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.DefaultKeyMap.Up):
			if v.cursor > 0 {
				v.cursor--
				v.ensureVisible()
			}
		case key.Matches(msg, keys.DefaultKeyMap.Down):
			if v.cursor < len(v.rows)-1 {
				v.cursor++
				v.ensureVisible()
			}
		case key.Matches(msg, keys.DefaultKeyMap.Offline):
			v.showOffline = !v.showOffline
			v.rebuildRows()
		}
	}
	return v, nil
}

// SetSnapshot updates the dashboard data. It rebuilds the visible row list
// and clamps the cursor if needed.
func (v *DashboardView) SetSnapshot(snap *engine.Snapshot) {
	v.snapshot = snap
	v.rebuildRows()
}

// rebuildRows regenerates the display rows from the snapshot, online
// devices first, preserving identity order within each section.
func (v *DashboardView) rebuildRows() {
	v.rows = v.rows[:0]
	if v.snapshot != nil {
		for _, d := range v.snapshot.Devices {
			if d.Online {
				v.rows = append(v.rows, d)
			}
		}
		if v.showOffline {
			for _, d := range v.snapshot.Devices {
				if !d.Online {
					v.rows = append(v.rows, d)
				}
			}
		}
	}
	if v.cursor >= len(v.rows) && len(v.rows) > 0 {
		v.cursor = len(v.rows) - 1
	}
}

// SetSize updates the available dimensions for the view.
func (v *DashboardView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// SelectedDevice returns the device under the cursor, or nil.
func (v DashboardView) SelectedDevice() *engine.Device {
	if v.cursor < 0 || v.cursor >= len(v.rows) {
		return nil
	}
	d := v.rows[v.cursor]
	return &d
}

// View renders the dashboard view.
func (v DashboardView) View() string {
	if v.snapshot == nil || len(v.rows) == 0 {
		return v.renderEmpty()
	}
	return v.renderTable()
}

// ensureVisible adjusts the scroll offset so the cursor row is visible.
func (v *DashboardView) ensureVisible() {
	// Account for the table header row in available space.
	visible := v.height - 1
	if visible < 1 {
		visible = 1
	}
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+visible {
		v.offset = v.cursor - visible + 1
	}
}

// columnWidths calculates responsive column widths based on terminal width.
// The sparkline column gets all remaining space.
func (v DashboardView) columnWidths() (name, mac, status, rx, tx, total, spark int) {
	name = colName
	mac = colMAC
	status = colStatus
	rx = colRx
	tx = colTx
	total = colTotal

	fixed := name + mac + status + rx + tx + total
	spark = v.width - fixed
	if spark < colSparkMin {
		spark = colSparkMin
	}
	return
}

// renderTable renders the device table.
func (v DashboardView) renderTable() string {
	wName, wMAC, wStatus, wRx, wTx, wTotal, wSpark := v.columnWidths()

	var lines []string

	headerStyle := v.sty.TableHeader
	header := fmt.Sprintf(
		"%s%s%s%s%s%s%s",
		headerStyle.Render(padRight("Device", wName)),
		headerStyle.Render(padRight("MAC", wMAC)),
		headerStyle.Render(padRight("Status", wStatus)),
		headerStyle.Render(padLeft("RX", wRx)),
		headerStyle.Render(padLeft("TX", wTx)),
		headerStyle.Render(padLeft("Total", wTotal)),
		headerStyle.Render(padRight("Trend", wSpark)),
	)
	lines = append(lines, header)

	visible := v.height - 1
	if visible < 1 {
		visible = 1
	}
	start := v.offset
	if start > len(v.rows) {
		start = len(v.rows)
	}
	end := start + visible
	if end > len(v.rows) {
		end = len(v.rows)
	}

	for i := start; i < end; i++ {
		lines = append(lines, v.renderDeviceRow(
			v.rows[i],
			wName, wMAC, wStatus, wRx, wTx, wTotal, wSpark,
			i == v.cursor,
		))
	}

	return strings.Join(lines, "\n")
}

// renderDeviceRow renders a single device metrics row.
func (v DashboardView) renderDeviceRow(
	d engine.Device,
	wName, wMAC, wStatus, wRx, wTx, wTotal, wSpark int,
	selected bool,
) string {
	rowStyle := v.sty.TableRow
	if selected {
		rowStyle = v.sty.TableRowSel
	}

	name := rowStyle.Render(padRight(truncate(d.Name, wName-1), wName))

	macText := ""
	if len(d.MACs) > 0 {
		macText = d.MACs[0]
	}
	mac := rowStyle.Render(padRight(truncate(macText, wMAC-1), wMAC))

	var statusStr string
	if d.Online {
		st := v.sty.StatusUp
		if selected {
			st = st.Background(v.theme.Base02)
		}
		statusStr = st.Render(padRight("online", wStatus))
	} else {
		st := v.sty.StatusDown
		if selected {
			st = st.Background(v.theme.Base02)
		}
		statusStr = st.Render(padRight("offline", wStatus))
	}

	// Rates colored by how trustworthy they are this cycle.
	rateStyle := v.sty.RateValid
	switch d.RateValidity {
	case engine.ValidityValid:
		rateStyle = v.sty.RateValid
	case engine.ValidityReset:
		rateStyle = v.sty.RateReset
	default:
		rateStyle = v.sty.RateNone
	}
	if selected {
		rateStyle = rateStyle.Background(v.theme.Base02)
	}
	rxStr := rateStyle.Render(padLeft(components.FormatRate(d.RxRate), wRx))
	txStr := rateStyle.Render(padLeft(components.FormatRate(d.TxRate), wTx))

	totalStr := rowStyle.Render(padLeft(components.FormatBytes(d.RxBytesTotal+d.TxBytesTotal), wTotal))

	sparkData := extractSparkData(d.History, wSpark)
	sparkStr := components.Sparkline(sparkData, wSpark)
	sparkStyle := v.sty.SparklineStyle
	if selected {
		sparkStyle = sparkStyle.Background(v.theme.Base02)
	}
	sparkRendered := sparkStyle.Render(sparkStr)

	return fmt.Sprintf("%s%s%s%s%s%s%s",
		name, mac, statusStr, rxStr, txStr, totalStr, sparkRendered,
	)
}

// renderEmpty renders a centered message when no snapshot has arrived yet.
func (v DashboardView) renderEmpty() string {
	msgStyle := lipgloss.NewStyle().
		Foreground(v.theme.Base04).
		Align(lipgloss.Center)

	msg := lipgloss.JoinVertical(lipgloss.Center,
		"",
		msgStyle.Render("Waiting for the first poll cycle..."),
		"",
		msgStyle.Render("Check your config if this persists."),
		"",
	)

	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, msg)
}

// extractSparkData pulls rate values from the history ring buffer for
// sparkline rendering. Uses the larger of RX/TX per point.
func extractSparkData(history *engine.RingBuffer[engine.RatePoint], maxWidth int) []float64 {
	if history == nil {
		return nil
	}
	points := history.All()
	if len(points) == 0 {
		return nil
	}

	data := make([]float64, len(points))
	for i, p := range points {
		rate := p.RxRate
		if p.TxRate > rate {
			rate = p.TxRate
		}
		data[i] = rate
	}

	if len(data) > maxWidth {
		data = data[len(data)-maxWidth:]
	}
	return data
}

// padRight pads s with spaces on the right to the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// padLeft pads s with spaces on the left to the given width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// truncate shortens s to maxLen characters, adding an ellipsis if needed.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
