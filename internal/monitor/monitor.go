// Package monitor implements the live dashboard TUI using BubbleTea: value
// cards, braille charts redrawn at a fixed cadence, the device list and the
// activity log.
package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/iotsim/internal/chart"
	"github.com/luki/iotsim/internal/dashboard"
	"github.com/luki/iotsim/internal/history"
	"github.com/luki/iotsim/internal/sensor"
)

const (
	defaultRedraw = 200 * time.Millisecond
	chartRows     = 8
	logRows       = 6
	sparkWidth    = 24
)

// Options configures the dashboard TUI.
type Options struct {
	RedrawInterval time.Duration
	ExportDir      string
	ExportWidth    int
	ExportHeight   int
}

// ── Messages ─────────────────────────────────────────────────────────

type redrawMsg time.Time

type exportedMsg struct {
	paths []string
	err   error
}

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the live dashboard.
type Model struct {
	ctrl      *dashboard.Controller
	opts      Options
	help      help.Model
	log       viewport.Model
	logSeq    uint64
	status    string
	err       error
	width     int
	height    int
	startTime time.Time
}

// New creates the initial model over a built controller.
func New(ctrl *dashboard.Controller, opts Options) Model {
	if opts.RedrawInterval <= 0 {
		opts.RedrawInterval = defaultRedraw
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.ExportWidth <= 0 || opts.ExportHeight <= 0 {
		opts.ExportWidth, opts.ExportHeight = chart.ImageWidth, chart.ImageHeight
	}
	return Model{
		ctrl:      ctrl,
		opts:      opts,
		help:      help.New(),
		log:       viewport.New(40, logRows),
		startTime: time.Now(),
	}
}

// ── Commands ─────────────────────────────────────────────────────────

func redrawCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return redrawMsg(t)
	})
}

func (m Model) exportCmd() tea.Cmd {
	ctrl, opts := m.ctrl, m.opts
	return func() tea.Msg {
		paths, err := ctrl.Export(opts.ExportDir, opts.ExportWidth, opts.ExportHeight)
		return exportedMsg{paths: paths, err: err}
	}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return redrawCmd(m.opts.RedrawInterval)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.ctrl.Stop()
			return m, tea.Quit
		case key.Matches(msg, keys.Start):
			m.ctrl.Start()
			m.syncLog()
		case key.Matches(msg, keys.Stop):
			m.ctrl.Stop()
			m.syncLog()
		case key.Matches(msg, keys.ClearLog):
			m.ctrl.ClearLog()
			m.syncLog()
		case key.Matches(msg, keys.Export):
			m.status = "Exporting..."
			return m, m.exportCmd()
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, keys.Up), key.Matches(msg, keys.Down):
			var cmd tea.Cmd
			m.log, cmd = m.log.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.log.Width = max(m.contentWidth()-4, 10)
		m.syncLog()

	case redrawMsg:
		m.syncLog()
		return m, redrawCmd(m.opts.RedrawInterval)

	case exportedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
		} else {
			m.err = nil
			m.status = fmt.Sprintf("Exported %d files to %s", len(msg.paths), m.opts.ExportDir)
		}
	}

	return m, nil
}

// syncLog refreshes the log viewport, following the tail unless the user
// scrolled up.
func (m *Model) syncLog() {
	entries := m.ctrl.Log().Entries()
	var last uint64
	if len(entries) > 0 {
		last = entries[len(entries)-1].Seq
	}
	if last == m.logSeq && len(entries) > 0 {
		return
	}
	follow := m.log.AtBottom() || m.logSeq == 0
	m.logSeq = last

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	m.log.SetContent(strings.Join(lines, "\n"))
	if follow {
		m.log.GotoBottom()
	}
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorName     = lipgloss.Color("147")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorRunning  = lipgloss.Color("78")
	colorStopped  = lipgloss.Color("196")
	colorCrit     = lipgloss.Color("196")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) contentWidth() int {
	return max(m.width-2, 40)
}

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	width := m.contentWidth()
	var sections []string

	sections = append(sections, m.renderTitleBar(width))

	if m.err != nil {
		errBox := lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Width(width).
			Padding(0, 1).
			Render(fmt.Sprintf(" ERROR: %v", strings.TrimSpace(m.err.Error())))
		sections = append(sections, errBox)
	}

	sections = append(sections, m.renderCards(width))
	sections = append(sections, m.renderCharts(width))
	sections = append(sections, m.renderActivity(width))
	sections = append(sections, m.renderFooter(width))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("IOT SENSOR DASHBOARD")

	var statusParts []string

	state := m.ctrl.Status()
	stateColor := colorStopped
	if state == dashboard.Running {
		stateColor = colorRunning
	}
	statusParts = append(statusParts, lipgloss.NewStyle().
		Foreground(stateColor).
		Bold(true).
		Render(strings.ToUpper(state.String())))

	statusParts = append(statusParts, lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("%d devices", m.ctrl.DeviceCount())))

	statusParts = append(statusParts, lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("up %s", fmtDuration(time.Since(m.startTime)))))

	sep := lipgloss.NewStyle().Foreground(colorDim).Render(" │ ")
	right := strings.Join(statusParts, sep)

	gap := max(width-lipgloss.Width(logo)-lipgloss.Width(right)-4, 1)
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + filler + right)
}

func (m Model) renderCards(width int) string {
	specs := m.ctrl.Sensors()
	cardWidth := max(width/len(specs)-2, 30)

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))

	var cards []string
	for _, spec := range specs {
		title := lipgloss.NewStyle().Bold(true).Foreground(colorName).Render(spec.Label) +
			"  " + dimS.Render(spec.Device)

		value := dimS.Render("--")
		snap := m.ctrl.Snapshot(spec.ID)
		if len(snap) > 0 {
			value = chart.RenderValue(spec, snap[len(snap)-1].Value)
		}
		if err := m.ctrl.Err(spec.ID); err != nil {
			value = lipgloss.NewStyle().Foreground(colorCrit).Bold(true).Render("FAILED")
		}

		lo, hi := 0.0, 1.0
		if spec.Signal == sensor.Continuous && len(snap) > 0 {
			lo, hi = chart.Domain(snap)
		}
		spark := chart.Sparkline(spec.Signal, snap, min(sparkWidth, cardWidth-4), lo, hi)

		rows := []string{title, value, spark, renderStats(spec, history.Summarize(snap), dimS, valS)}
		cards = append(cards, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Width(cardWidth).
			Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func renderStats(spec sensor.Spec, st history.Stats, dimS, valS lipgloss.Style) string {
	if st.Count == 0 {
		return dimS.Render("no samples")
	}
	if spec.Signal == sensor.Binary {
		return dimS.Render("events") + valS.Render(fmt.Sprintf(" %d/%d", int(st.Avg*float64(st.Count)+0.5), st.Count))
	}
	return dimS.Render("avg") + valS.Render(fmt.Sprintf("%5.1f", st.Avg)) +
		dimS.Render(" lo") + valS.Render(fmt.Sprintf("%5.1f", st.Min)) +
		dimS.Render(" pk") + valS.Render(fmt.Sprintf("%5.1f", st.Peak))
}

func (m Model) renderCharts(width int) string {
	specs := m.ctrl.Sensors()
	side := width >= 100 && len(specs) > 1
	panelWidth := width
	if side {
		panelWidth = width / len(specs)
	}

	term := chart.Terminal{Cols: panelWidth - 4, Rows: chartRows}
	var panels []string
	for _, spec := range specs {
		f, _ := m.ctrl.Frame(spec.ID, term.Region())
		title := lipgloss.NewStyle().Bold(true).Foreground(colorLabel).Render(spec.Label + " history")
		panels = append(panels, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Width(panelWidth-2).
			Render(title+"\n"+term.Paint(f)))
	}
	if side {
		return lipgloss.JoinHorizontal(lipgloss.Top, panels...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, panels...)
}

func (m Model) renderActivity(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)

	devices := m.ctrl.Devices()
	devLine := dimS.Render("No devices connected.")
	if len(devices) > 0 {
		dot := lipgloss.NewStyle().Foreground(colorRunning).Render("●")
		parts := make([]string, len(devices))
		for i, d := range devices {
			parts[i] = dot + " " + d
		}
		devLine = strings.Join(parts, "   ")
	}

	head := lipgloss.NewStyle().Bold(true).Foreground(colorLabel).Render("Devices") + "  " + devLine
	body := lipgloss.JoinVertical(lipgloss.Left,
		head,
		lipgloss.NewStyle().Bold(true).Foreground(colorLabel).Render("Activity"),
		m.log.View())

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(body)
}

func (m Model) renderFooter(width int) string {
	left := m.help.View(keys)
	right := lipgloss.NewStyle().Foreground(colorDim).Render(m.status)

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right)-4, 1)
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(left + filler + right)
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
