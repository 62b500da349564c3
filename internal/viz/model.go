package viz

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/marsvis/internal/scheduler"
	"github.com/san-kum/marsvis/internal/state"
)

const (
	defaultWidth  = 100
	defaultHeight = 30
	statsWidth    = 45
	fpsHistoryCap = 120
	minCanvasW    = 10
	minCanvasH    = 5
)

const waitingText = "Waiting for simulation to start..."

// Controls are the four rate adjustments the keyboard drives.
type Controls interface {
	IncreaseRenderRate() int
	DecreaseRenderRate() int
	IncreaseIngestPacing() int
	DecreaseIngestPacing() int
}

// pacingMsg reports the pacing value after an adjustment.
type pacingMsg struct{ ms int }

// frameMsg carries an already rasterized frame, so the bubbletea loop
// never sees the snapshot itself.
type frameMsg struct {
	canvas     string
	stats      scheduler.Stats
	progress   state.Progress
	entities   int
	geometries int
	cells      int
}

type waitingMsg struct {
	stats scheduler.Stats
}

// canvasSize is written by the bubbletea loop on resize and read by the
// render goroutine when it allocates a canvas.
type canvasSize struct {
	w, h atomic.Int32
}

func newCanvasSize() *canvasSize {
	s := &canvasSize{}
	s.fit(defaultWidth, defaultHeight)
	return s
}

func (s *canvasSize) fit(width, height int) {
	w := width - statsWidth - 4
	h := height - 3
	if w < minCanvasW {
		w = minCanvasW
	}
	if h < minCanvasH {
		h = minCanvasH
	}
	s.w.Store(int32(w))
	s.h.Store(int32(h))
}

func (s *canvasSize) get() (int, int) {
	return int(s.w.Load()), int(s.h.Load())
}

type Model struct {
	controls Controls
	address  string
	size     *canvasSize
	keys     keyMap
	help     help.Model

	width, height int
	showHelp      bool
	hasFrame      bool
	waiting       bool

	latest     frameMsg
	stats      scheduler.Stats
	fpsHistory []float64
}

func NewModel(controls Controls, address string) Model {
	return Model{
		controls: controls,
		address:  address,
		size:     newCanvasSize(),
		keys:     keys,
		help:     help.New(),
		width:    defaultWidth,
		height:   defaultHeight,
		waiting:  true,
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.size.fit(msg.Width, msg.Height)
		m.help.Width = msg.Width
	case tea.KeyMsg:
		return m.handleKey(msg)
	case frameMsg:
		m.latest = msg
		m.stats = msg.stats
		m.hasFrame = true
		m.waiting = false
		m.fpsHistory = append(m.fpsHistory, msg.stats.MeasuredFPS)
		if len(m.fpsHistory) > fpsHistoryCap {
			m.fpsHistory = m.fpsHistory[len(m.fpsHistory)-fpsHistoryCap:]
		}
	case waitingMsg:
		m.stats = msg.stats
		m.waiting = true
	case pacingMsg:
		m.stats.PacingMs = msg.ms
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	case key.Matches(msg, m.keys.FasterRender):
		m.stats.DesiredFPS = m.controls.IncreaseRenderRate()
	case key.Matches(msg, m.keys.SlowerRender):
		m.stats.DesiredFPS = m.controls.DecreaseRenderRate()
	case key.Matches(msg, m.keys.MorePacing):
		return m, pacingCmd(m.controls.IncreaseIngestPacing)
	case key.Matches(msg, m.keys.LessPacing):
		return m, pacingCmd(m.controls.DecreaseIngestPacing)
	}
	return m, nil
}

// pacingCmd runs a pacing adjustment off the update loop, since it may
// write to the connection.
func pacingCmd(adjust func() int) tea.Cmd {
	return func() tea.Msg {
		return pacingMsg{ms: adjust()}
	}
}

func (m Model) View() string {
	helpView := m.help.View(m.keys)
	if m.waiting || !m.hasFrame {
		return lipgloss.JoinVertical(lipgloss.Left, m.waitingView(), "", helpView)
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(m.latest.canvas),
		statsStyle.Render(m.statsView()))
	return lipgloss.JoinVertical(lipgloss.Left, body, helpView)
}

func (m Model) waitingView() string {
	var s strings.Builder
	s.WriteString(waitingStyle.Render(waitingText) + "\n\n")
	s.WriteString(row("Address", m.address))
	s.WriteString(row("Link", connectionBadge(m.stats.Connected)))
	s.WriteString(row("Render", fmt.Sprintf("%d Hz", m.stats.DesiredFPS)))
	s.WriteString(row("Pacing", fmt.Sprintf("%d ms", m.stats.PacingMs)))
	return lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, s.String())
}

func (m Model) statsView() string {
	f := m.latest
	var s strings.Builder
	s.WriteString(headerStyle.Render("SIMULATION") + "\n")
	s.WriteString(row("Link", connectionBadge(m.stats.Connected)))
	s.WriteString(row("Tick", fmt.Sprintf("%d / %d", f.progress.CurrentTick, f.progress.MaxTicks)))
	s.WriteString(ProgressBar(f.progress.Fraction(), 28) + "\n\n")
	s.WriteString(row("FPS", fmt.Sprintf("%.1f / %d", m.stats.MeasuredFPS, m.stats.DesiredFPS)))
	s.WriteString(row("Pacing", fmt.Sprintf("%d ms", m.stats.PacingMs)))
	s.WriteString(row("Messages", fmt.Sprintf("%d", m.stats.Messages)))
	s.WriteString(row("Entities", fmt.Sprintf("%d", f.entities)))
	s.WriteString(row("Geometries", fmt.Sprintf("%d", f.geometries)))
	s.WriteString(row("Cells", fmt.Sprintf("%d", f.cells)))
	if len(m.fpsHistory) > 1 {
		chart := asciigraph.Plot(m.fpsHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("FPS"))
		s.WriteString(graphStyle.Render(chart))
	}
	return s.String()
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}
