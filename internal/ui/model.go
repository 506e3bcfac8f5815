// ABOUTME: Bubbletea model for the heartbeat TUI
// ABOUTME: Defines display state, key handling and rendering
package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/lubdub/pkg/cycle"
	"github.com/harperreed/lubdub/pkg/heartbeat"
	"github.com/harperreed/lubdub/pkg/sync"
)

const (
	// glowTime is how long the heart stays lit after a beat
	glowTime  = 150 * time.Millisecond
	frameTime = 50 * time.Millisecond
	trackLen  = 48
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	lubStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	dubStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("204"))
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("52"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// Info describes the analysed clip
type Info struct {
	Name     string
	Timeline *heartbeat.Timeline
}

// Model represents the TUI state
type Model struct {
	info Info

	// Beats
	cycle    int64
	lastKind cycle.Kind
	lastBeat time.Time
	s1Count  int64
	s2Count  int64

	// Playback
	position time.Duration
	volume   int
	muted    bool

	// Sync
	syncQuality sync.Quality
	syncOffset  time.Duration
	drift       float64

	// Stats
	ticks   int64
	dropped int64
	clients int

	showDebug bool
	quitting  bool

	volumeCtrl *VolumeControl
	now        func() time.Time

	// Dimensions
	width  int
	height int
}

// BeatMsg carries a scheduler notification
type BeatMsg cycle.Notification

// CycleMsg carries a loop boundary
type CycleMsg int64

// StatusMsg updates playback and sync state
type StatusMsg struct {
	Position    time.Duration
	SyncQuality sync.Quality
	SyncOffset  time.Duration
	Drift       float64
	Ticks       int64
	Dropped     int64
	Clients     int
}

// VolumeChangeMsg is sent to the player when the user changes volume
type VolumeChangeMsg struct {
	Volume int
	Muted  bool
}

// QuitMsg is sent when the user quits
type QuitMsg struct{}

type frameMsg time.Time

func frame() tea.Cmd {
	return tea.Tick(frameTime, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Init starts the animation clock
func (m Model) Init() tea.Cmd {
	return frame()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case frameMsg:
		return m, frame()
	case BeatMsg:
		m.applyBeat(cycle.Notification(msg))
	case CycleMsg:
		m.cycle = int64(msg)
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// applyBeat records a notification
func (m *Model) applyBeat(n cycle.Notification) {
	m.lastKind = n.Kind
	m.lastBeat = m.now()
	m.cycle = n.CycleIndex
	switch n.Kind {
	case cycle.KindS1:
		m.s1Count++
	case cycle.KindS2:
		m.s2Count++
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	m.position = msg.Position
	m.syncQuality = msg.SyncQuality
	m.syncOffset = msg.SyncOffset
	m.drift = msg.Drift
	m.ticks = msg.Ticks
	m.dropped = msg.Dropped
	m.clients = msg.Clients
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.volumeCtrl != nil {
			select {
			case m.volumeCtrl.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "up":
		if m.volume < 100 {
			m.volume = min(m.volume+5, 100)
			m.sendVolume()
		}
	case "down":
		if m.volume > 0 {
			m.volume = max(m.volume-5, 0)
			m.sendVolume()
		}
	case "m":
		m.muted = !m.muted
		m.sendVolume()
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

func (m Model) sendVolume() {
	if m.volumeCtrl == nil {
		return
	}
	select {
	case m.volumeCtrl.Changes <- VolumeChangeMsg{Volume: m.volume, Muted: m.muted}:
	default:
	}
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("lubdub"))
	b.WriteString("  ")
	b.WriteString(valueStyle.Render(filepath.Base(m.info.Name)))
	b.WriteString("\n\n")

	b.WriteString(m.renderHeart())
	b.WriteString("\n\n")

	if tl := m.info.Timeline; tl != nil {
		b.WriteString(field("BPM", fmt.Sprintf("%.1f", tl.BPM())))
		b.WriteString(field("Events", fmt.Sprintf("%d (%d paired)", len(tl.Events), tl.Paired())))
		b.WriteString(field("Loop", tl.LoopDuration.Round(time.Millisecond).String()))
		b.WriteString(field("Cycle", fmt.Sprintf("%d", m.cycle)))
		b.WriteString("  ")
		b.WriteString(renderTrack(tl.Events, tl.LoopDuration, m.position, trackLen))
		b.WriteString("\n")
	}

	b.WriteString(field("Beats", fmt.Sprintf("S1 %d  S2 %d", m.s1Count, m.s2Count)))
	b.WriteString(field("Sync", syncText(m.syncQuality, m.syncOffset)))

	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}
	b.WriteString(field("Volume", fmt.Sprintf("[%s] %d%%%s", renderBar(m.volume, 100, 10), m.volume, muteIcon)))

	if m.clients > 0 {
		b.WriteString(field("Listeners", fmt.Sprintf("%d", m.clients)))
	}

	if m.showDebug {
		b.WriteString("\n")
		b.WriteString(m.renderDebug())
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓:Volume  m:Mute  d:Debug  q:Quit"))
	b.WriteString("\n")

	return b.String()
}

// renderHeart draws the pulsing heart and the sound just heard
func (m Model) renderHeart() string {
	if m.lastBeat.IsZero() || m.now().Sub(m.lastBeat) > glowTime {
		return "  " + idleStyle.Render("♥")
	}
	if m.lastKind == cycle.KindS2 {
		return "  " + dubStyle.Render("♥  DUB")
	}
	return "  " + lubStyle.Render("♥  LUB")
}

func (m Model) renderDebug() string {
	return fmt.Sprintf("  DEBUG: ticks=%d dropped=%d position=%v offset=%v drift=%+.4f%%\n",
		m.ticks, m.dropped, m.position.Round(time.Millisecond), m.syncOffset, m.drift*100)
}

func field(name, value string) string {
	return headerStyle.Render(fmt.Sprintf("  %-10s", name)) + valueStyle.Render(value) + "\n"
}

func syncText(q sync.Quality, offset time.Duration) string {
	switch q {
	case sync.QualityGood:
		return fmt.Sprintf("✓ locked (offset %+.1fms)", float64(offset)/float64(time.Millisecond))
	case sync.QualityDegraded:
		return "⚠ degraded"
	default:
		return "✗ lost"
	}
}

// renderTrack draws the loop with S1 marks, S2 marks and a playhead
func renderTrack(events []heartbeat.Event, loop, pos time.Duration, width int) string {
	if loop <= 0 || width <= 0 {
		return ""
	}

	cells := []rune(strings.Repeat("─", width))
	cell := func(t time.Duration) int {
		i := int(int64(t) * int64(width) / int64(loop))
		return min(max(i, 0), width-1)
	}

	for _, e := range events {
		if e.HasS2 {
			cells[cell(e.S2)] = '┆'
		}
		cells[cell(e.S1)] = '│'
	}
	cells[cell(pos)] = '●'

	return string(cells)
}

func renderBar(value, total, width int) string {
	filled := (value * width) / total
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}
