// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and feeds it scheduler notifications
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/lubdub/pkg/cycle"
	"github.com/harperreed/lubdub/pkg/sync"
)

// VolumeControl holds channels for volume control communication
type VolumeControl struct {
	Changes chan VolumeChangeMsg
	Quit    chan QuitMsg
}

// NewVolumeControl creates a new volume control handler
func NewVolumeControl() *VolumeControl {
	return &VolumeControl{
		Changes: make(chan VolumeChangeMsg, 10),
		Quit:    make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(info Info, volume int, volCtrl *VolumeControl) Model {
	return Model{
		info:        info,
		volume:      volume,
		syncQuality: sync.QualityLost,
		volumeCtrl:  volCtrl,
		now:         time.Now,
	}
}

// TUI runs the program and implements cycle.Sink and cycle.CycleObserver
type TUI struct {
	program *tea.Program
	updates chan tea.Msg
	done    chan struct{}
}

// New creates a TUI for the analysed clip
func New(info Info, volume int, volCtrl *VolumeControl) *TUI {
	return &TUI{
		program: tea.NewProgram(NewModel(info, volume, volCtrl), tea.WithAltScreen()),
		updates: make(chan tea.Msg, 64),
		done:    make(chan struct{}),
	}
}

// Run blocks until the user quits or Stop is called
func (t *TUI) Run() error {
	go func() {
		for {
			select {
			case msg := <-t.updates:
				t.program.Send(msg)
			case <-t.done:
				return
			}
		}
	}()

	_, err := t.program.Run()
	close(t.done)
	return err
}

// Notify forwards a beat without blocking
func (t *TUI) Notify(n cycle.Notification) {
	t.send(BeatMsg(n))
}

// CycleStarted forwards a loop boundary without blocking
func (t *TUI) CycleStarted(index int64) {
	t.send(CycleMsg(index))
}

// Update sends a status update to the TUI
func (t *TUI) Update(status StatusMsg) {
	t.send(status)
}

func (t *TUI) send(msg tea.Msg) {
	select {
	case t.updates <- msg:
	default:
		// Don't block the scheduler if the UI is behind
	}
}

// Stop stops the TUI
func (t *TUI) Stop() {
	t.program.Quit()
}
