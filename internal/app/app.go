// ABOUTME: Main lubdub application orchestration
// ABOUTME: Analyzes the clip, starts playback and drives the sinks from the scheduler
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/harperreed/lubdub/internal/config"
	"github.com/harperreed/lubdub/internal/gpio"
	"github.com/harperreed/lubdub/internal/server"
	"github.com/harperreed/lubdub/internal/stream"
	"github.com/harperreed/lubdub/internal/ui"
	"github.com/harperreed/lubdub/pkg/audio"
	"github.com/harperreed/lubdub/pkg/audio/decode"
	"github.com/harperreed/lubdub/pkg/audio/output"
	"github.com/harperreed/lubdub/pkg/cycle"
	"github.com/harperreed/lubdub/pkg/heartbeat"
	"github.com/harperreed/lubdub/pkg/protocol"
	"github.com/harperreed/lubdub/pkg/sync"
)

const statusInterval = 100 * time.Millisecond

// App represents the running heartbeat player
type App struct {
	config *config.Config
	out    io.Writer

	loop    time.Duration
	player  output.Player
	clock   *sync.PlaybackClock
	sched   *cycle.Scheduler
	server  *server.Server
	tui     *ui.TUI
	volCtrl *ui.VolumeControl

	cleanups []func()
}

// New creates an app. Console notifications go to out when the TUI is off.
func New(cfg *config.Config, out io.Writer) *App {
	return &App{
		config:  cfg,
		out:     out,
		volCtrl: ui.NewVolumeControl(),
	}
}

// Analyze decodes the configured file and detects its S1/S2 events. The
// returned clip is for playback; analysis runs at the configured rate.
func Analyze(cfg *config.Config) (*audio.Clip, *heartbeat.Timeline, error) {
	clip, err := decode.File(cfg.Audio, 0)
	if err != nil {
		return nil, nil, err
	}

	analyzer, err := heartbeat.NewAnalyzer(cfg.Analysis)
	if err != nil {
		return nil, nil, err
	}

	analysed := clip.Resampled(cfg.SampleRate)
	tl, err := analyzer.Analyze(analysed.Mono(), analysed.Format.SampleRate)
	if err != nil {
		return nil, nil, fmt.Errorf("analysis failed: %w", err)
	}

	for i, e := range tl.Events {
		log.Printf("Event %d: %s", i, e)
	}
	return clip, tl, nil
}

// Run plays the clip and notifies sinks until ctx ends, the user quits, or
// a non-looping clip finishes
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	clip, tl, err := Analyze(a.config)
	if err != nil {
		return err
	}

	a.loop = tl.LoopDuration
	if err := a.openPlayer(clip); err != nil {
		return err
	}

	sinks, err := a.openSinks(tl)
	if err != nil {
		return err
	}

	a.sched, err = cycle.NewScheduler(tl.Events, tl.LoopDuration, a.config.SchedulerOptions(sinks))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.player.Play(a.config.Loop); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}

	schedErr := make(chan error, 1)
	go func() {
		schedErr <- a.sched.Run(ctx, cycle.ElapsedFunc(a.elapsed))
	}()

	if !a.config.Loop {
		go a.watchPlayback(ctx, cancel)
	}
	go a.handleControls(ctx, cancel)

	if a.tui != nil {
		go a.statusLoop(ctx)
		go func() {
			<-ctx.Done()
			a.tui.Stop()
		}()

		if err := a.tui.Run(); err != nil {
			log.Printf("TUI error: %v", err)
		}
		cancel()
	} else {
		<-ctx.Done()
	}

	a.sched.Stop()
	err = <-schedErr

	stats := a.sched.Stats()
	log.Printf("Stopped after %d cycles: %d notifications, %d ticks", stats.Cycles, stats.Fired, stats.Ticks)
	return err
}

// elapsed is the scheduler's time source, delayed by the output latency.
// A clip played once never reaches the next cycle.
func (a *App) elapsed() time.Duration {
	e := a.clock.Elapsed() - a.config.Latency
	if e < 0 {
		return 0
	}
	if !a.config.Loop && a.loop > 0 && e >= a.loop {
		return a.loop - 1
	}
	return e
}

// openPlayer prefers the audio device and falls back to the wall clock
func (a *App) openPlayer(clip *audio.Clip) error {
	if !a.config.NoAudio {
		oto := output.NewOto()
		err := oto.Load(clip)
		if err == nil {
			a.setPlayer(oto)
			return nil
		}
		log.Printf("Audio output unavailable, running silent: %v", err)
		oto.Close()
	}

	silent := output.NewSilent()
	if err := silent.Load(clip); err != nil {
		return fmt.Errorf("failed to load clip: %w", err)
	}
	a.setPlayer(silent)
	return nil
}

func (a *App) setPlayer(p output.Player) {
	a.player = p
	a.clock = sync.NewPlaybackClock(p)
	if v, ok := p.(output.Volume); ok {
		v.SetVolume(a.config.Volume)
	}
	a.cleanups = append(a.cleanups, func() { p.Close() })
}

// openSinks builds the notification fan-out from the configuration
func (a *App) openSinks(tl *heartbeat.Timeline) (cycle.MultiSink, error) {
	var sinks cycle.MultiSink

	if a.config.NoTUI {
		sinks = append(sinks, cycle.NewWriterSink(a.out, true))
	} else {
		a.tui = ui.New(ui.Info{Name: a.config.Audio, Timeline: tl}, a.config.Volume, a.volCtrl)
		sinks = append(sinks, a.tui)
	}

	if a.config.ServePort > 0 {
		a.server = server.New(server.Config{
			Port:       a.config.ServePort,
			Name:       a.config.ServeName,
			EnableMDNS: a.config.MDNS,
			Debug:      a.config.Debug,
		}, protocol.NewTimeline(tl))

		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := a.server.Start(); err != nil {
				log.Printf("Beat server failed: %v", err)
			}
		}()
		a.cleanups = append(a.cleanups, func() {
			a.server.Stop()
			<-done
		})
		sinks = append(sinks, a.server)
	}

	if a.config.NATSURL != "" {
		nc, err := stream.Connect(a.config.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Printf("Publishing beats to %s on %s.*", a.config.NATSURL, a.config.NATSSubject)
		a.cleanups = append(a.cleanups, func() { nc.Drain() })
		sinks = append(sinks, stream.NewSink(nc, a.config.NATSSubject))
	}

	if a.config.GPIOPin >= 0 {
		led, err := gpio.Open(a.config.GPIO())
		if err != nil {
			return nil, err
		}
		a.cleanups = append(a.cleanups, func() { led.Close() })
		sinks = append(sinks, led)
	}

	return sinks, nil
}

// watchPlayback ends the run when a non-looping clip has finished
func (a *App) watchPlayback(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !a.player.IsBusy() {
				// One more poll so the last window can fire
				time.Sleep(2 * a.config.PollInterval)
				log.Printf("Playback finished")
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// handleControls applies volume changes and quit requests from the TUI
func (a *App) handleControls(ctx context.Context, cancel context.CancelFunc) {
	for {
		select {
		case change := <-a.volCtrl.Changes:
			if v, ok := a.player.(output.Volume); ok {
				v.SetVolume(change.Volume)
				v.SetMuted(change.Muted)
			}
			log.Printf("Volume: %d muted=%v", change.Volume, change.Muted)
		case <-a.volCtrl.Quit:
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// statusLoop feeds playback and sync state to the TUI
func (a *App) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.tui.Update(a.status())
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) status() ui.StatusMsg {
	stats := a.sched.Stats()
	offset, drift, quality := a.clock.Stats()

	msg := ui.StatusMsg{
		Position:    stats.Pos,
		SyncQuality: quality,
		SyncOffset:  offset,
		Drift:       drift,
		Ticks:       stats.Ticks,
	}
	if a.server != nil {
		_, msg.Dropped = a.server.Stats()
		msg.Clients = len(a.server.Clients())
	}
	return msg
}

// cleanup releases resources in reverse order of acquisition
func (a *App) cleanup() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}
