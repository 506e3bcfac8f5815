// ABOUTME: Probe session for remote beat listeners
// ABOUTME: Finds a server, prints the beats it broadcasts and measures latency
package client

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/lubdub/internal/discovery"
	"github.com/harperreed/lubdub/pkg/protocol"
)

// Config holds probe configuration
type Config struct {
	ServerAddr      string // empty = discover via mDNS
	Name            string
	Sounds          []string
	SyncInterval    time.Duration
	DiscoverTimeout time.Duration
}

// Probe prints beats received from a lubdub server
type Probe struct {
	config Config
	out    io.Writer
	client *protocol.Client

	mu     sync.Mutex
	rtt    int64 // µs
	offset int64 // server minus probe clock, µs
	synced bool
}

// New creates a probe writing to out
func New(config Config, out io.Writer) *Probe {
	if config.SyncInterval <= 0 {
		config.SyncInterval = time.Second
	}
	if config.DiscoverTimeout <= 0 {
		config.DiscoverTimeout = 10 * time.Second
	}
	return &Probe{config: config, out: out}
}

// Run connects and prints until ctx ends or the server goes away
func (p *Probe) Run(ctx context.Context) error {
	addr := p.config.ServerAddr
	if addr == "" {
		server, err := p.discover(ctx)
		if err != nil {
			return err
		}
		addr = server.Addr()
	}

	p.client = protocol.NewClient(protocol.Config{
		ServerAddr: addr,
		ClientID:   uuid.New().String(),
		Name:       p.config.Name,
		Sounds:     p.config.Sounds,
	})
	if err := p.client.Connect(); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer p.client.Close()

	server := p.client.Server()
	fmt.Fprintf(p.out, "Connected to %s at %s\n", server.Name, addr)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go p.clockSyncLoop(ctx)

	for {
		select {
		case tl := <-p.client.Timelines:
			fmt.Fprintf(p.out, "Timeline: %d events, loop %v, %.1f BPM\n",
				len(tl.Events), tl.Loop().Round(time.Millisecond), tl.BPM)

		case cb := <-p.client.Cycles:
			fmt.Fprintf(p.out, "-- cycle %d --\n", cb.Cycle)

		case ev := <-p.client.Events:
			fmt.Fprintf(p.out, "%s detected at %.3fs (cycle %d%s)\n",
				soundLabel(ev.Sound), float64(ev.TimeInCycle)/1e6, ev.Cycle, p.latency(ev))

		case <-p.client.Done():
			return fmt.Errorf("server closed connection")

		case <-ctx.Done():
			if err := p.client.SendGoodbye("shutdown"); err != nil {
				log.Printf("Failed to send goodbye: %v", err)
			}
			return nil
		}
	}
}

// discover waits for the first advertised server
func (p *Probe) discover(ctx context.Context) (*discovery.ServerInfo, error) {
	log.Printf("Searching for %s servers...", discovery.ServiceType)

	mgr := discovery.NewManager(discovery.Config{})
	defer mgr.Stop()

	ctx, cancel := context.WithTimeout(ctx, p.config.DiscoverTimeout)
	defer cancel()

	return mgr.Lookup(ctx)
}

// clockSyncLoop measures round trip and offset to the server
func (p *Probe) clockSyncLoop(ctx context.Context) {
	ticker := time.NewTicker(p.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t1 := time.Now().UnixMicro()
			if err := p.client.SendTimeSync(t1); err != nil {
				return
			}

			select {
			case resp := <-p.client.TimeSyncResp:
				t4 := time.Now().UnixMicro()
				rtt, offset := protocol.RoundTrip(resp.ClientTransmitted, resp.ServerReceived, resp.ServerTransmitted, t4)
				p.mu.Lock()
				p.rtt, p.offset, p.synced = rtt, offset, true
				p.mu.Unlock()
				log.Printf("Time sync: rtt=%dµs offset=%dµs", rtt, offset)

			case <-time.After(2 * time.Second):
				log.Printf("Time sync timeout")
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// latency describes how long the event took to arrive, once synced
func (p *Probe) latency(ev protocol.BeatEvent) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.synced {
		return ""
	}
	delay := time.Now().UnixMicro() - (ev.ServerTime - p.offset)
	return fmt.Sprintf(", +%.1fms, rtt %.1fms", float64(delay)/1000, float64(p.rtt)/1000)
}

// Stats returns the last measured round trip and offset in µs
func (p *Probe) Stats() (rtt, offset int64, synced bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rtt, p.offset, p.synced
}

func soundLabel(sound string) string {
	switch sound {
	case protocol.SoundS1:
		return "S1"
	case protocol.SoundS2:
		return "S2"
	default:
		return sound
	}
}
