// ABOUTME: Tests for the probe session
// ABOUTME: Runs a probe against an in-process beat server
package client

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harperreed/lubdub/internal/server"
	"github.com/harperreed/lubdub/pkg/cycle"
	"github.com/harperreed/lubdub/pkg/protocol"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestProbePrintsBeats(t *testing.T) {
	s2 := int64(300000)
	srv := server.New(server.Config{Name: "bed-7"}, protocol.Timeline{
		LoopDuration: 1000000,
		BPM:          60,
		Events:       []protocol.TimelineEvent{{S1: 100000, S2: &s2}},
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var out syncBuffer
	probe := New(Config{
		ServerAddr:   strings.TrimPrefix(ts.URL, "http://"),
		Name:         "probe",
		SyncInterval: 20 * time.Millisecond,
	}, &out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- probe.Run(ctx) }()

	waitFor(t, "timeline", func() bool { return strings.Contains(out.String(), "Timeline: 1 events") })
	waitFor(t, "time sync", func() bool { _, _, ok := probe.Stats(); return ok })

	srv.CycleStarted(3)
	srv.Notify(cycle.Notification{Kind: cycle.KindS1, CycleIndex: 3, TimeInCycle: 100 * time.Millisecond})
	srv.Notify(cycle.Notification{Kind: cycle.KindS2, CycleIndex: 3, TimeInCycle: 300 * time.Millisecond})

	waitFor(t, "events", func() bool { return strings.Contains(out.String(), "S2 detected at 0.300s (cycle 3") })

	got := out.String()
	for _, want := range []string{"Connected to bed-7", "-- cycle 3 --", "S1 detected at 0.100s (cycle 3, +"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("probe did not stop")
	}

	waitFor(t, "goodbye", func() bool { return len(srv.Clients()) == 0 })
}

func TestProbeServerGone(t *testing.T) {
	// Completes the handshake, then hangs up
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.WriteJSON(protocol.Message{
			Type:    protocol.TypeServerHello,
			Payload: protocol.ServerHello{ServerID: "x", Name: "flaky", Version: protocol.Version},
		})
	}))
	defer ts.Close()

	probe := New(Config{ServerAddr: strings.TrimPrefix(ts.URL, "http://"), Name: "probe"}, &syncBuffer{})

	done := make(chan error, 1)
	go func() { done <- probe.Run(context.Background()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error when server goes away")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("probe did not notice server going away")
	}
}

func TestProbeConnectError(t *testing.T) {
	probe := New(Config{ServerAddr: "127.0.0.1:1", Name: "probe"}, &syncBuffer{})
	if err := probe.Run(context.Background()); err == nil {
		t.Error("expected connection error")
	}
}

func TestProbeDiscoveryTimeout(t *testing.T) {
	probe := New(Config{Name: "probe", DiscoverTimeout: 50 * time.Millisecond}, &syncBuffer{})

	start := time.Now()
	if err := probe.Run(context.Background()); err == nil {
		t.Error("expected discovery error")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("discovery did not honour its timeout")
	}
}

func TestSoundLabel(t *testing.T) {
	tests := []struct {
		sound string
		want  string
	}{
		{protocol.SoundS1, "S1"},
		{protocol.SoundS2, "S2"},
		{"s3", "s3"},
	}

	for _, tt := range tests {
		if got := soundLabel(tt.sound); got != tt.want {
			t.Errorf("soundLabel(%q) = %q, want %q", tt.sound, got, tt.want)
		}
	}
}
