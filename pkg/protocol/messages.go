// ABOUTME: Lubdub protocol message type definitions
// ABOUTME: Defines the JSON envelope and payloads exchanged with beat listeners
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/harperreed/lubdub/pkg/cycle"
	"github.com/harperreed/lubdub/pkg/heartbeat"
)

// Version is the protocol version sent in hello messages
const Version = 1

// Message types
const (
	TypeClientHello   = "client/hello"
	TypeClientGoodbye = "client/goodbye"
	TypeClientTime    = "client/time"
	TypeServerHello   = "server/hello"
	TypeServerTime    = "server/time"
	TypeServerError   = "server/error"
	TypeTimeline      = "beat/timeline"
	TypeBeatEvent     = "beat/event"
	TypeCycle         = "beat/cycle"
)

// Sound names used on the wire
const (
	SoundS1 = "s1"
	SoundS2 = "s2"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// envelope is the receive-side form of Message
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Parse splits a raw message into its type and undecoded payload
func Parse(data []byte) (string, json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if env.Type == "" {
		return "", nil, fmt.Errorf("message has no type")
	}
	return env.Type, env.Payload, nil
}

// ClientHello is sent by listeners to initiate the handshake
type ClientHello struct {
	ClientID string   `json:"client_id"`
	Name     string   `json:"name"`
	Version  int      `json:"version"`
	Sounds   []string `json:"sounds,omitempty"` // subset of "s1", "s2"; empty = both
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// ServerError is sent before the server refuses a connection
type ServerError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

// ClientGoodbye is sent before graceful disconnect
type ClientGoodbye struct {
	Reason string `json:"reason"` // "shutdown", "user_request"
}

// ClientTime is sent for latency measurement
type ClientTime struct {
	ClientTransmitted int64 `json:"client_transmitted"` // Client timestamp in microseconds
}

// ServerTime is the response to client/time
type ServerTime struct {
	ClientTransmitted int64 `json:"client_transmitted"` // Echoed client timestamp
	ServerReceived    int64 `json:"server_received"`    // Server receive timestamp
	ServerTransmitted int64 `json:"server_transmitted"` // Server send timestamp
}

// TimelineEvent is one S1 with optional S2, offsets in microseconds within the loop
type TimelineEvent struct {
	S1 int64  `json:"s1_us"`
	S2 *int64 `json:"s2_us,omitempty"`
}

// Timeline describes the detected events for the looping clip
type Timeline struct {
	LoopDuration int64           `json:"loop_duration_us"`
	SampleRate   int             `json:"sample_rate"`
	BPM          float64         `json:"bpm"`
	Events       []TimelineEvent `json:"events"`
}

// BeatEvent is sent each time the scheduler fires an S1 or S2
type BeatEvent struct {
	Sound       string `json:"sound"` // "s1" or "s2"
	Cycle       int64  `json:"cycle"`
	EventIndex  int    `json:"event_index"`
	TimeInCycle int64  `json:"time_in_cycle_us"`
	Elapsed     int64  `json:"elapsed_us"`
	ServerTime  int64  `json:"server_time_us"` // Unix µs when fired
}

// CycleBoundary is sent when playback wraps to a new loop
type CycleBoundary struct {
	Cycle      int64 `json:"cycle"`
	ServerTime int64 `json:"server_time_us"`
}

// NewTimeline converts an analysis result to its wire form
func NewTimeline(tl *heartbeat.Timeline) Timeline {
	events := make([]TimelineEvent, len(tl.Events))
	for i, e := range tl.Events {
		events[i] = TimelineEvent{S1: e.S1.Microseconds()}
		if e.HasS2 {
			s2 := e.S2.Microseconds()
			events[i].S2 = &s2
		}
	}

	return Timeline{
		LoopDuration: tl.LoopDuration.Microseconds(),
		SampleRate:   tl.SampleRate,
		BPM:          tl.BPM(),
		Events:       events,
	}
}

// HeartbeatEvents converts a wire timeline back to analysis events
func (t Timeline) HeartbeatEvents() []heartbeat.Event {
	events := make([]heartbeat.Event, len(t.Events))
	for i, e := range t.Events {
		events[i].S1 = time.Duration(e.S1) * time.Microsecond
		if e.S2 != nil {
			events[i].S2 = time.Duration(*e.S2) * time.Microsecond
			events[i].HasS2 = true
		}
	}
	return events
}

// Loop returns the loop duration
func (t Timeline) Loop() time.Duration {
	return time.Duration(t.LoopDuration) * time.Microsecond
}

// SoundName returns the wire name for a notification kind
func SoundName(k cycle.Kind) string {
	if k == cycle.KindS2 {
		return SoundS2
	}
	return SoundS1
}

// NewBeatEvent converts a scheduler notification fired at now
func NewBeatEvent(n cycle.Notification, now time.Time) BeatEvent {
	return BeatEvent{
		Sound:       SoundName(n.Kind),
		Cycle:       n.CycleIndex,
		EventIndex:  n.EventIndex,
		TimeInCycle: n.TimeInCycle.Microseconds(),
		Elapsed:     n.Elapsed.Microseconds(),
		ServerTime:  now.UnixMicro(),
	}
}
