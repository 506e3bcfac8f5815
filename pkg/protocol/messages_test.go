// ABOUTME: Tests for lubdub protocol message types
// ABOUTME: Verifies envelope parsing and conversions from analysis types
package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/harperreed/lubdub/pkg/cycle"
	"github.com/harperreed/lubdub/pkg/heartbeat"
)

func TestParse(t *testing.T) {
	msg := Message{
		Type:    TypeClientHello,
		Payload: ClientHello{ClientID: "abc", Name: "probe", Version: Version, Sounds: []string{SoundS1}},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	msgType, payload, err := Parse(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if msgType != TypeClientHello {
		t.Errorf("expected %s, got %s", TypeClientHello, msgType)
	}

	var hello ClientHello
	if err := json.Unmarshal(payload, &hello); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if hello.ClientID != "abc" || len(hello.Sounds) != 1 || hello.Sounds[0] != SoundS1 {
		t.Errorf("unexpected payload: %+v", hello)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "lub dub"},
		{"missing type", `{"payload": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestNewTimeline(t *testing.T) {
	tl := &heartbeat.Timeline{
		Events: []heartbeat.Event{
			{S1: 100 * time.Millisecond, S2: 400 * time.Millisecond, HasS2: true},
			{S1: 1100 * time.Millisecond},
		},
		LoopDuration: 2 * time.Second,
		SampleRate:   8000,
	}

	wire := NewTimeline(tl)

	if wire.LoopDuration != 2000000 {
		t.Errorf("expected loop 2000000µs, got %d", wire.LoopDuration)
	}
	if wire.SampleRate != 8000 {
		t.Errorf("expected 8000Hz, got %d", wire.SampleRate)
	}
	if wire.BPM != tl.BPM() {
		t.Errorf("expected bpm %f, got %f", tl.BPM(), wire.BPM)
	}
	if wire.Events[0].S1 != 100000 || wire.Events[0].S2 == nil || *wire.Events[0].S2 != 400000 {
		t.Errorf("unexpected first event: %+v", wire.Events[0])
	}
	if wire.Events[1].S2 != nil {
		t.Errorf("expected unpaired second event, got S2 %d", *wire.Events[1].S2)
	}

	data, err := json.Marshal(wire)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	var decoded Timeline
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	events := decoded.HeartbeatEvents()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	for i := range events {
		if events[i] != tl.Events[i] {
			t.Errorf("event %d: expected %v, got %v", i, tl.Events[i], events[i])
		}
	}
	if decoded.Loop() != tl.LoopDuration {
		t.Errorf("expected loop %v, got %v", tl.LoopDuration, decoded.Loop())
	}
}

func TestTimelineOmitsMissingS2(t *testing.T) {
	data, err := json.Marshal(TimelineEvent{S1: 5})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if string(data) != `{"s1_us":5}` {
		t.Errorf("unexpected encoding: %s", data)
	}
}

func TestNewBeatEvent(t *testing.T) {
	now := time.Unix(1700000000, 0)
	n := cycle.Notification{
		Kind:        cycle.KindS2,
		CycleIndex:  3,
		TimeInCycle: 800 * time.Millisecond,
		EventIndex:  1,
		Elapsed:     6780 * time.Millisecond,
	}

	ev := NewBeatEvent(n, now)

	if ev.Sound != SoundS2 {
		t.Errorf("expected sound s2, got %s", ev.Sound)
	}
	if ev.Cycle != 3 || ev.EventIndex != 1 {
		t.Errorf("unexpected cycle/event: %+v", ev)
	}
	if ev.TimeInCycle != 800000 || ev.Elapsed != 6780000 {
		t.Errorf("unexpected times: %+v", ev)
	}
	if ev.ServerTime != now.UnixMicro() {
		t.Errorf("expected server time %d, got %d", now.UnixMicro(), ev.ServerTime)
	}
	if SoundName(cycle.KindS1) != SoundS1 {
		t.Error("expected s1 for KindS1")
	}
}

func TestRoundTrip(t *testing.T) {
	// 4.5ms RTT, server 0.75ms ahead
	t1 := int64(1000000)
	t2 := int64(1003000)
	t3 := int64(1003500)
	t4 := int64(1005000)

	rtt, offset := RoundTrip(t1, t2, t3, t4)
	if rtt != 4500 {
		t.Errorf("expected rtt 4500µs, got %d", rtt)
	}
	if offset != 750 {
		t.Errorf("expected offset 750µs, got %d", offset)
	}
}
