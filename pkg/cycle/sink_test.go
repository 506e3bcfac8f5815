// ABOUTME: Tests for notification sinks
// ABOUTME: Tests writer output, channel buffering and fan-out
package cycle

import (
	"bytes"
	"testing"
	"time"
)

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf, true)

	sink.CycleStarted(0)
	sink.Notify(Notification{Kind: KindS1, TimeInCycle: 512 * time.Millisecond, HasS2: true})
	sink.Notify(Notification{Kind: KindS2, TimeInCycle: 830 * time.Millisecond, HasS2: true})
	sink.Notify(Notification{Kind: KindS1, TimeInCycle: 1500 * time.Millisecond})

	expected := "-- cycle 0 --\nS1 detected at 0.512s\nS2 detected at 0.830s\nS1 detected at 1.500s (no S2)\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

func TestWriterSinkWithoutCycles(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf, false)

	sink.CycleStarted(3)
	if buf.Len() != 0 {
		t.Errorf("expected no cycle output, got %q", buf.String())
	}
}

func TestChanSinkDropsWhenFull(t *testing.T) {
	sink := NewChanSink(2)

	for i := 0; i < 5; i++ {
		sink.Notify(Notification{Kind: KindS1, EventIndex: i})
	}

	if sink.Dropped() != 3 {
		t.Errorf("expected 3 dropped, got %d", sink.Dropped())
	}

	first := <-sink.C()
	if first.EventIndex != 0 {
		t.Errorf("expected oldest notification first, got event %d", first.EventIndex)
	}
}

func TestMultiSink(t *testing.T) {
	a := &recorder{}
	var calls int
	multi := MultiSink{a, SinkFunc(func(Notification) { calls++ })}

	multi.CycleStarted(7)
	multi.Notify(Notification{Kind: KindS2})

	if calls != 1 {
		t.Errorf("expected func sink to be called once, got %d", calls)
	}
	if len(a.notifications) != 1 || a.notifications[0].Kind != KindS2 {
		t.Errorf("unexpected recorder notifications: %+v", a.notifications)
	}
	if len(a.cycles) != 1 || a.cycles[0] != 7 {
		t.Errorf("expected cycle 7 forwarded, got %v", a.cycles)
	}
}

func TestKindString(t *testing.T) {
	if KindS1.String() != "S1" || KindS2.String() != "S2" || Kind(0).String() != "unknown" {
		t.Error("unexpected kind names")
	}
}
