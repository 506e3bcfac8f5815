// ABOUTME: NATS message-bus sink for scheduler notifications
// ABOUTME: Publishes S1/S2 events and cycle boundaries as JSON on subject prefix
package stream

import (
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/harperreed/lubdub/pkg/cycle"
	"github.com/harperreed/lubdub/pkg/protocol"
	"github.com/nats-io/nats.go"
)

// DefaultPrefix is the subject prefix when none is configured
const DefaultPrefix = "lubdub"

// Connect dials NATS with reconnects that never give up
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("lubdub"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

// Publisher is the part of *nats.Conn the sink needs
type Publisher interface {
	Publish(subj string, data []byte) error
}

// Sink publishes notifications to <prefix>.s1, <prefix>.s2 and <prefix>.cycle
type Sink struct {
	pub    Publisher
	prefix string
	now    func() time.Time
	failed atomic.Int64
}

// NewSink creates a sink over pub
func NewSink(pub Publisher, prefix string) *Sink {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Sink{pub: pub, prefix: prefix, now: time.Now}
}

// Subject returns the full subject for a leaf name
func (s *Sink) Subject(leaf string) string {
	return s.prefix + "." + leaf
}

// Notify publishes a beat event. NATS buffers Publish, so this does not block.
func (s *Sink) Notify(n cycle.Notification) {
	ev := protocol.NewBeatEvent(n, s.now())
	s.publish(s.Subject(ev.Sound), ev)
}

// CycleStarted publishes a cycle boundary
func (s *Sink) CycleStarted(index int64) {
	s.publish(s.Subject("cycle"), protocol.CycleBoundary{Cycle: index, ServerTime: s.now().UnixMicro()})
}

// Failed returns how many publishes returned an error
func (s *Sink) Failed() int64 { return s.failed.Load() }

func (s *Sink) publish(subject string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to marshal %s payload: %v", subject, err)
		return
	}
	if err := s.pub.Publish(subject, b); err != nil {
		// Log the first failure only; the connection logs its own reconnects
		if s.failed.Add(1) == 1 {
			log.Printf("NATS publish to %s failed: %v", subject, err)
		}
	}
}
