// ABOUTME: WebSocket client for the lubdub beat protocol
// ABOUTME: Handles connection, handshake, and message routing
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Path is the WebSocket endpoint served by lubdub
const Path = "/lubdub"

// Config holds client configuration
type Config struct {
	ServerAddr string
	ClientID   string
	Name       string
	Sounds     []string
}

// Client represents a WebSocket client
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex
	server ServerHello

	// Message channels
	Timelines    chan Timeline
	Events       chan BeatEvent
	Cycles       chan CycleBoundary
	TimeSyncResp chan ServerTime

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:       config,
		Timelines:    make(chan Timeline, 1),
		Events:       make(chan BeatEvent, 100),
		Cycles:       make(chan CycleBoundary, 10),
		TimeSyncResp: make(chan ServerTime, 10),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Connect establishes WebSocket connection and performs handshake
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake sends client/hello and waits for server/hello
func (c *Client) handshake() error {
	hello := ClientHello{
		ClientID: c.config.ClientID,
		Name:     c.config.Name,
		Version:  Version,
		Sounds:   c.config.Sounds,
	}

	if err := c.sendJSON(Message{Type: TypeClientHello, Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	msgType, payload, err := Parse(data)
	if err != nil {
		return err
	}
	if msgType == TypeServerError {
		var refusal ServerError
		json.Unmarshal(payload, &refusal)
		return fmt.Errorf("server refused connection: %s (%s)", refusal.Message, refusal.Code)
	}
	if msgType != TypeServerHello {
		return fmt.Errorf("expected %s, got %s", TypeServerHello, msgType)
	}

	var server ServerHello
	if err := json.Unmarshal(payload, &server); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}

	c.mu.Lock()
	c.server = server
	c.mu.Unlock()

	log.Printf("Handshake complete with server %s (%s)", server.Name, server.ServerID)
	return nil
}

// Server returns the server/hello received during the handshake
func (c *Client) Server() ServerHello {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.server
}

// sendJSON sends a JSON message
func (c *Client) sendJSON(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	return c.conn.WriteJSON(msg)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer close(c.done)
	defer c.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.IsConnected() {
				log.Printf("Read error: %v", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			log.Printf("Ignoring non-text WebSocket message type: %d", messageType)
			continue
		}
		c.handleJSONMessage(data)
	}
}

// handleJSONMessage routes JSON messages to their channels
func (c *Client) handleJSONMessage(data []byte) {
	msgType, payload, err := Parse(data)
	if err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	switch msgType {
	case TypeTimeline:
		var tl Timeline
		if err := json.Unmarshal(payload, &tl); err != nil {
			log.Printf("Failed to parse %s: %v", msgType, err)
			return
		}
		select {
		case c.Timelines <- tl:
		case <-c.ctx.Done():
		}

	case TypeBeatEvent:
		var ev BeatEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			log.Printf("Failed to parse %s: %v", msgType, err)
			return
		}
		select {
		case c.Events <- ev:
		default:
			log.Printf("Event channel full, dropping %s", ev.Sound)
		}

	case TypeCycle:
		var cb CycleBoundary
		if err := json.Unmarshal(payload, &cb); err != nil {
			log.Printf("Failed to parse %s: %v", msgType, err)
			return
		}
		select {
		case c.Cycles <- cb:
		default:
		}

	case TypeServerTime:
		var st ServerTime
		if err := json.Unmarshal(payload, &st); err != nil {
			log.Printf("Failed to parse %s: %v", msgType, err)
			return
		}
		select {
		case c.TimeSyncResp <- st:
		case <-time.After(100 * time.Millisecond):
			log.Printf("Time sync channel full, dropping response")
		}

	default:
		log.Printf("Unknown message type: %s", msgType)
	}
}

// SendGoodbye sends a client/goodbye message before disconnecting
func (c *Client) SendGoodbye(reason string) error {
	return c.sendJSON(Message{
		Type:    TypeClientGoodbye,
		Payload: ClientGoodbye{Reason: reason},
	})
}

// SendTimeSync sends a client/time message
func (c *Client) SendTimeSync(t1 int64) error {
	return c.sendJSON(Message{
		Type:    TypeClientTime,
		Payload: ClientTime{ClientTransmitted: t1},
	})
}

// Done is closed when the read loop exits
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// RoundTrip computes round-trip time and clock offset from a time exchange.
// t1 and t4 are client send/receive, t2 and t3 server receive/send (µs).
func RoundTrip(t1, t2, t3, t4 int64) (rtt, offset int64) {
	rtt = (t4 - t1) - (t3 - t2)
	offset = ((t2 - t1) + (t3 - t4)) / 2
	return
}
