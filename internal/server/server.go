// ABOUTME: Beat broadcast server for remote lubdub listeners
// ABOUTME: Manages WebSocket connections and fans S1/S2 notifications out to clients
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harperreed/lubdub/internal/discovery"
	"github.com/harperreed/lubdub/pkg/cycle"
	"github.com/harperreed/lubdub/pkg/protocol"
)

const (
	sendBuffer    = 64
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// Config holds server configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool
	Debug      bool
}

// Server broadcasts scheduler notifications over WebSocket. It implements
// cycle.Sink and cycle.CycleObserver.
type Server struct {
	config   Config
	serverID string
	timeline protocol.Timeline

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// HTTP server
	httpServer *http.Server
	mux        *http.ServeMux

	// Client management
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// mDNS discovery
	mdnsManager *discovery.Manager

	now     func() time.Time
	sent    atomic.Int64
	dropped atomic.Int64

	// Control
	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Client represents a connected listener
type Client struct {
	ID     string
	Name   string
	Conn   *websocket.Conn
	Sounds []string

	// Output channel for messages
	sendChan chan protocol.Message
}

// ClientInfo is a snapshot of a connected listener
type ClientInfo struct {
	ID     string
	Name   string
	Sounds []string
}

// wants reports whether the client subscribed to sound. No filter means all.
func (c *Client) wants(sound string) bool {
	if len(c.Sounds) == 0 {
		return true
	}
	for _, s := range c.Sounds {
		if s == sound {
			return true
		}
	}
	return false
}

// New creates a server that announces timeline to every listener
func New(config Config, timeline protocol.Timeline) *Server {
	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		timeline: timeline,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Local network listeners only
			CheckOrigin: func(r *http.Request) bool {
				if origin := r.Header.Get("Origin"); origin != "" && config.Debug {
					log.Printf("[DEBUG] Accepting WebSocket from origin: %s", origin)
				}
				return true
			},
		},
		clients:  make(map[string]*Client),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	s.mux.HandleFunc(protocol.Path, s.handleWebSocket)
	return s
}

// ID returns the server id sent in server/hello
func (s *Server) ID() string { return s.serverID }

// Handler returns the HTTP handler serving the beat endpoint
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves until Stop is called
func (s *Server) Start() error {
	log.Printf("Server starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			InstanceName: s.config.Name,
			Port:         s.config.Port,
			Path:         protocol.Path,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("WebSocket server listening on %s%s", addr, protocol.Path)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serveErr error
	select {
	case <-s.stopChan:
		log.Printf("Server shutting down...")
	case err := <-errChan:
		serveErr = fmt.Errorf("server error: %w", err)
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Hijacked connections are not closed by Shutdown
	s.clientsMu.RLock()
	for _, c := range s.clients {
		c.Conn.Close()
	}
	s.clientsMu.RUnlock()

	s.wg.Wait()
	return serveErr
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Notify sends a beat/event to every client subscribed to its sound
func (s *Server) Notify(n cycle.Notification) {
	ev := protocol.NewBeatEvent(n, s.now())
	s.broadcast(protocol.Message{Type: protocol.TypeBeatEvent, Payload: ev}, ev.Sound)
}

// CycleStarted sends a beat/cycle to every client
func (s *Server) CycleStarted(index int64) {
	cb := protocol.CycleBoundary{Cycle: index, ServerTime: s.now().UnixMicro()}
	s.broadcast(protocol.Message{Type: protocol.TypeCycle, Payload: cb}, "")
}

// broadcast queues msg without blocking; full clients miss it
func (s *Server) broadcast(msg protocol.Message, sound string) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, c := range s.clients {
		if sound != "" && !c.wants(sound) {
			continue
		}
		if err := s.sendMessage(c, msg); err != nil {
			s.dropped.Add(1)
			if s.config.Debug {
				log.Printf("[DEBUG] Dropping %s for %s: %v", msg.Type, c.Name, err)
			}
			continue
		}
		s.sent.Add(1)
	}
}

// Stats returns messages queued and dropped by broadcasts
func (s *Server) Stats() (sent, dropped int64) {
	return s.sent.Load(), s.dropped.Load()
}

// Clients returns the connected listeners sorted by name
func (s *Server) Clients() []ClientInfo {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	infos := make([]ClientInfo, 0, len(s.clients))
	for _, c := range s.clients {
		infos = append(infos, ClientInfo{ID: c.ID, Name: c.Name, Sounds: c.Sounds})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.shutdownMu.RUnlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.wg.Done()
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)

	go func() {
		defer s.wg.Done()
		s.handleConnection(conn)
	}()
}

// handleConnection runs the handshake and reads client messages until disconnect
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("Error reading hello: %v", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	msgType, payload, err := protocol.Parse(data)
	if err != nil {
		log.Printf("Error parsing hello: %v", err)
		return
	}
	if msgType != protocol.TypeClientHello {
		log.Printf("Expected %s, got %s", protocol.TypeClientHello, msgType)
		return
	}

	var hello protocol.ClientHello
	if err := json.Unmarshal(payload, &hello); err != nil {
		log.Printf("Error parsing client hello: %v", err)
		return
	}

	if hello.ClientID == "" {
		log.Printf("Client hello missing ClientID")
		return
	}
	if hello.Name == "" {
		log.Printf("Client hello missing Name")
		return
	}

	log.Printf("Client hello: %s (ID: %s, Sounds: %v)", hello.Name, hello.ClientID, hello.Sounds)

	client := &Client{
		ID:       hello.ClientID,
		Name:     hello.Name,
		Conn:     conn,
		Sounds:   hello.Sounds,
		sendChan: make(chan protocol.Message, sendBuffer),
	}

	s.clientsMu.Lock()
	if existing, exists := s.clients[hello.ClientID]; exists {
		s.clientsMu.Unlock()
		log.Printf("Client ID %s already connected (name: %s), rejecting duplicate", hello.ClientID, existing.Name)

		conn.WriteJSON(protocol.Message{
			Type: protocol.TypeServerError,
			Payload: protocol.ServerError{
				Code:    "duplicate_client_id",
				Message: "Client ID already connected",
			},
		})
		return
	}
	// Queued before registration so no broadcast can overtake the handshake
	client.sendChan <- protocol.Message{
		Type: protocol.TypeServerHello,
		Payload: protocol.ServerHello{
			ServerID: s.serverID,
			Name:     s.config.Name,
			Version:  protocol.Version,
		},
	}
	client.sendChan <- protocol.Message{Type: protocol.TypeTimeline, Payload: s.timeline}
	s.clients[client.ID] = client
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		s.clientsMu.Unlock()
		close(client.sendChan)
		log.Printf("Client disconnected: %s", client.Name)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(client)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		if !s.handleClientMessage(client, data) {
			return
		}
	}
}

// clientWriter sends queued messages to the client
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}

			client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := client.Conn.WriteJSON(msg); err != nil {
				log.Printf("Error writing message to %s: %v", client.Name, err)
				client.Conn.Close()
				return
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// handleClientMessage processes one client message; false ends the session
func (s *Server) handleClientMessage(client *Client, data []byte) bool {
	msgType, payload, err := protocol.Parse(data)
	if err != nil {
		log.Printf("Error parsing message from %s: %v", client.Name, err)
		return true
	}

	switch msgType {
	case protocol.TypeClientTime:
		s.handleTimeSync(client, payload)
	case protocol.TypeClientGoodbye:
		var bye protocol.ClientGoodbye
		json.Unmarshal(payload, &bye)
		log.Printf("Client %s said goodbye: %s", client.Name, bye.Reason)
		return false
	default:
		log.Printf("Unknown message type: %s", msgType)
	}
	return true
}

// handleTimeSync responds to latency measurement requests
func (s *Server) handleTimeSync(client *Client, payload json.RawMessage) {
	serverRecv := s.now().UnixMicro()

	var clientTime protocol.ClientTime
	if err := json.Unmarshal(payload, &clientTime); err != nil {
		log.Printf("Error unmarshaling client time: %v", err)
		return
	}

	// Queue time, not wire time
	serverSend := s.now().UnixMicro()

	if s.config.Debug {
		log.Printf("[DEBUG] Time sync for %s: t1=%d, t2=%d, t3=%d",
			client.Name, clientTime.ClientTransmitted, serverRecv, serverSend)
	}

	response := protocol.ServerTime{
		ClientTransmitted: clientTime.ClientTransmitted,
		ServerReceived:    serverRecv,
		ServerTransmitted: serverSend,
	}

	if err := s.sendMessage(client, protocol.Message{Type: protocol.TypeServerTime, Payload: response}); err != nil {
		log.Printf("Error sending server time: %v", err)
	}
}

// sendMessage queues a message for the client writer
func (s *Server) sendMessage(client *Client, msg protocol.Message) error {
	select {
	case client.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}
