// Package testws provides an in-process Socket.IO server for transport tests
package testws

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"kenes-socket-go/internal/websocket/protocol"
	"kenes-socket-go/pkg/logger"
)

// ReceivedEvent is an event emitted by a client
type ReceivedEvent struct {
	ClientID  string
	Namespace string
	Name      string
	Args      []json.RawMessage
	AckID     int
}

// Decode unmarshals the first event argument into v
func (e ReceivedEvent) Decode(v interface{}) error {
	if len(e.Args) == 0 {
		return fmt.Errorf("event %s has no payload", e.Name)
	}
	return json.Unmarshal(e.Args[0], v)
}

// TestSocketServer is a minimal Socket.IO v5 server over the websocket
// transport
type TestSocketServer struct {
	addr       string
	actualAddr string
	logger     *logger.Logger
	server     *http.Server
	listener   net.Listener
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]*Client
	clientMu   sync.RWMutex

	// Handshake tuning
	pingInterval time.Duration
	pingTimeout  time.Duration

	// Namespace join policy, nil accepts every namespace
	rejectNamespace func(namespace string) string

	// Event handlers and acknowledgement responders
	eventHandlers map[string]func(*Client, ReceivedEvent)
	ackResponders map[string]func(ReceivedEvent) []interface{}
	handlersMu    sync.RWMutex

	events      []ReceivedEvent
	eventsMu    sync.Mutex
	eventsCond  *sync.Cond
	connections int

	// Shutdown
	shutdown     chan struct{}
	done         chan struct{}
	shutdownOnce sync.Once
}

// Client represents a connected Socket.IO client
type Client struct {
	conn       *websocket.Conn
	server     *TestSocketServer
	clientID   string
	socketID   string
	namespaces map[string]bool
	nsMu       sync.RWMutex
	sendCh     chan []byte
	done       chan struct{}
	doneOnce   sync.Once
}

// NewTestSocketServer creates a new test server listening on addr. Use
// "127.0.0.1:0" for a random port.
func NewTestSocketServer(addr string, logger *logger.Logger) *TestSocketServer {
	s := &TestSocketServer{
		addr:   addr,
		logger: logger.With("component", "test_socket_server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:       make(map[*websocket.Conn]*Client),
		pingInterval:  25 * time.Second,
		pingTimeout:   20 * time.Second,
		eventHandlers: make(map[string]func(*Client, ReceivedEvent)),
		ackResponders: make(map[string]func(ReceivedEvent) []interface{}),
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
	}
	s.eventsCond = sync.NewCond(&s.eventsMu)
	return s
}

// SetPing sets the ping settings announced in the handshake. The server
// pings every interval.
func (s *TestSocketServer) SetPing(interval, timeout time.Duration) {
	if interval > 0 {
		s.pingInterval = interval
	}
	if timeout > 0 {
		s.pingTimeout = timeout
	}
}

// RejectNamespaces makes the server answer namespace joins with a
// connect_error carrying the returned message. An empty message accepts.
func (s *TestSocketServer) RejectNamespaces(policy func(namespace string) string) {
	s.rejectNamespace = policy
}

// RegisterEventHandler registers a handler for a client event
func (s *TestSocketServer) RegisterEventHandler(event string, handler func(*Client, ReceivedEvent)) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.eventHandlers[event] = handler
}

// RegisterAckResponder makes the server acknowledge event with the returned
// arguments when the client asks for an acknowledgement
func (s *TestSocketServer) RegisterAckResponder(event string, responder func(ReceivedEvent) []interface{}) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.ackResponders[event] = responder
}

// Start starts the server
func (s *TestSocketServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener
	s.actualAddr = listener.Addr().String()

	mux := http.NewServeMux()
	mux.HandleFunc(protocol.DefaultPath, s.handleWebSocket)

	s.server = &http.Server{
		Handler: mux,
	}

	s.logger.Info("Starting test socket server", "addr", s.addr, "actual_addr", s.actualAddr)

	go func() {
		defer close(s.done)
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server error", "error", err)
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.shutdown:
		}
	}()

	return nil
}

// Stop stops the server and closes every client
func (s *TestSocketServer) Stop() error {
	s.DropAll()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Error("Error shutting down server", "error", err)
			return err
		}
	}

	if s.listener != nil {
		s.listener.Close()
	}

	s.shutdownOnce.Do(func() {
		close(s.shutdown)
	})
	return nil
}

// URL returns the backend URL for namespace, e.g. "http://127.0.0.1:1234/user"
func (s *TestSocketServer) URL(namespace string) string {
	addr := s.actualAddr
	if addr == "" {
		addr = s.addr
	}
	if namespace == "" || namespace == protocol.DefaultNamespace {
		return fmt.Sprintf("http://%s", addr)
	}
	return fmt.Sprintf("http://%s%s", addr, namespace)
}

// Emit sends an event to every client joined to namespace
func (s *TestSocketServer) Emit(namespace, event string, data interface{}) error {
	packet, err := protocol.NewEvent(namespace, event, data, -1)
	if err != nil {
		return err
	}
	s.broadcast(namespace, protocol.EncodeMessage(packet))
	return nil
}

// EmitRaw sends an event whose payload is already encoded JSON
func (s *TestSocketServer) EmitRaw(namespace, event, payload string) error {
	return s.Emit(namespace, event, json.RawMessage(payload))
}

// DisconnectAll sends a server side namespace disconnect to every client
func (s *TestSocketServer) DisconnectAll(namespace string) {
	s.broadcast(namespace, protocol.EncodeMessage(protocol.Packet{
		Type:      protocol.PacketDisconnect,
		Namespace: namespace,
		ID:        -1,
	}))
}

// DropAll closes every client socket without a close handshake
func (s *TestSocketServer) DropAll() {
	s.clientMu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for _, client := range s.clients {
		clients = append(clients, client)
	}
	s.clients = make(map[*websocket.Conn]*Client)
	s.clientMu.Unlock()

	for _, client := range clients {
		client.close()
	}
}

// ConnectionCount returns how many websocket sessions were accepted
func (s *TestSocketServer) ConnectionCount() int {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	return s.connections
}

// ClientCount returns the number of open sessions
func (s *TestSocketServer) ClientCount() int {
	s.clientMu.RLock()
	defer s.clientMu.RUnlock()
	return len(s.clients)
}

// Events returns every event received so far
func (s *TestSocketServer) Events() []ReceivedEvent {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	return append([]ReceivedEvent(nil), s.events...)
}

// WaitForEvent blocks until an event named name arrives or timeout elapses
func (s *TestSocketServer) WaitForEvent(name string, timeout time.Duration) (ReceivedEvent, bool) {
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		s.eventsMu.Lock()
		s.eventsCond.Broadcast()
		s.eventsMu.Unlock()
	})
	defer timer.Stop()

	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()

	for {
		for _, event := range s.events {
			if event.Name == name {
				return event, true
			}
		}
		if !time.Now().Before(deadline) {
			return ReceivedEvent{}, false
		}
		s.eventsCond.Wait()
	}
}

func (s *TestSocketServer) recordEvent(event ReceivedEvent) {
	s.eventsMu.Lock()
	s.events = append(s.events, event)
	s.eventsCond.Broadcast()
	s.eventsMu.Unlock()
}

func (s *TestSocketServer) broadcast(namespace, frame string) {
	s.clientMu.RLock()
	defer s.clientMu.RUnlock()

	for _, client := range s.clients {
		if !client.joined(namespace) {
			continue
		}
		client.send(frame)
	}
}

func (s *TestSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("EIO") != protocol.ProtocolVersion || query.Get("transport") != "websocket" {
		http.Error(w, "unsupported transport", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := &Client{
		conn:       conn,
		server:     s,
		clientID:   uuid.New().String(),
		socketID:   uuid.New().String(),
		namespaces: make(map[string]bool),
		sendCh:     make(chan []byte, 256),
		done:       make(chan struct{}),
	}

	s.clientMu.Lock()
	s.clients[conn] = client
	s.clientMu.Unlock()

	s.eventsMu.Lock()
	s.connections++
	s.eventsMu.Unlock()

	handshake, _ := json.Marshal(protocol.Handshake{
		SID:          client.clientID,
		Upgrades:     []string{},
		PingInterval: int(s.pingInterval / time.Millisecond),
		PingTimeout:  int(s.pingTimeout / time.Millisecond),
		MaxPayload:   1000000,
	})
	client.send(protocol.EncodeEngine(protocol.EngineOpen, string(handshake)))

	go client.writePump()
	go client.readPump()
}

func (s *TestSocketServer) removeClient(conn *websocket.Conn) {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	delete(s.clients, conn)
}

// ID returns the Socket.IO session id handed to the client
func (c *Client) ID() string {
	return c.socketID
}

// Emit sends an event to this client
func (c *Client) Emit(namespace, event string, data interface{}) error {
	packet, err := protocol.NewEvent(namespace, event, data, -1)
	if err != nil {
		return err
	}
	c.send(protocol.EncodeMessage(packet))
	return nil
}

func (c *Client) joined(namespace string) bool {
	c.nsMu.RLock()
	defer c.nsMu.RUnlock()
	return c.namespaces[namespace]
}

func (c *Client) send(frame string) {
	select {
	case c.sendCh <- []byte(frame):
	case <-c.done:
	default:
		c.server.logger.Warn("Client send channel full, skipping frame", "client", c.clientID)
	}
}

func (c *Client) close() {
	c.doneOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer func() {
		c.server.removeClient(c.conn)
		c.close()
	}()

	c.conn.SetReadLimit(512 * 1024)

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Debug("WebSocket read error", "error", err, "client", c.clientID)
			}
			return
		}

		if err := c.handleFrame(string(frame)); err != nil {
			c.server.logger.Error("Failed to handle frame", "error", err, "client", c.clientID)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.server.pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.server.logger.Debug("Failed to write frame", "error", err, "client", c.clientID)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(protocol.EncodeEngine(protocol.EnginePing, ""))); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleFrame(frame string) error {
	engineType, payload, err := protocol.DecodeEngine(frame)
	if err != nil {
		return err
	}

	switch engineType {
	case protocol.EnginePong:
		return nil
	case protocol.EnginePing:
		c.send(protocol.EncodeEngine(protocol.EnginePong, payload))
		return nil
	case protocol.EngineClose:
		c.close()
		return nil
	case protocol.EngineMessage:
	default:
		return fmt.Errorf("unexpected engine packet %s", engineType)
	}

	packet, err := protocol.DecodePacket(payload)
	if err != nil {
		return err
	}

	switch packet.Type {
	case protocol.PacketConnect:
		if c.server.rejectNamespace != nil {
			if message := c.server.rejectNamespace(packet.Namespace); message != "" {
				data, _ := json.Marshal(protocol.ConnectErrorPayload{Message: message})
				c.send(protocol.EncodeMessage(protocol.Packet{Type: protocol.PacketConnectError, Namespace: packet.Namespace, ID: -1, Data: data}))
				return nil
			}
		}
		c.nsMu.Lock()
		c.namespaces[packet.Namespace] = true
		c.nsMu.Unlock()
		data, _ := json.Marshal(protocol.ConnectPayload{SID: c.socketID})
		c.send(protocol.EncodeMessage(protocol.Packet{Type: protocol.PacketConnect, Namespace: packet.Namespace, ID: -1, Data: data}))

	case protocol.PacketDisconnect:
		c.nsMu.Lock()
		delete(c.namespaces, packet.Namespace)
		c.nsMu.Unlock()

	case protocol.PacketEvent:
		name, args, err := packet.EventArgs()
		if err != nil {
			return err
		}
		event := ReceivedEvent{
			ClientID:  c.clientID,
			Namespace: packet.Namespace,
			Name:      name,
			Args:      args,
			AckID:     packet.ID,
		}
		c.server.recordEvent(event)

		c.server.handlersMu.RLock()
		handler := c.server.eventHandlers[name]
		responder := c.server.ackResponders[name]
		c.server.handlersMu.RUnlock()

		if handler != nil {
			handler(c, event)
		}
		if packet.HasID() && responder != nil {
			data, err := json.Marshal(responder(event))
			if err != nil {
				return err
			}
			c.send(protocol.EncodeMessage(protocol.Packet{Type: protocol.PacketAck, Namespace: packet.Namespace, ID: packet.ID, Data: data}))
		}

	case protocol.PacketAck:
		return nil

	default:
		return fmt.Errorf("unexpected packet %s", packet.Type)
	}

	return nil
}
