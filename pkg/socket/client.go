// Package socket is the contact-center client: it owns the session with the
// backend, turns user actions into outbound events and routes inbound events
// through the classifier to the registered listeners.
package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	contracts "kenes-socket-go/pkg/contracts/socket"
	"kenes-socket-go/pkg/listener"
	"kenes-socket-go/pkg/logger"
	"kenes-socket-go/pkg/socket/incoming"
	"kenes-socket-go/pkg/types"
)

// State is the connection state of the session
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// session is everything built by one Create call. Handlers capture their
// session so that a released session ignores late deliveries.
type session struct {
	transport  contracts.Transport
	table      *registrationTable
	classifier *incoming.Classifier
	options    *Options
	metrics    Metrics
	released   atomic.Bool
}

// Client is a contact-center session. It is safe for concurrent use; listener
// callbacks run on the transport goroutine one event at a time.
type Client struct {
	logger    *logger.Logger
	listeners *listener.Registry

	mu       sync.RWMutex
	session  *session
	language types.Language

	state              atomic.Int32
	sessionID          atomic.Value
	lastActive         atomic.Int64
	disconnectNotified atomic.Bool
}

// NewClient returns a client without a session. Call Create before Connect.
func NewClient(log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}

	c := &Client{
		logger:    log.With("component", "kenes_client"),
		listeners: listener.NewRegistry(),
		language:  types.DefaultLanguage,
	}
	c.sessionID.Store("")
	return c
}

// Listeners returns the registry the application subscribes through.
func (c *Client) Listeners() *listener.Registry {
	return c.listeners
}

// Create builds the transport for url without connecting. A session created
// earlier is released first. A nil opts uses DefaultOptions.
func (c *Client) Create(url string, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}

	factory := opts.Transport
	if factory == nil {
		factory = newSocketTransport
	}

	transport, err := factory(url, opts, c.logger)
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	s := &session{
		transport: transport,
		options:   opts,
		metrics:   opts.metrics(),
	}
	s.classifier = incoming.NewClassifier(c.listeners, c.logger, incoming.WithObserver(s.metrics))
	s.table = newRegistrationTable(transport, c.handlers(s))

	c.mu.Lock()
	previous := c.session
	c.session = s
	if opts.Language != "" {
		c.language = opts.Language
	}
	c.mu.Unlock()

	if previous != nil {
		c.releaseSession(previous)
	}

	c.state.Store(int32(StateDisconnected))
	c.logger.Info("Session created", "url", url)
	return nil
}

// handlers builds the inbound handler of every event the session can attach.
func (c *Client) handlers(s *session) map[string]contracts.EventHandler {
	handlers := map[string]contracts.EventHandler{
		contracts.EventConnect:         c.guard(s, func([]json.RawMessage) { c.onConnect(s) }),
		contracts.EventDisconnect:      c.guard(s, c.onDisconnect),
		contracts.EventReconnectFailed: c.guard(s, c.onReconnectFailed),
	}

	for _, event := range []string{
		contracts.EventMessage,
		contracts.EventCategoryList,
		contracts.EventUserQueue,
		contracts.EventOperatorGreet,
		contracts.EventOperatorTyping,
		contracts.EventCard102Update,
		contracts.EventFeedback,
		contracts.EventFormInit,
		contracts.EventFormFinal,
		contracts.EventTaskMessage,
		contracts.EventLocationUpdate,
	} {
		event := event
		handlers[event] = c.guard(s, func(args []json.RawMessage) {
			_ = s.classifier.Handle(event, args)
		})
	}

	return handlers
}

func (c *Client) guard(s *session, handler contracts.EventHandler) contracts.EventHandler {
	return func(args []json.RawMessage) {
		if s.released.Load() {
			return
		}
		handler(args)
	}
}

func (c *Client) onConnect(s *session) {
	id := s.transport.ID()
	c.sessionID.Store(id)
	c.state.Store(int32(StateConnected))
	c.disconnectNotified.Store(false)
	c.logger.Info("Connected", "id", id)

	if l := c.listeners.ConnectionState(); l != nil {
		l.OnConnect()
	}
}

func (c *Client) onDisconnect(args []json.RawMessage) {
	var reason string
	if len(args) > 0 {
		_ = json.Unmarshal(args[0], &reason)
	}

	c.sessionID.Store("")
	c.state.Store(int32(StateDisconnected))
	c.lastActive.Store(time.Now().UnixMilli())
	c.logger.Info("Disconnected", "reason", reason)

	c.notifyDisconnect()
}

func (c *Client) onReconnectFailed([]json.RawMessage) {
	c.state.Store(int32(StateDisconnected))
	c.logger.Warn("Reconnection attempts exhausted")

	c.notifyDisconnect()
}

// notifyDisconnect reports a lost session once until the next connect.
func (c *Client) notifyDisconnect() {
	if c.disconnectNotified.Swap(true) {
		return
	}
	if l := c.listeners.ConnectionState(); l != nil {
		l.OnDisconnect()
	}
}

func (c *Client) current() *session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Connect opens the session. When the network is reported unavailable the
// ConnectionState listener is told about the disconnect and
// ErrNetworkUnavailable is returned.
func (c *Client) Connect(ctx context.Context) error {
	s := c.current()
	if s == nil {
		return ErrNoTransport
	}

	if !s.options.networkAvailable() {
		c.logger.Warn("Network is unavailable, not connecting")
		if l := c.listeners.ConnectionState(); l != nil {
			l.OnDisconnect()
		}
		return ErrNetworkUnavailable
	}

	c.state.Store(int32(StateConnecting))
	if err := s.transport.Connect(ctx); err != nil {
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("failed to connect: %w", err)
	}
	return nil
}

// Disconnect closes the session gracefully. Handlers stay registered so a
// later Connect resumes delivery.
func (c *Client) Disconnect() error {
	s := c.current()
	if s == nil {
		return ErrNoTransport
	}

	if err := s.transport.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	c.state.Store(int32(StateDisconnected))
	return nil
}

// Release detaches every handler, closes the transport and clears the
// listeners. Inbound events that arrive afterwards are ignored. It is safe to
// call at any time, including from a listener callback.
func (c *Client) Release() {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s != nil {
		c.releaseSession(s)
	}

	c.listeners.Clear()
	c.sessionID.Store("")
	c.state.Store(int32(StateDisconnected))
}

func (c *Client) releaseSession(s *session) {
	s.released.Store(true)
	s.table.clear()
	s.transport.OffAll()

	if err := s.transport.Disconnect(); err != nil {
		c.logger.Debug("Transport disconnect on release failed", "error", err)
	}
	c.logger.Info("Session released")
}

// ID returns the session id assigned by the server on connect.
func (c *Client) ID() string {
	id, _ := c.sessionID.Load().(string)
	return id
}

// LastActiveTime returns when the last disconnect happened, or the zero time.
func (c *Client) LastActiveTime() time.Time {
	ms := c.lastActive.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (c *Client) IsConnected() bool {
	s := c.current()
	return s != nil && s.transport.IsConnected()
}

func (c *Client) State() State {
	return State(c.state.Load())
}

// Language returns the language written to outbound payloads.
func (c *Client) Language() types.Language {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.language
}

// SetLanguage changes the language of later outbound payloads without
// telling the backend; see SendUserLanguage.
func (c *Client) SetLanguage(lang types.Language) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.language = lang
}
