package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"kenes-socket-go/internal/websocket/message"
	"kenes-socket-go/internal/websocket/protocol"
	"kenes-socket-go/internal/websocket/retry"
	"kenes-socket-go/internal/websocket/types"
	contracts "kenes-socket-go/pkg/contracts/socket"
	"kenes-socket-go/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// SocketClient is a reconnecting Socket.IO client bound to one namespace.
// It implements contracts.Transport.
type SocketClient struct {
	logger *logger.Logger
	config *ClientConfig

	// Core components
	connection *Connection
	processor  *message.Processor
	reconnects *retry.Tracker

	endpoint  string
	namespace string

	// Session
	sid         string
	sidMu       sync.RWMutex
	connected   atomic.Bool
	state       types.ConnectionState
	stateMu     sync.RWMutex
	handshake   chan error
	handshakeMu sync.Mutex

	// Lifecycle management
	lifecycle *lifecycle
	mu        sync.Mutex

	// Inbound queues drained by the processing goroutine
	frames      chan string
	local       chan localEvent
	dispatching atomic.Bool
}

type lifecycle struct {
	cancel   context.CancelFunc
	loopDone chan struct{}
	procDone chan struct{}

	// final is dispatched by the processing goroutine after everything
	// queued before it.
	final atomic.Pointer[localEvent]
}

type localEvent struct {
	name string
	args []json.RawMessage
}

// ClientConfig holds complete configuration for the Socket.IO client
type ClientConfig struct {
	// Connection configuration
	Connection *types.ConnectionConfig `json:"connection" yaml:"connection"`

	// Packet processing configuration
	Message *message.ProcessorConfig `json:"message" yaml:"message"`

	// Reconnection policy
	Reconnection *retry.Config `json:"reconnection" yaml:"reconnection"`

	// Delay overrides the randomized schedule built from Reconnection.
	Delay retry.Delay `json:"-" yaml:"-"`
}

// DefaultClientConfig returns a client configuration with sensible defaults
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Connection:   types.DefaultConnectionConfig(),
		Message:      message.DefaultProcessorConfig(),
		Reconnection: retry.DefaultConfig(),
	}
}

// NewSocketClient creates a client for the backend URL in config. The
// namespace is taken from the URL path.
func NewSocketClient(config *ClientConfig, logger *logger.Logger) (*SocketClient, error) {
	if config == nil {
		config = DefaultClientConfig()
	}
	if config.Connection == nil {
		config.Connection = types.DefaultConnectionConfig()
	}
	if config.Message == nil {
		config.Message = message.DefaultProcessorConfig()
	}
	if config.Reconnection == nil {
		config.Reconnection = retry.DefaultConfig()
	}
	if err := config.Reconnection.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reconnection config: %w", err)
	}

	endpoint, namespace, err := protocol.Endpoint(config.Connection.URL, config.Connection.Path)
	if err != nil {
		return nil, err
	}

	bufferSize := config.Connection.MessageBufferSize
	if bufferSize <= 0 {
		bufferSize = 100
	}

	client := &SocketClient{
		logger:    logger.With("component", "socket_client", "namespace", namespace),
		config:    config,
		endpoint:  endpoint,
		namespace: namespace,
		state:     types.StateDisconnected,
		frames:    make(chan string, bufferSize),
		local:     make(chan localEvent, 16),
	}

	client.connection = NewConnection(logger, config.Connection)
	client.processor = message.NewProcessor(logger, client.connection, namespace, config.Message)
	client.reconnects = retry.NewTracker(config.Reconnection, config.Delay)

	client.setupPacketCallbacks()

	return client, nil
}

// setupPacketCallbacks wires session level packets to the client state
func (c *SocketClient) setupPacketCallbacks() {
	c.processor.SetOpenHandler(func(handshake *protocol.Handshake) {
		c.logger.Debug("Engine handshake received", "sid", handshake.SID,
			"ping_interval", handshake.PingInterval, "ping_timeout", handshake.PingTimeout)

		if handshake.PingInterval > 0 {
			c.connection.SetLiveness(time.Duration(handshake.PingInterval+handshake.PingTimeout) * time.Millisecond)
		}

		packet, err := protocol.NewConnect(c.namespace, nil)
		if err != nil {
			c.signalHandshake(err)
			return
		}
		if err := c.connection.SendFrame(protocol.EncodeMessage(packet)); err != nil {
			c.signalHandshake(fmt.Errorf("failed to join namespace: %w", err))
		}
	})

	c.processor.SetConnectHandler(func(sid string) {
		if !c.awaitingHandshake() {
			c.logger.Warn("Ignoring unexpected connect packet")
			return
		}

		c.setSID(sid)
		c.connected.Store(true)
		c.setState(types.StateConnected)
		c.logger.Info("Connected", "sid", sid)

		c.processor.Dispatch(contracts.EventConnect)
		c.signalHandshake(nil)
	})

	c.processor.SetConnectErrorHandler(func(err *types.ConnectError) {
		c.logger.Warn("Namespace connection refused", "message", err.Message)
		c.signalHandshake(err)
	})

	c.processor.SetDisconnectHandler(func(reason types.DisconnectReason) {
		c.connected.Store(false)
		c.connection.Drop(reason)
	})
}

// Connect starts the connection loop. ctx bounds the first attempt only;
// the loop runs until Disconnect. With reconnection enabled Connect returns
// immediately and the outcome is reported through the connect, connect_error
// and reconnect_failed events. With reconnection disabled it waits for the
// first attempt and returns its error.
func (c *SocketClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.lifecycle != nil {
		select {
		case <-c.lifecycle.loopDone:
			// Previous loop gave up, start over.
			lc := c.lifecycle
			c.lifecycle = nil
			c.mu.Unlock()
			c.stop(lc)
			c.mu.Lock()
		default:
			c.mu.Unlock()
			return nil
		}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	lc := &lifecycle{
		cancel:   cancel,
		loopDone: make(chan struct{}),
		procDone: make(chan struct{}),
	}
	c.lifecycle = lc
	c.mu.Unlock()

	c.reconnects.Reset()

	first := make(chan error, 1)
	go c.processingLoop(loopCtx, lc)
	go c.connectionLoop(loopCtx, ctx, lc.loopDone, first)

	if c.config.Reconnection.Enabled {
		return nil
	}
	return <-first
}

// connectionLoop handles automatic reconnection with retry logic
func (c *SocketClient) connectionLoop(ctx, firstCtx context.Context, done chan struct{}, first chan<- error) {
	defer close(done)

	report := func(err error) {
		if first != nil {
			first <- err
			first = nil
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			report(err)
			return
		}

		c.setState(types.StateConnecting)

		err := c.connectOnce(ctx, firstCtx)
		firstCtx = nil
		report(err)

		if err == nil {
			c.reconnects.Reset()

			var reason types.DisconnectReason
			select {
			case <-ctx.Done():
				return
			case reason = <-c.connection.GetReconnectChannel():
			}

			c.markDisconnected(ctx, reason)

			if !reason.ShouldReconnect() || !c.config.Reconnection.Enabled {
				c.setState(types.StateDisconnected)
				return
			}
		} else {
			if ctx.Err() != nil {
				return
			}

			c.logger.Warn("Connection attempt failed", "attempt", c.reconnects.Attempts(), "error", err)
			c.enqueue(ctx, contracts.EventConnectError, errorPayload(err))

			if types.IsConnectError(err) || !c.config.Reconnection.Enabled {
				c.setState(types.StateDisconnected)
				return
			}
		}

		if c.reconnects.Exhausted() {
			c.logger.Error("Reconnection attempts exhausted", "attempts", c.reconnects.Attempts())
			c.setState(types.StateDisconnected)
			c.enqueue(ctx, contracts.EventReconnectFailed, nil)
			return
		}

		attempt, delay := c.reconnects.Next()
		c.logger.Info("Reconnecting", "attempt", attempt, "delay", delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// connectOnce dials, waits for the Engine.IO handshake and joins the namespace
func (c *SocketClient) connectOnce(ctx, callerCtx context.Context) error {
	timeout := c.config.Connection.HandshakeTimeout
	if timeout <= 0 {
		timeout = types.DefaultConnectionConfig().HandshakeTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if callerCtx != nil {
		stop := context.AfterFunc(callerCtx, cancel)
		defer stop()
	}

	handshake := make(chan error, 1)
	c.setHandshake(handshake)
	defer c.setHandshake(nil)

	dialConfig := *c.config.Connection
	dialConfig.URL = c.endpoint

	if err := c.connection.Connect(attemptCtx, &dialConfig); err != nil {
		return fmt.Errorf("failed to establish connection: %w", err)
	}

	if err := c.connection.StartReading(ctx, c.frames); err != nil {
		c.connection.Disconnect()
		return fmt.Errorf("failed to start reading: %w", err)
	}

	select {
	case err := <-handshake:
		if err != nil {
			c.connection.Disconnect()
			return err
		}
		return nil

	case reason := <-c.connection.GetReconnectChannel():
		return fmt.Errorf("connection closed during handshake: %s", reason)

	case <-attemptCtx.Done():
		c.connection.Disconnect()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if callerCtx != nil && callerCtx.Err() != nil {
			return callerCtx.Err()
		}
		return types.ErrHandshakeTimeout
	}
}

// processingLoop handles inbound frames and local events one at a time. It
// stops with the connection loop once the queued local events are delivered.
func (c *SocketClient) processingLoop(ctx context.Context, lc *lifecycle) {
	defer close(lc.procDone)
	defer c.logger.Debug("Packet processing loop stopped")

	cleanupInterval := c.config.Message.AckTimeout
	if cleanupInterval <= 0 {
		cleanupInterval = message.DefaultProcessorConfig().AckTimeout
	}
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-lc.loopDone
			c.finish(lc)
			return
		case frame := <-c.frames:
			c.dispatching.Store(true)
			c.processor.ProcessFrame(frame)
			c.dispatching.Store(false)
		case event := <-c.local:
			c.dispatchLocal(event)
		case <-ticker.C:
			c.processor.CleanupExpiredAcks(0)
		case <-lc.loopDone:
			c.finish(lc)
			return
		}
	}
}

// finish delivers the queued local events, then the final event of lc. A
// final disconnect replaces any queued one, which only reports the transport
// closing underneath it.
func (c *SocketClient) finish(lc *lifecycle) {
	final := lc.final.Swap(nil)
	for {
		select {
		case event := <-c.local:
			if final != nil && event.name == final.name {
				continue
			}
			c.dispatchLocal(event)
		default:
			if final != nil {
				c.dispatchLocal(*final)
			}
			return
		}
	}
}

func (c *SocketClient) dispatchLocal(event localEvent) {
	c.dispatching.Store(true)
	defer c.dispatching.Store(false)
	c.processor.Dispatch(event.name, event.args...)
}

func (c *SocketClient) markDisconnected(ctx context.Context, reason types.DisconnectReason) {
	c.connected.Store(false)
	c.setSID("")
	c.logger.Info("Disconnected", "reason", string(reason))
	c.enqueue(ctx, contracts.EventDisconnect, reasonPayload(reason))
}

func (c *SocketClient) enqueue(ctx context.Context, event string, args []json.RawMessage) {
	select {
	case c.local <- localEvent{name: event, args: args}:
	case <-ctx.Done():
	}
}

// Disconnect closes the session and stops reconnecting. The disconnect event
// runs on the processing goroutine after any handler in flight. Called from a
// handler, Disconnect returns before that event is delivered.
func (c *SocketClient) Disconnect() error {
	c.mu.Lock()
	lc := c.lifecycle
	c.lifecycle = nil
	c.mu.Unlock()

	if lc == nil {
		return nil
	}

	c.logger.Info("Disconnecting socket client")
	c.setState(types.StateDisconnecting)

	if c.connected.Swap(false) {
		frame := protocol.EncodeMessage(protocol.Packet{Type: protocol.PacketDisconnect, Namespace: c.namespace, ID: -1})
		if err := c.connection.SendFrame(frame); err != nil {
			c.logger.Debug("Failed to send disconnect packet", "error", err)
		}
		lc.final.Store(&localEvent{name: contracts.EventDisconnect, args: reasonPayload(types.ReasonClientDisconnect)})
	}

	c.stop(lc)
	c.setSID("")
	c.setState(types.StateDisconnected)

	return nil
}

func (c *SocketClient) stop(lc *lifecycle) {
	lc.cancel()
	c.connection.Disconnect()

	waitFor := []chan struct{}{lc.loopDone}
	// A handler may call Disconnect from the processing goroutine itself,
	// which then finishes the lifecycle once the handler returns.
	if !c.dispatching.Load() {
		waitFor = append(waitFor, lc.procDone)
	}

	timeout := time.After(shutdownTimeout)
	for _, done := range waitFor {
		select {
		case <-done:
		case <-timeout:
			c.logger.Warn("Client shutdown timeout")
			return
		}
	}
}

// Emit sends an event. A non-nil ack is called with the server
// acknowledgement arguments.
func (c *SocketClient) Emit(event string, data interface{}, ack contracts.AckFunc) error {
	if !c.IsConnected() {
		return types.ErrNotConnected
	}

	id := -1
	if ack != nil {
		var err error
		id, err = c.processor.RegisterPendingAck(event, ack)
		if err != nil {
			return fmt.Errorf("failed to register ack: %w", err)
		}
	}

	packet, err := protocol.NewEvent(c.namespace, event, data, id)
	if err != nil {
		if id >= 0 {
			c.processor.UnregisterPendingAck(id)
		}
		return err
	}

	if err := c.connection.SendFrame(protocol.EncodeMessage(packet)); err != nil {
		if id >= 0 {
			c.processor.UnregisterPendingAck(id)
		}
		return fmt.Errorf("failed to send %s: %w", event, err)
	}

	return nil
}

// On registers the handler for an inbound or local event
func (c *SocketClient) On(event string, handler contracts.EventHandler) {
	c.processor.RegisterHandler(event, handler)
}

// Off removes the handler for event
func (c *SocketClient) Off(event string) {
	c.processor.UnregisterHandler(event)
}

// OffAll removes every handler
func (c *SocketClient) OffAll() {
	c.processor.UnregisterAll()
}

// ID returns the session id assigned by the server on namespace connect
func (c *SocketClient) ID() string {
	c.sidMu.RLock()
	defer c.sidMu.RUnlock()
	return c.sid
}

// IsConnected returns true if the namespace is joined
func (c *SocketClient) IsConnected() bool {
	return c.connected.Load() && c.connection.IsConnected()
}

// GetConnectionState returns the current session state
func (c *SocketClient) GetConnectionState() types.ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Namespace returns the Socket.IO namespace the client joins
func (c *SocketClient) Namespace() string {
	return c.namespace
}

// GetStats returns connection and processing statistics
func (c *SocketClient) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"connection_state":    c.GetConnectionState().String(),
		"is_connected":        c.IsConnected(),
		"last_frame_time":     c.connection.GetLastFrameTime(),
		"pending_acks":        c.processor.GetPendingAckCount(),
		"registered_handlers": c.processor.GetRegisteredHandlers(),
		"retry_attempts":      c.reconnects.Attempts(),
	}
}

// IsHealthy checks if the session received traffic within its liveness window
func (c *SocketClient) IsHealthy() bool {
	return c.IsConnected() && c.connection.IsHealthy()
}

func (c *SocketClient) setState(state types.ConnectionState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.state != state {
		oldState := c.state
		c.state = state
		c.logger.Debug("Client state changed", "from", oldState.String(), "to", state.String())
	}
}

func (c *SocketClient) setSID(sid string) {
	c.sidMu.Lock()
	defer c.sidMu.Unlock()
	c.sid = sid
}

func (c *SocketClient) setHandshake(ch chan error) {
	c.handshakeMu.Lock()
	defer c.handshakeMu.Unlock()
	c.handshake = ch
}

func (c *SocketClient) awaitingHandshake() bool {
	c.handshakeMu.Lock()
	defer c.handshakeMu.Unlock()
	return c.handshake != nil
}

func (c *SocketClient) signalHandshake(err error) {
	c.handshakeMu.Lock()
	defer c.handshakeMu.Unlock()

	if c.handshake == nil {
		return
	}
	select {
	case c.handshake <- err:
	default:
	}
}

func reasonPayload(reason types.DisconnectReason) []json.RawMessage {
	raw, _ := json.Marshal(string(reason))
	return []json.RawMessage{raw}
}

func errorPayload(err error) []json.RawMessage {
	body := map[string]string{"message": err.Error()}
	var connectErr *types.ConnectError
	if errors.As(err, &connectErr) {
		body["message"] = connectErr.Message
	}
	raw, _ := json.Marshal(body)
	return []json.RawMessage{raw}
}
var _ contracts.Transport = (*SocketClient)(nil)
