// Package client provides the reconnecting Socket.IO client over gorilla/websocket
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kenes-socket-go/internal/websocket/types"
	"kenes-socket-go/pkg/logger"
)

// Connection manages a single websocket session at a time
type Connection struct {
	logger  *logger.Logger
	config  *types.ConnectionConfig
	conn    *websocket.Conn
	done    chan struct{}
	closeMu *sync.Once
	connMu  sync.RWMutex
	state   types.ConnectionState
	stateMu sync.RWMutex
	writeMu sync.Mutex

	// Liveness tracking, refreshed by every inbound frame
	lastFrameTime time.Time
	liveness      time.Duration
	frameMu       sync.RWMutex

	// Reconnection signaling
	reconnectCh chan types.DisconnectReason
}

// NewConnection creates a new websocket connection manager
func NewConnection(logger *logger.Logger, config *types.ConnectionConfig) *Connection {
	if config == nil {
		config = types.DefaultConnectionConfig()
	}

	return &Connection{
		logger:        logger.With("component", "websocket_connection"),
		config:        config,
		state:         types.StateDisconnected,
		lastFrameTime: time.Now(),
		liveness:      config.ReadTimeout,
		reconnectCh:   make(chan types.DisconnectReason, 1),
	}
}

// Connect dials a new websocket session
func (c *Connection) Connect(ctx context.Context, config *types.ConnectionConfig) error {
	if config != nil {
		c.config = config
	}

	c.setState(types.StateConnecting)

	dialer := websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  c.config.HandshakeTimeout,
		EnableCompression: c.config.EnableCompression,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
	}

	if c.config.TLSConfig != nil {
		dialer.TLSClientConfig = c.config.TLSConfig
	}

	conn, resp, err := dialer.DialContext(ctx, c.config.URL, c.config.Header)
	if err != nil {
		c.setState(types.StateDisconnected)
		if resp != nil {
			return fmt.Errorf("failed to dial websocket (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to dial websocket: %w", err)
	}

	conn.SetCloseHandler(func(code int, text string) error {
		c.logger.Info("WebSocket connection closed by server", "code", code, "text", text)
		return nil
	})

	// A signal left over from the previous session must not end this one.
	select {
	case <-c.reconnectCh:
	default:
	}

	c.connMu.Lock()
	c.conn = conn
	c.done = make(chan struct{})
	c.closeMu = &sync.Once{}
	c.connMu.Unlock()

	c.frameMu.Lock()
	c.liveness = c.config.ReadTimeout
	c.frameMu.Unlock()

	c.touch()
	c.setState(types.StateConnected)

	return nil
}

// Disconnect closes the current session without signaling reconnection
func (c *Connection) Disconnect() error {
	c.closeSession(types.ReasonClientDisconnect, false)
	return nil
}

// Drop closes the current session and signals the reconnection loop
func (c *Connection) Drop(reason types.DisconnectReason) {
	c.closeSession(reason, true)
}

func (c *Connection) closeSession(reason types.DisconnectReason, notify bool) {
	c.connMu.Lock()
	conn, done, once := c.conn, c.done, c.closeMu
	c.conn = nil
	c.connMu.Unlock()

	if once == nil {
		return
	}

	once.Do(func() {
		c.setState(types.StateDisconnecting)

		if conn != nil {
			if !notify {
				c.writeMu.Lock()
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				c.writeMu.Unlock()
			}
			conn.Close()
		}

		close(done)
		c.setState(types.StateDisconnected)
		c.logger.Debug("WebSocket session closed", "reason", string(reason))

		if notify {
			c.triggerReconnection(reason)
		}
	})
}

// IsConnected returns true if a websocket session is open
func (c *Connection) IsConnected() bool {
	return c.getState() == types.StateConnected
}

// GetState returns the current connection state
func (c *Connection) GetState() types.ConnectionState {
	return c.getState()
}

// SendFrame writes one text frame
func (c *Connection) SendFrame(frame string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn := c.getConnection()
	if conn == nil {
		return types.ErrNotConnected
	}

	if err := conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	return conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

// StartReading reads text frames of the current session into frames until
// the session ends. Frames are never dropped: the reader blocks until the
// consumer takes them.
func (c *Connection) StartReading(ctx context.Context, frames chan<- string) error {
	c.connMu.RLock()
	conn, done := c.conn, c.done
	c.connMu.RUnlock()

	if conn == nil {
		return types.ErrNotConnected
	}

	go func() {
		defer c.logger.Debug("WebSocket frame reader stopped")

		for {
			if err := conn.SetReadDeadline(time.Now().Add(c.getLiveness())); err != nil {
				c.logger.Debug("Failed to set read deadline", "error", err)
			}

			messageType, data, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-done:
					return
				default:
				}

				reason := classifyReadError(err)
				if reason == types.ReasonTransportError {
					c.logger.Error("WebSocket read error", "error", err)
				} else {
					c.logger.Info("WebSocket connection lost", "reason", string(reason), "error", err)
				}
				c.Drop(reason)
				return
			}

			if messageType != websocket.TextMessage {
				c.logger.Debug("Ignoring binary frame", "size", len(data))
				continue
			}

			c.touch()

			select {
			case frames <- string(data):
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()

	return nil
}

func classifyReadError(err error) types.DisconnectReason {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.ReasonPingTimeout
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return types.ReasonTransportClose
	}
	return types.ReasonTransportError
}

// SetLiveness sets how long the session may stay silent before it is
// considered dead. The server handshake provides pingInterval + pingTimeout.
func (c *Connection) SetLiveness(d time.Duration) {
	if d <= 0 {
		return
	}

	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	c.liveness = d
}

// GetLastFrameTime returns the timestamp of the last received frame
func (c *Connection) GetLastFrameTime() time.Time {
	c.frameMu.RLock()
	defer c.frameMu.RUnlock()
	return c.lastFrameTime
}

// IsHealthy checks if a frame was received within the liveness window
func (c *Connection) IsHealthy() bool {
	if !c.IsConnected() {
		return false
	}

	return time.Since(c.GetLastFrameTime()) <= c.getLiveness()
}

// GetReconnectChannel returns the channel that reports dropped sessions
func (c *Connection) GetReconnectChannel() <-chan types.DisconnectReason {
	return c.reconnectCh
}

func (c *Connection) getConnection() *websocket.Conn {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn
}

func (c *Connection) getLiveness() time.Duration {
	c.frameMu.RLock()
	defer c.frameMu.RUnlock()
	if c.liveness <= 0 {
		return time.Minute
	}
	return c.liveness
}

func (c *Connection) setState(state types.ConnectionState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.state != state {
		oldState := c.state
		c.state = state
		c.logger.Debug("Connection state changed", "from", oldState.String(), "to", state.String())
	}
}

func (c *Connection) getState() types.ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *Connection) touch() {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	c.lastFrameTime = time.Now()
}

func (c *Connection) triggerReconnection(reason types.DisconnectReason) {
	select {
	case c.reconnectCh <- reason:
		c.logger.Info("Reconnection triggered", "reason", string(reason))
	default:
	}
}
