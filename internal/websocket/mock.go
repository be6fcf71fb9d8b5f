// Package websocket holds test doubles for the Socket.IO transport
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"kenes-socket-go/internal/websocket/types"
	contracts "kenes-socket-go/pkg/contracts/socket"
)

// MockTransport implements contracts.Transport for testing
type MockTransport struct {
	connected bool
	id        string
	mu        sync.RWMutex

	// Emitted events for assertions
	emits   []MockEmit
	emitsMu sync.RWMutex

	handlers   map[string]contracts.EventHandler
	handlersMu sync.RWMutex

	// Configuration for testing
	shouldFailConnect bool
	shouldFailSend    bool
	ackResponse       []json.RawMessage
	connectCalls      int
	disconnectCalls   int
}

// MockEmit represents an event emitted through the mock
type MockEmit struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	HasAck    bool            `json:"has_ack"`
	Timestamp time.Time       `json:"timestamp"`
}

// Decode unmarshals the emitted payload into v
func (e MockEmit) Decode(v interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no payload", e.Event)
	}
	return json.Unmarshal(e.Data, v)
}

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		id:       "mock-socket-id",
		handlers: make(map[string]contracts.EventHandler),
	}
}

// Connect simulates a successful namespace join and fires connect
func (m *MockTransport) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.connectCalls++
	if m.shouldFailConnect {
		m.mu.Unlock()
		return fmt.Errorf("mock connection failed")
	}
	m.connected = true
	m.mu.Unlock()

	m.Deliver(contracts.EventConnect, nil)
	return nil
}

// Disconnect simulates a client side disconnect
func (m *MockTransport) Disconnect() error {
	m.mu.Lock()
	m.disconnectCalls++
	wasConnected := m.connected
	m.connected = false
	m.mu.Unlock()

	if wasConnected {
		m.Deliver(contracts.EventDisconnect, string(types.ReasonClientDisconnect))
	}
	return nil
}

// IsConnected returns the simulated connection status
func (m *MockTransport) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// ID returns the simulated session id
func (m *MockTransport) ID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return ""
	}
	return m.id
}

// Emit records the event
func (m *MockTransport) Emit(event string, data interface{}, ack contracts.AckFunc) error {
	if m.shouldFailSend {
		return fmt.Errorf("mock send failed")
	}
	if !m.IsConnected() {
		return types.ErrNotConnected
	}

	emit := MockEmit{
		Event:     event,
		HasAck:    ack != nil,
		Timestamp: time.Now(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", event, err)
		}
		emit.Data = raw
	}

	m.emitsMu.Lock()
	m.emits = append(m.emits, emit)
	m.emitsMu.Unlock()

	if ack != nil && m.ackResponse != nil {
		ack(m.ackResponse)
	}
	return nil
}

// On registers a handler
func (m *MockTransport) On(event string, handler contracts.EventHandler) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.handlers[event] = handler
}

// Off removes a handler
func (m *MockTransport) Off(event string) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	delete(m.handlers, event)
}

// OffAll removes every handler
func (m *MockTransport) OffAll() {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.handlers = make(map[string]contracts.EventHandler)
}

// HasHandler reports whether event has a handler
func (m *MockTransport) HasHandler(event string) bool {
	m.handlersMu.RLock()
	defer m.handlersMu.RUnlock()
	_, ok := m.handlers[event]
	return ok
}

// HandlerCount returns the number of registered handlers
func (m *MockTransport) HandlerCount() int {
	m.handlersMu.RLock()
	defer m.handlersMu.RUnlock()
	return len(m.handlers)
}

// Deliver simulates an inbound event. A nil payload delivers no arguments.
// It reports whether a handler was registered.
func (m *MockTransport) Deliver(event string, payload interface{}) bool {
	var args []json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			panic(fmt.Sprintf("mock transport: cannot encode %s payload: %v", event, err))
		}
		args = append(args, raw)
	}
	return m.DeliverArgs(event, args...)
}

// DeliverRaw simulates an inbound event with an already encoded payload
func (m *MockTransport) DeliverRaw(event, payload string) bool {
	return m.DeliverArgs(event, json.RawMessage(payload))
}

// DeliverArgs simulates an inbound event with raw arguments
func (m *MockTransport) DeliverArgs(event string, args ...json.RawMessage) bool {
	m.handlersMu.RLock()
	handler, ok := m.handlers[event]
	m.handlersMu.RUnlock()

	if !ok {
		return false
	}
	handler(args)
	return true
}

// SimulateReconnectFailed drops the connection and fires reconnect_failed
func (m *MockTransport) SimulateReconnectFailed() {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()

	m.Deliver(contracts.EventReconnectFailed, nil)
}

// SetShouldFailConnect sets whether Connect fails
func (m *MockTransport) SetShouldFailConnect(shouldFail bool) {
	m.shouldFailConnect = shouldFail
}

// SetShouldFailSend sets whether Emit fails
func (m *MockTransport) SetShouldFailSend(shouldFail bool) {
	m.shouldFailSend = shouldFail
}

// SetAckResponse makes Emit call ack callbacks with args
func (m *MockTransport) SetAckResponse(args ...interface{}) {
	m.ackResponse = make([]json.RawMessage, 0, len(args))
	for _, arg := range args {
		raw, _ := json.Marshal(arg)
		m.ackResponse = append(m.ackResponse, raw)
	}
}

// SetID sets the session id reported while connected
func (m *MockTransport) SetID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = id
}

// ConnectCalls returns how many times Connect was called
func (m *MockTransport) ConnectCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connectCalls
}

// DisconnectCalls returns how many times Disconnect was called
func (m *MockTransport) DisconnectCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.disconnectCalls
}

// GetEmits returns all emitted events
func (m *MockTransport) GetEmits() []MockEmit {
	m.emitsMu.RLock()
	defer m.emitsMu.RUnlock()
	return append([]MockEmit(nil), m.emits...)
}

// GetLastEmit returns the most recent emitted event
func (m *MockTransport) GetLastEmit() *MockEmit {
	m.emitsMu.RLock()
	defer m.emitsMu.RUnlock()
	if len(m.emits) == 0 {
		return nil
	}
	emit := m.emits[len(m.emits)-1]
	return &emit
}

// GetEmitsByEvent returns the emitted events with the given name
func (m *MockTransport) GetEmitsByEvent(event string) []MockEmit {
	m.emitsMu.RLock()
	defer m.emitsMu.RUnlock()

	var emits []MockEmit
	for _, emit := range m.emits {
		if emit.Event == event {
			emits = append(emits, emit)
		}
	}
	return emits
}

// ClearEmits clears the recorded events
func (m *MockTransport) ClearEmits() {
	m.emitsMu.Lock()
	defer m.emitsMu.Unlock()
	m.emits = nil
}

var _ contracts.Transport = (*MockTransport)(nil)
