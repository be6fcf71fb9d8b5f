// Package message routes decoded Socket.IO packets to event handlers and
// acknowledgement callbacks
package message

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"kenes-socket-go/internal/websocket/protocol"
	"kenes-socket-go/internal/websocket/types"
	contracts "kenes-socket-go/pkg/contracts/socket"
	"kenes-socket-go/pkg/logger"
)

// Processor handles incoming Engine.IO frames for a single namespace
type Processor struct {
	logger      *logger.Logger
	config      *ProcessorConfig
	namespace   string
	handlers    map[string]contracts.EventHandler
	handlersMu  sync.RWMutex
	pendingAcks map[int]*types.PendingAck
	nextAckID   int
	acksMu      sync.Mutex
	sender      types.FrameSender

	// Callback functions for session level packets
	onOpen         func(handshake *protocol.Handshake)
	onConnect      func(sid string)
	onConnectError func(err *types.ConnectError)
	onDisconnect   func(reason types.DisconnectReason)
}

// ProcessorConfig holds configuration for the packet processor
type ProcessorConfig struct {
	// How long an emitted event may wait for its acknowledgement
	AckTimeout time.Duration `json:"ack_timeout" yaml:"ack_timeout"`

	// Maximum number of acknowledgements waiting at once
	MaxPendingAcks int `json:"max_pending_acks" yaml:"max_pending_acks"`

	// Whether to recover from panics in handlers
	EnablePanicRecovery bool `json:"enable_panic_recovery" yaml:"enable_panic_recovery"`
}

// DefaultProcessorConfig returns processor configuration with sensible defaults
func DefaultProcessorConfig() *ProcessorConfig {
	return &ProcessorConfig{
		AckTimeout:          30 * time.Second,
		MaxPendingAcks:      256,
		EnablePanicRecovery: true,
	}
}

// NewProcessor creates a new packet processor bound to namespace
func NewProcessor(logger *logger.Logger, sender types.FrameSender, namespace string, config *ProcessorConfig) *Processor {
	if config == nil {
		config = DefaultProcessorConfig()
	}
	if namespace == "" {
		namespace = protocol.DefaultNamespace
	}

	return &Processor{
		logger:      logger.With("component", "socket_processor"),
		config:      config,
		namespace:   namespace,
		handlers:    make(map[string]contracts.EventHandler),
		pendingAcks: make(map[int]*types.PendingAck),
		sender:      sender,
	}
}

// SetOpenHandler sets the callback for the Engine.IO handshake
func (p *Processor) SetOpenHandler(handler func(handshake *protocol.Handshake)) {
	p.onOpen = handler
}

// SetConnectHandler sets the callback for the namespace connect reply
func (p *Processor) SetConnectHandler(handler func(sid string)) {
	p.onConnect = handler
}

// SetConnectErrorHandler sets the callback for a refused namespace connect
func (p *Processor) SetConnectErrorHandler(handler func(err *types.ConnectError)) {
	p.onConnectError = handler
}

// SetDisconnectHandler sets the callback for server and transport closes
func (p *Processor) SetDisconnectHandler(handler func(reason types.DisconnectReason)) {
	p.onDisconnect = handler
}

// Namespace returns the namespace the processor accepts packets for
func (p *Processor) Namespace() string {
	return p.namespace
}

// ProcessFrame routes one websocket text frame
func (p *Processor) ProcessFrame(frame string) {
	engineType, payload, err := protocol.DecodeEngine(frame)
	if err != nil {
		p.logger.Warn("Dropping malformed frame", "error", err)
		return
	}

	switch engineType {
	case protocol.EngineOpen:
		handshake, err := protocol.DecodeHandshake(payload)
		if err != nil {
			p.logger.Error("Invalid handshake", "error", err)
			return
		}
		if p.onOpen != nil {
			p.onOpen(handshake)
		}

	case protocol.EnginePing:
		if err := p.sender.SendFrame(protocol.EncodeEngine(protocol.EnginePong, payload)); err != nil {
			p.logger.Error("Failed to send pong response", "error", err)
		}

	case protocol.EnginePong:
		p.logger.Debug("Received pong")

	case protocol.EngineClose:
		if p.onDisconnect != nil {
			p.onDisconnect(types.ReasonTransportClose)
		}

	case protocol.EngineMessage:
		p.processPacket(payload)

	default:
		p.logger.Debug("Ignoring engine packet", "type", engineType.String())
	}
}

func (p *Processor) processPacket(payload string) {
	packet, err := protocol.DecodePacket(payload)
	if err != nil {
		p.logger.Warn("Dropping malformed packet", "error", err)
		return
	}

	if packet.Namespace != p.namespace {
		p.logger.Debug("Ignoring packet for other namespace", "namespace", packet.Namespace)
		return
	}

	switch packet.Type {
	case protocol.PacketConnect:
		var reply protocol.ConnectPayload
		if len(packet.Data) > 0 {
			if err := json.Unmarshal(packet.Data, &reply); err != nil {
				p.logger.Warn("Invalid connect payload", "error", err)
			}
		}
		if p.onConnect != nil {
			p.onConnect(reply.SID)
		}

	case protocol.PacketConnectError:
		var reply protocol.ConnectErrorPayload
		if len(packet.Data) > 0 {
			if err := json.Unmarshal(packet.Data, &reply); err != nil {
				// Socket.IO v2 servers send a bare string.
				_ = json.Unmarshal(packet.Data, &reply.Message)
			}
		}
		connectErr := types.NewConnectError(packet.Namespace, reply.Message, nil)
		connectErr.Data = reply.Data
		if p.onConnectError != nil {
			p.onConnectError(connectErr)
		}

	case protocol.PacketDisconnect:
		if p.onDisconnect != nil {
			p.onDisconnect(types.ReasonServerDisconnect)
		}

	case protocol.PacketEvent:
		p.handleEvent(packet)

	case protocol.PacketAck:
		p.handleAck(packet)

	default:
		p.logger.Warn("Unknown packet type", "type", packet.Type.String())
	}
}

// RegisterHandler registers an event handler for a specific event
func (p *Processor) RegisterHandler(event string, handler contracts.EventHandler) {
	p.handlersMu.Lock()
	defer p.handlersMu.Unlock()

	p.handlers[event] = handler
}

// UnregisterHandler removes an event handler
func (p *Processor) UnregisterHandler(event string) {
	p.handlersMu.Lock()
	defer p.handlersMu.Unlock()

	delete(p.handlers, event)
}

// UnregisterAll removes every event handler
func (p *Processor) UnregisterAll() {
	p.handlersMu.Lock()
	defer p.handlersMu.Unlock()

	p.handlers = make(map[string]contracts.EventHandler)
}

// Dispatch runs the handler registered for a locally generated event such as
// connect or reconnect_failed.
func (p *Processor) Dispatch(event string, args ...json.RawMessage) {
	p.handlersMu.RLock()
	handler, exists := p.handlers[event]
	p.handlersMu.RUnlock()

	if !exists {
		p.logger.Debug("No handler for local event", "event", event)
		return
	}

	p.executeHandler(event, handler, args)
}

// RegisterPendingAck reserves an acknowledgement id for an outgoing event
func (p *Processor) RegisterPendingAck(event string, callback contracts.AckFunc) (int, error) {
	p.acksMu.Lock()
	defer p.acksMu.Unlock()

	if len(p.pendingAcks) >= p.config.MaxPendingAcks {
		return -1, fmt.Errorf("%w: %d", types.ErrTooManyPendingAcks, len(p.pendingAcks))
	}

	id := p.nextAckID
	p.nextAckID++

	p.pendingAcks[id] = &types.PendingAck{
		ID:       id,
		Event:    event,
		Callback: callback,
		Created:  time.Now(),
	}
	p.logger.Debug("Registered pending ack", "ack_id", id, "event", event)
	return id, nil
}

// UnregisterPendingAck removes a pending acknowledgement
func (p *Processor) UnregisterPendingAck(id int) *types.PendingAck {
	p.acksMu.Lock()
	defer p.acksMu.Unlock()

	ack, exists := p.pendingAcks[id]
	if exists {
		delete(p.pendingAcks, id)
	}

	return ack
}

func (p *Processor) handleAck(packet protocol.Packet) {
	if !packet.HasID() {
		p.logger.Warn("Ack packet without id")
		return
	}

	ack := p.UnregisterPendingAck(packet.ID)
	if ack == nil {
		p.logger.Warn("Received ack for unknown id", "ack_id", packet.ID)
		return
	}

	args, err := packet.AckArgs()
	if err != nil {
		p.logger.Warn("Dropping malformed ack", "ack_id", packet.ID, "error", err)
		return
	}

	if ack.Callback == nil {
		return
	}

	p.execute(ack.Event, func() { ack.Callback(args) })
}

func (p *Processor) handleEvent(packet protocol.Packet) {
	event, args, err := packet.EventArgs()
	if err != nil {
		p.logger.Warn("Dropping malformed event", "error", err)
		return
	}

	p.handlersMu.RLock()
	handler, exists := p.handlers[event]
	p.handlersMu.RUnlock()

	if !exists {
		p.logger.Debug("No handler for event", "event", event)
	} else {
		p.executeHandler(event, handler, args)
	}

	if packet.HasID() {
		p.sendAck(packet.ID)
	}
}

// executeHandler runs handler on the calling goroutine so that events are
// delivered in arrival order.
func (p *Processor) executeHandler(event string, handler contracts.EventHandler, args []json.RawMessage) {
	p.execute(event, func() { handler(args) })
}

func (p *Processor) execute(event string, fn func()) {
	if p.config.EnablePanicRecovery {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Handler panic", "event", event, "panic", r)
			}
		}()
	}

	fn()
}

func (p *Processor) sendAck(id int) {
	frame := protocol.EncodeMessage(protocol.Packet{
		Type:      protocol.PacketAck,
		Namespace: p.namespace,
		ID:        id,
		Data:      json.RawMessage("[]"),
	})

	if err := p.sender.SendFrame(frame); err != nil {
		p.logger.Error("Failed to send ack", "ack_id", id, "error", err)
	}
}

// GetPendingAckCount returns the number of pending acknowledgements
func (p *Processor) GetPendingAckCount() int {
	p.acksMu.Lock()
	defer p.acksMu.Unlock()
	return len(p.pendingAcks)
}

// GetRegisteredHandlers returns the events that currently have a handler
func (p *Processor) GetRegisteredHandlers() []string {
	p.handlersMu.RLock()
	defer p.handlersMu.RUnlock()

	handlers := make([]string, 0, len(p.handlers))
	for event := range p.handlers {
		handlers = append(handlers, event)
	}
	return handlers
}

// HasHandler reports whether event has a handler
func (p *Processor) HasHandler(event string) bool {
	p.handlersMu.RLock()
	defer p.handlersMu.RUnlock()

	_, exists := p.handlers[event]
	return exists
}

// CleanupExpiredAcks drops acknowledgements older than maxAge. A zero maxAge
// uses the configured ack timeout.
func (p *Processor) CleanupExpiredAcks(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = p.config.AckTimeout
	}

	p.acksMu.Lock()
	defer p.acksMu.Unlock()

	now := time.Now()
	expired := 0

	for id, ack := range p.pendingAcks {
		if now.Sub(ack.Created) > maxAge {
			delete(p.pendingAcks, id)
			expired++
			p.logger.Debug("Ack expired", "ack_id", id, "event", ack.Event)
		}
	}

	if expired > 0 {
		p.logger.Info("Cleaned up expired acks", "count", expired)
	}

	return expired
}
