// Package types defines core types and interfaces for the Socket.IO transport
package types

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	contracts "kenes-socket-go/pkg/contracts/socket"
)

// ConnectionState represents the current state of the transport connection
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

// String returns a human-readable string representation of the connection state
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// PendingAck is an emitted event waiting for the server acknowledgement
type PendingAck struct {
	ID       int
	Event    string
	Callback contracts.AckFunc
	Created  time.Time
}

// ConnectionConfig holds configuration for the websocket connection
type ConnectionConfig struct {
	URL string `yaml:"url" json:"url"`
	// Path is the Engine.IO endpoint path, "/socket.io/" when empty.
	Path string `yaml:"path" json:"path"`
	// HandshakeTimeout bounds a single connection attempt: dial, open packet
	// and namespace connect.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" json:"handshake_timeout"`
	// ReadTimeout is used as the liveness deadline when the server handshake
	// carries no ping settings.
	ReadTimeout       time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout" json:"write_timeout"`
	AckTimeout        time.Duration `yaml:"ack_timeout" json:"ack_timeout"`
	MaxPendingAcks    int           `yaml:"max_pending_acks" json:"max_pending_acks"`
	MessageBufferSize int           `yaml:"message_buffer_size" json:"message_buffer_size"`
	EnableCompression bool          `yaml:"enable_compression" json:"enable_compression"`
	Header            http.Header   `yaml:"-" json:"-"`
	TLSConfig         *tls.Config   `yaml:"-" json:"-"`
}

// DefaultConnectionConfig returns a configuration with sensible defaults
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		HandshakeTimeout:  20 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      10 * time.Second,
		AckTimeout:        30 * time.Second,
		MaxPendingAcks:    256,
		MessageBufferSize: 100,
		EnableCompression: false,
	}
}

// FrameSender writes raw Engine.IO text frames
type FrameSender interface {
	SendFrame(frame string) error
}

// ConnectionManager defines the interface for managing the websocket connection
type ConnectionManager interface {
	FrameSender
	Connect(ctx context.Context, config *ConnectionConfig) error
	Disconnect() error
	IsConnected() bool
	GetState() ConnectionState
	StartReading(ctx context.Context, frames chan<- string) error
}
