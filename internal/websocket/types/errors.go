package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotConnected       = errors.New("not connected")
	ErrNoTransport        = errors.New("no transport, call Create first")
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrMalformedPacket    = errors.New("malformed packet")
	ErrTooManyPendingAcks = errors.New("too many pending acknowledgements")
	ErrHandshakeTimeout   = errors.New("handshake timeout")
)

// DisconnectReason describes why a transport session ended
type DisconnectReason string

const (
	ReasonServerDisconnect DisconnectReason = "io server disconnect"
	ReasonClientDisconnect DisconnectReason = "io client disconnect"
	ReasonPingTimeout      DisconnectReason = "ping timeout"
	ReasonTransportClose   DisconnectReason = "transport close"
	ReasonTransportError   DisconnectReason = "transport error"
)

// ShouldReconnect reports whether the transport may reconnect on its own.
// A server or client initiated disconnect is final.
func (r DisconnectReason) ShouldReconnect() bool {
	switch r {
	case ReasonServerDisconnect, ReasonClientDisconnect:
		return false
	default:
		return true
	}
}

// ConnectError is returned when the server refuses the namespace connection
type ConnectError struct {
	Namespace string
	Message   string
	Data      json.RawMessage
	Err       error
}

// Error implements the error interface
func (e *ConnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connect error [%s]: %s: %v", e.Namespace, e.Message, e.Err)
	}
	return fmt.Sprintf("connect error [%s]: %s", e.Namespace, e.Message)
}

// Unwrap returns the underlying error
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// NewConnectError creates a new namespace connect error
func NewConnectError(namespace, message string, err error) *ConnectError {
	return &ConnectError{
		Namespace: namespace,
		Message:   message,
		Err:       err,
	}
}

// IsConnectError reports whether err is a refused namespace connection
func IsConnectError(err error) bool {
	var connectErr *ConnectError
	return errors.As(err, &connectErr)
}
