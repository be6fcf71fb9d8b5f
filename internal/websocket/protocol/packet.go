// Package protocol encodes and decodes Engine.IO v4 and Socket.IO v5 text
// packets carried over a websocket connection.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ProtocolVersion is the Engine.IO revision spoken by the transport.
const ProtocolVersion = "4"

// DefaultPath is the Engine.IO endpoint path used by Socket.IO servers.
const DefaultPath = "/socket.io/"

// DefaultNamespace is the main Socket.IO namespace.
const DefaultNamespace = "/"

var (
	ErrEmptyPacket       = errors.New("empty packet")
	ErrMalformedPacket   = errors.New("malformed packet")
	ErrBinaryUnsupported = errors.New("binary packets are not supported")
)

// EngineType is the Engine.IO packet type, sent as the first character of a
// websocket text frame.
type EngineType byte

const (
	EngineOpen    EngineType = '0'
	EngineClose   EngineType = '1'
	EnginePing    EngineType = '2'
	EnginePong    EngineType = '3'
	EngineMessage EngineType = '4'
	EngineUpgrade EngineType = '5'
	EngineNoop    EngineType = '6'
)

func (t EngineType) String() string {
	switch t {
	case EngineOpen:
		return "open"
	case EngineClose:
		return "close"
	case EnginePing:
		return "ping"
	case EnginePong:
		return "pong"
	case EngineMessage:
		return "message"
	case EngineUpgrade:
		return "upgrade"
	case EngineNoop:
		return "noop"
	default:
		return "unknown"
	}
}

// PacketType is the Socket.IO packet type carried inside an Engine.IO message.
type PacketType int

const (
	PacketConnect PacketType = iota
	PacketDisconnect
	PacketEvent
	PacketAck
	PacketConnectError
	PacketBinaryEvent
	PacketBinaryAck
)

func (t PacketType) String() string {
	switch t {
	case PacketConnect:
		return "connect"
	case PacketDisconnect:
		return "disconnect"
	case PacketEvent:
		return "event"
	case PacketAck:
		return "ack"
	case PacketConnectError:
		return "connect_error"
	case PacketBinaryEvent:
		return "binary_event"
	case PacketBinaryAck:
		return "binary_ack"
	default:
		return "unknown"
	}
}

// Handshake is the payload of the Engine.IO open packet
type Handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

// Packet is a decoded Socket.IO packet
type Packet struct {
	Type      PacketType
	Namespace string
	// ID is the acknowledgement id, -1 when absent.
	ID   int
	Data json.RawMessage
}

// HasID reports whether the packet carries an acknowledgement id.
func (p Packet) HasID() bool {
	return p.ID >= 0
}

// DecodeEngine splits a websocket text frame into its Engine.IO type and
// payload.
func DecodeEngine(frame string) (EngineType, string, error) {
	if frame == "" {
		return 0, "", ErrEmptyPacket
	}
	t := EngineType(frame[0])
	if t < EngineOpen || t > EngineNoop {
		return 0, "", fmt.Errorf("%w: engine type %q", ErrMalformedPacket, frame[0])
	}
	return t, frame[1:], nil
}

// EncodeEngine builds an Engine.IO text frame.
func EncodeEngine(t EngineType, payload string) string {
	return string(t) + payload
}

// DecodeHandshake parses the payload of an open packet.
func DecodeHandshake(payload string) (*Handshake, error) {
	var handshake Handshake
	if err := json.Unmarshal([]byte(payload), &handshake); err != nil {
		return nil, fmt.Errorf("%w: handshake: %v", ErrMalformedPacket, err)
	}
	if handshake.SID == "" {
		return nil, fmt.Errorf("%w: handshake without sid", ErrMalformedPacket)
	}
	return &handshake, nil
}

// DecodePacket parses the payload of an Engine.IO message as a Socket.IO
// packet.
func DecodePacket(payload string) (Packet, error) {
	packet := Packet{Namespace: DefaultNamespace, ID: -1}
	if payload == "" {
		return packet, ErrEmptyPacket
	}

	t := payload[0]
	if t < '0' || t > '6' {
		return packet, fmt.Errorf("%w: packet type %q", ErrMalformedPacket, t)
	}
	packet.Type = PacketType(t - '0')
	if packet.Type == PacketBinaryEvent || packet.Type == PacketBinaryAck {
		return packet, ErrBinaryUnsupported
	}

	rest := payload[1:]

	if strings.HasPrefix(rest, "/") {
		end := strings.IndexByte(rest, ',')
		if end < 0 {
			packet.Namespace = rest
			rest = ""
		} else {
			packet.Namespace = rest[:end]
			rest = rest[end+1:]
		}
	}

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits > 0 {
		id, err := strconv.Atoi(rest[:digits])
		if err != nil {
			return packet, fmt.Errorf("%w: ack id: %v", ErrMalformedPacket, err)
		}
		packet.ID = id
		rest = rest[digits:]
	}

	if rest != "" {
		if !json.Valid([]byte(rest)) {
			return packet, fmt.Errorf("%w: invalid json payload", ErrMalformedPacket)
		}
		packet.Data = json.RawMessage(rest)
	}

	return packet, nil
}

// EncodePacket renders a Socket.IO packet as an Engine.IO message payload.
func EncodePacket(packet Packet) string {
	var b strings.Builder
	b.WriteByte(byte('0' + packet.Type))
	if packet.Namespace != "" && packet.Namespace != DefaultNamespace {
		b.WriteString(packet.Namespace)
		b.WriteByte(',')
	}
	if packet.HasID() {
		b.WriteString(strconv.Itoa(packet.ID))
	}
	b.Write(packet.Data)
	return b.String()
}

// EncodeMessage renders a Socket.IO packet as a complete websocket text frame.
func EncodeMessage(packet Packet) string {
	return EncodeEngine(EngineMessage, EncodePacket(packet))
}

// NewEvent builds an event packet. A nil data sends the event name only.
func NewEvent(namespace, event string, data interface{}, ackID int) (Packet, error) {
	args := []interface{}{event}
	if data != nil {
		args = append(args, data)
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return Packet{}, fmt.Errorf("failed to encode event %s: %w", event, err)
	}
	return Packet{Type: PacketEvent, Namespace: namespace, ID: ackID, Data: raw}, nil
}

// NewConnect builds the namespace connect packet.
func NewConnect(namespace string, auth interface{}) (Packet, error) {
	packet := Packet{Type: PacketConnect, Namespace: namespace, ID: -1}
	if auth != nil {
		raw, err := json.Marshal(auth)
		if err != nil {
			return Packet{}, fmt.Errorf("failed to encode auth: %w", err)
		}
		packet.Data = raw
	}
	return packet, nil
}

// EventArgs splits an event packet into the event name and its arguments.
func (p Packet) EventArgs() (string, []json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(p.Data, &items); err != nil || len(items) == 0 {
		return "", nil, fmt.Errorf("%w: event payload must be a non-empty array", ErrMalformedPacket)
	}
	var name string
	if err := json.Unmarshal(items[0], &name); err != nil || name == "" {
		return "", nil, fmt.Errorf("%w: event name must be a string", ErrMalformedPacket)
	}
	return name, items[1:], nil
}

// AckArgs returns the arguments of an ack packet.
func (p Packet) AckArgs() ([]json.RawMessage, error) {
	if len(p.Data) == 0 {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(p.Data, &items); err != nil {
		return nil, fmt.Errorf("%w: ack payload must be an array", ErrMalformedPacket)
	}
	return items, nil
}

// ConnectPayload is the data of a namespace connect reply
type ConnectPayload struct {
	SID string `json:"sid"`
}

// ConnectErrorPayload is the data of a connect_error packet
type ConnectErrorPayload struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Endpoint resolves a backend URL into the websocket endpoint to dial and the
// Socket.IO namespace taken from the URL path. For example
// "https://host/user?x=1" dials "wss://host/socket.io/?EIO=4&transport=websocket&x=1"
// and joins namespace "/user".
func Endpoint(rawURL, path string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("url %q has no host", rawURL)
	}

	namespace := strings.TrimRight(u.Path, "/")
	if namespace == "" {
		namespace = DefaultNamespace
	}

	if path == "" {
		path = DefaultPath
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	u.Path = path

	query := u.Query()
	query.Set("EIO", ProtocolVersion)
	query.Set("transport", "websocket")
	u.RawQuery = query.Encode()

	return u.String(), namespace, nil
}
