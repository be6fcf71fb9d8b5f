package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEngine(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		typ     EngineType
		payload string
		wantErr bool
	}{
		{name: "ping", frame: "2", typ: EnginePing},
		{name: "message", frame: `42["message",{}]`, typ: EngineMessage, payload: `2["message",{}]`},
		{name: "open", frame: `0{"sid":"abc"}`, typ: EngineOpen, payload: `{"sid":"abc"}`},
		{name: "empty", frame: "", wantErr: true},
		{name: "garbage", frame: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, payload, err := DecodeEngine(tt.frame)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.typ, typ)
			assert.Equal(t, tt.payload, payload)
		})
	}
}

func TestDecodeHandshake(t *testing.T) {
	handshake, err := DecodeHandshake(`{"sid":"lv_VI97HAXpY6yYWAAAC","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`)
	require.NoError(t, err)
	assert.Equal(t, "lv_VI97HAXpY6yYWAAAC", handshake.SID)
	assert.Equal(t, 25000, handshake.PingInterval)
	assert.Equal(t, 20000, handshake.PingTimeout)

	_, err = DecodeHandshake(`{"pingInterval":1}`)
	assert.ErrorIs(t, err, ErrMalformedPacket)
}

func TestDecodePacket(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		typ       PacketType
		namespace string
		id        int
		data      string
	}{
		{name: "connect reply", payload: `0{"sid":"x"}`, typ: PacketConnect, namespace: "/", id: -1, data: `{"sid":"x"}`},
		{name: "namespaced connect", payload: `0/user,{"sid":"x"}`, typ: PacketConnect, namespace: "/user", id: -1, data: `{"sid":"x"}`},
		{name: "event", payload: `2["message",{"text":"hi"}]`, typ: PacketEvent, namespace: "/", id: -1, data: `["message",{"text":"hi"}]`},
		{name: "event with ack", payload: `2/user,12["feedback"]`, typ: PacketEvent, namespace: "/user", id: 12, data: `["feedback"]`},
		{name: "ack", payload: `3/user,7["ok"]`, typ: PacketAck, namespace: "/user", id: 7, data: `["ok"]`},
		{name: "disconnect", payload: `1/user,`, typ: PacketDisconnect, namespace: "/user", id: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packet, err := DecodePacket(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, packet.Type)
			assert.Equal(t, tt.namespace, packet.Namespace)
			assert.Equal(t, tt.id, packet.ID)
			assert.Equal(t, tt.data, string(packet.Data))
		})
	}
}

func TestDecodePacketErrors(t *testing.T) {
	_, err := DecodePacket("")
	assert.ErrorIs(t, err, ErrEmptyPacket)

	_, err = DecodePacket(`51-["upload",{"_placeholder":true,"num":0}]`)
	assert.ErrorIs(t, err, ErrBinaryUnsupported)

	_, err = DecodePacket(`2["message",`)
	assert.ErrorIs(t, err, ErrMalformedPacket)

	_, err = DecodePacket(`9`)
	assert.ErrorIs(t, err, ErrMalformedPacket)
}

func TestEncodeEventRoundTrip(t *testing.T) {
	packet, err := NewEvent("/user", "user_message", map[string]string{"text": "hello"}, 3)
	require.NoError(t, err)

	frame := EncodeMessage(packet)
	assert.Equal(t, `42/user,3["user_message",{"text":"hello"}]`, frame)

	typ, payload, err := DecodeEngine(frame)
	require.NoError(t, err)
	require.Equal(t, EngineMessage, typ)

	decoded, err := DecodePacket(payload)
	require.NoError(t, err)

	name, args, err := decoded.EventArgs()
	require.NoError(t, err)
	assert.Equal(t, "user_message", name)
	require.Len(t, args, 1)

	var body map[string]string
	require.NoError(t, json.Unmarshal(args[0], &body))
	assert.Equal(t, "hello", body["text"])
}

func TestNewEventWithoutData(t *testing.T) {
	packet, err := NewEvent("/", "cancel", nil, -1)
	require.NoError(t, err)
	assert.Equal(t, `42["cancel"]`, EncodeMessage(packet))
}

func TestNewConnect(t *testing.T) {
	packet, err := NewConnect("/user", nil)
	require.NoError(t, err)
	assert.Equal(t, "40/user,", EncodeMessage(packet))

	packet, err = NewConnect("/", nil)
	require.NoError(t, err)
	assert.Equal(t, "40", EncodeMessage(packet))
}

func TestEventArgsErrors(t *testing.T) {
	_, _, err := Packet{Type: PacketEvent, Data: json.RawMessage(`[]`)}.EventArgs()
	assert.ErrorIs(t, err, ErrMalformedPacket)

	_, _, err = Packet{Type: PacketEvent, Data: json.RawMessage(`[42]`)}.EventArgs()
	assert.ErrorIs(t, err, ErrMalformedPacket)
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		endpoint  string
		namespace string
		wantErr   bool
	}{
		{
			name:      "https with namespace",
			url:       "https://kenes.1414.kz/user",
			endpoint:  "wss://kenes.1414.kz/socket.io/?EIO=4&transport=websocket",
			namespace: "/user",
		},
		{
			name:      "http root",
			url:       "http://localhost:3000",
			endpoint:  "ws://localhost:3000/socket.io/?EIO=4&transport=websocket",
			namespace: "/",
		},
		{
			name:      "query kept",
			url:       "wss://host/user/?token=t",
			endpoint:  "wss://host/socket.io/?EIO=4&token=t&transport=websocket",
			namespace: "/user",
		},
		{name: "bad scheme", url: "ftp://host", wantErr: true},
		{name: "no host", url: "https:///user", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint, namespace, err := Endpoint(tt.url, "")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.endpoint, endpoint)
			assert.Equal(t, tt.namespace, namespace)
		})
	}
}
