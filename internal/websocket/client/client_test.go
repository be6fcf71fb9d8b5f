package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kenes-socket-go/internal/testws"
	"kenes-socket-go/internal/websocket/retry"
	"kenes-socket-go/internal/websocket/types"
	contracts "kenes-socket-go/pkg/contracts/socket"
	"kenes-socket-go/pkg/logger"
)

const waitTimeout = 3 * time.Second

func startServer(t *testing.T) *testws.TestSocketServer {
	t.Helper()
	server := testws.NewTestSocketServer("127.0.0.1:0", logger.Nop())
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(func() { server.Stop() })
	return server
}

func newTestClient(t *testing.T, url string, reconnection *retry.Config) *SocketClient {
	t.Helper()
	config := DefaultClientConfig()
	config.Connection.URL = url
	config.Connection.HandshakeTimeout = time.Second
	if reconnection != nil {
		config.Reconnection = reconnection
		config.Delay = retry.Fixed(reconnection.InitialDelay)
	}

	client, err := NewSocketClient(config, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { client.Disconnect() })
	return client
}

func fastReconnect(attempts int) *retry.Config {
	return &retry.Config{
		Enabled:      true,
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		MaxAttempts:  attempts,
	}
}

// signal returns a handler that reports each call on the returned channel
func signal() (contracts.EventHandler, chan []json.RawMessage) {
	ch := make(chan []json.RawMessage, 16)
	return func(args []json.RawMessage) { ch <- args }, ch
}

func waitFor(t *testing.T, ch chan []json.RawMessage, what string) []json.RawMessage {
	t.Helper()
	select {
	case args := <-ch:
		return args
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s", what)
		return nil
	}
}

func TestNewSocketClientRejectsBadURL(t *testing.T) {
	config := DefaultClientConfig()
	config.Connection.URL = "ftp://example.com"

	_, err := NewSocketClient(config, logger.Nop())
	assert.Error(t, err)
}

func TestConnectJoinsNamespace(t *testing.T) {
	server := startServer(t)
	client := newTestClient(t, server.URL("/user"), nil)
	assert.Equal(t, "/user", client.Namespace())

	onConnect, connected := signal()
	client.On(contracts.EventConnect, onConnect)

	require.NoError(t, client.Connect(context.Background()))
	waitFor(t, connected, "connect")

	assert.True(t, client.IsConnected())
	assert.NotEmpty(t, client.ID())
	assert.Equal(t, types.StateConnected, client.GetConnectionState())
	assert.True(t, client.IsHealthy())
}

func TestEmitWithAck(t *testing.T) {
	server := startServer(t)
	server.RegisterAckResponder("user_message", func(event testws.ReceivedEvent) []interface{} {
		return []interface{}{map[string]string{"status": "delivered"}}
	})

	client := newTestClient(t, server.URL("/user"), nil)
	onConnect, connected := signal()
	client.On(contracts.EventConnect, onConnect)
	require.NoError(t, client.Connect(context.Background()))
	waitFor(t, connected, "connect")

	acks := make(chan []json.RawMessage, 1)
	require.NoError(t, client.Emit("user_message", map[string]string{"text": "hi"}, func(args []json.RawMessage) {
		acks <- args
	}))

	args := waitFor(t, acks, "ack")
	require.Len(t, args, 1)
	assert.JSONEq(t, `{"status":"delivered"}`, string(args[0]))

	event, ok := server.WaitForEvent("user_message", waitTimeout)
	require.True(t, ok)
	var body map[string]string
	require.NoError(t, event.Decode(&body))
	assert.Equal(t, "hi", body["text"])
}

func TestEmitWithoutConnection(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1/user", nil)

	err := client.Emit("user_message", nil, nil)
	assert.True(t, errors.Is(err, types.ErrNotConnected))
}

func TestReceivesServerEvents(t *testing.T) {
	server := startServer(t)
	client := newTestClient(t, server.URL("/user"), nil)

	onConnect, connected := signal()
	onMessage, messages := signal()
	client.On(contracts.EventConnect, onConnect)
	client.On(contracts.EventMessage, onMessage)

	require.NoError(t, client.Connect(context.Background()))
	waitFor(t, connected, "connect")

	require.NoError(t, server.EmitRaw("/user", "message", `{"text":"hello"}`))

	args := waitFor(t, messages, "message")
	require.Len(t, args, 1)
	assert.JSONEq(t, `{"text":"hello"}`, string(args[0]))

	client.Off(contracts.EventMessage)
	require.NoError(t, server.EmitRaw("/user", "message", `{"text":"ignored"}`))
	select {
	case <-messages:
		t.Fatal("handler called after Off")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReconnectsAfterDrop(t *testing.T) {
	server := startServer(t)
	client := newTestClient(t, server.URL("/user"), fastReconnect(3))

	onConnect, connected := signal()
	onDisconnect, disconnected := signal()
	client.On(contracts.EventConnect, onConnect)
	client.On(contracts.EventDisconnect, onDisconnect)

	require.NoError(t, client.Connect(context.Background()))
	waitFor(t, connected, "first connect")

	server.DropAll()

	waitFor(t, disconnected, "disconnect")
	waitFor(t, connected, "reconnect")
	assert.Equal(t, 2, server.ConnectionCount())
}

func TestServerDisconnectDoesNotReconnect(t *testing.T) {
	server := startServer(t)
	client := newTestClient(t, server.URL("/user"), fastReconnect(3))

	onConnect, connected := signal()
	onDisconnect, disconnected := signal()
	client.On(contracts.EventConnect, onConnect)
	client.On(contracts.EventDisconnect, onDisconnect)

	require.NoError(t, client.Connect(context.Background()))
	waitFor(t, connected, "connect")

	server.DisconnectAll("/user")

	args := waitFor(t, disconnected, "disconnect")
	var reason string
	require.NoError(t, json.Unmarshal(args[0], &reason))
	assert.Equal(t, string(types.ReasonServerDisconnect), reason)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, server.ConnectionCount())
	assert.False(t, client.IsConnected())
}

func TestReconnectFailedAfterAttemptsExhausted(t *testing.T) {
	server := startServer(t)
	url := server.URL("/user")
	require.NoError(t, server.Stop())

	client := newTestClient(t, url, fastReconnect(2))

	onConnectError, connectErrors := signal()
	onFailed, failed := signal()
	client.On(contracts.EventConnectError, onConnectError)
	client.On(contracts.EventReconnectFailed, onFailed)

	require.NoError(t, client.Connect(context.Background()))

	waitFor(t, failed, "reconnect_failed")
	assert.Len(t, connectErrors, 3)
	assert.Equal(t, types.StateDisconnected, client.GetConnectionState())
}

func TestConnectErrorWithoutReconnection(t *testing.T) {
	server := startServer(t)
	server.RejectNamespaces(func(namespace string) string { return "Not authorized" })

	client := newTestClient(t, server.URL("/user"), retry.DisabledConfig())

	err := client.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsConnectError(err))
	assert.False(t, client.IsConnected())
}

func TestDisconnectFiresClientDisconnect(t *testing.T) {
	server := startServer(t)
	client := newTestClient(t, server.URL("/user"), nil)

	onConnect, connected := signal()
	onDisconnect, disconnected := signal()
	client.On(contracts.EventConnect, onConnect)
	client.On(contracts.EventDisconnect, onDisconnect)

	require.NoError(t, client.Connect(context.Background()))
	waitFor(t, connected, "connect")

	require.NoError(t, client.Disconnect())

	args := waitFor(t, disconnected, "disconnect")
	var reason string
	require.NoError(t, json.Unmarshal(args[0], &reason))
	assert.Equal(t, string(types.ReasonClientDisconnect), reason)
	assert.False(t, client.IsConnected())
	assert.Empty(t, client.ID())

	// Disconnect is idempotent
	require.NoError(t, client.Disconnect())
}

func TestDisconnectWaitsForHandlerInFlight(t *testing.T) {
	server := startServer(t)
	client := newTestClient(t, server.URL("/user"), nil)

	onConnect, connected := signal()
	client.On(contracts.EventConnect, onConnect)

	var inFlight atomic.Bool
	entered := make(chan struct{})
	release := make(chan struct{})
	client.On(contracts.EventMessage, func([]json.RawMessage) {
		inFlight.Store(true)
		close(entered)
		<-release
		inFlight.Store(false)
	})

	overlapped := make(chan bool, 1)
	client.On(contracts.EventDisconnect, func([]json.RawMessage) {
		overlapped <- inFlight.Load()
	})

	require.NoError(t, client.Connect(context.Background()))
	waitFor(t, connected, "connect")

	require.NoError(t, server.EmitRaw("/user", "message", `{"text":"hold"}`))
	select {
	case <-entered:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for message handler")
	}

	done := make(chan error, 1)
	go func() { done <- client.Disconnect() }()

	select {
	case <-overlapped:
		t.Fatal("disconnect handler ran while the message handler was still running")
	case <-time.After(100 * time.Millisecond):
	}
	close(release)

	select {
	case o := <-overlapped:
		assert.False(t, o)
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for disconnect")
	}
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("Disconnect did not return")
	}
	assert.Equal(t, types.StateDisconnected, client.GetConnectionState())
}

func TestDisconnectFromHandler(t *testing.T) {
	server := startServer(t)
	client := newTestClient(t, server.URL("/user"), nil)

	onConnect, connected := signal()
	client.On(contracts.EventConnect, onConnect)

	var handlerReturned atomic.Bool
	returned := make(chan error, 1)
	client.On(contracts.EventMessage, func([]json.RawMessage) {
		returned <- client.Disconnect()
		handlerReturned.Store(true)
	})

	afterHandler := make(chan bool, 1)
	client.On(contracts.EventDisconnect, func([]json.RawMessage) {
		afterHandler <- handlerReturned.Load()
	})

	require.NoError(t, client.Connect(context.Background()))
	waitFor(t, connected, "connect")
	require.NoError(t, server.EmitRaw("/user", "message", `{"text":"bye"}`))

	select {
	case err := <-returned:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("Disconnect from a handler did not return")
	}

	select {
	case after := <-afterHandler:
		assert.True(t, after)
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for disconnect")
	}
	assert.False(t, client.IsConnected())
}

func TestOffAllDetachesHandlers(t *testing.T) {
	server := startServer(t)
	client := newTestClient(t, server.URL("/user"), nil)

	onConnect, connected := signal()
	client.On(contracts.EventConnect, onConnect)
	client.On(contracts.EventMessage, func([]json.RawMessage) {})
	client.OffAll()

	assert.Empty(t, client.GetStats()["registered_handlers"])

	require.NoError(t, client.Connect(context.Background()))
	select {
	case <-connected:
		t.Fatal("connect handler called after OffAll")
	case <-time.After(200 * time.Millisecond):
	}
}
