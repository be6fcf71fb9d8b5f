package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kenes-socket-go/internal/config"
	"kenes-socket-go/internal/device"
	"kenes-socket-go/internal/websocket"
	contracts "kenes-socket-go/pkg/contracts/socket"
	"kenes-socket-go/pkg/logger"
	"kenes-socket-go/pkg/socket"
	"kenes-socket-go/pkg/types"
)

func newTestRuntime(t *testing.T) (*runtime, *websocket.MockTransport, *bytes.Buffer) {
	t.Helper()

	transport := websocket.NewMockTransport()
	opts := socket.DefaultOptions()
	opts.Transport = func(string, *socket.Options, *logger.Logger) (contracts.Transport, error) {
		return transport, nil
	}

	out := &bytes.Buffer{}
	client := socket.NewClient(logger.Nop())
	p := newPrinter(out)
	p.install(client.Listeners())
	require.NoError(t, client.Create("https://kenes.example/user", opts))
	client.RegisterAllEventListeners()
	require.NoError(t, client.Connect(context.Background()))

	return &runtime{
		config:  config.Default(),
		logger:  logger.Nop(),
		client:  client,
		device:  device.NewCollector(nil),
		printer: p,
	}, transport, out
}

func TestExecute(t *testing.T) {
	tests := []struct {
		line  string
		event string
		check func(t *testing.T, payload map[string]interface{})
	}{
		{"hello there", contracts.EmitUserMessage, func(t *testing.T, payload map[string]interface{}) {
			assert.Equal(t, "hello there", payload["text"])
		}},
		{"/categories", contracts.EmitUserDashboard, func(t *testing.T, payload map[string]interface{}) {
			assert.Equal(t, "get_category_list", payload["action"])
			assert.EqualValues(t, 0, payload["parent_id"])
		}},
		{"/categories 12", contracts.EmitUserDashboard, func(t *testing.T, payload map[string]interface{}) {
			assert.EqualValues(t, 12, payload["parent_id"])
		}},
		{"/external pay now", contracts.EmitExternal, func(t *testing.T, payload map[string]interface{}) {
			assert.Equal(t, "pay now", payload["callback_data"])
		}},
		{"/accept", contracts.EmitMessage, func(t *testing.T, payload map[string]interface{}) {
			assert.Equal(t, "call_accept", payload["action"])
		}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			r, transport, _ := newTestRuntime(t)

			require.NoError(t, execute(r.client, tt.line))

			emits := transport.GetEmitsByEvent(tt.event)
			require.Len(t, emits, 1)

			var payload map[string]interface{}
			require.NoError(t, emits[0].Decode(&payload))
			tt.check(t, payload)
		})
	}
}

func TestExecuteErrors(t *testing.T) {
	r, transport, _ := newTestRuntime(t)

	assert.NoError(t, execute(r.client, "   "))
	assert.ErrorIs(t, execute(r.client, "/quit"), errQuit)
	assert.ErrorContains(t, execute(r.client, "/categories abc"), "invalid category id")
	assert.ErrorContains(t, execute(r.client, "/rate 5"), "argument 2 is required")
	assert.ErrorContains(t, execute(r.client, "/lang de"), "unsupported language")
	assert.ErrorContains(t, execute(r.client, "/dance"), "unknown command")
	assert.Empty(t, transport.GetEmits())
}

func TestExecuteLanguage(t *testing.T) {
	r, _, _ := newTestRuntime(t)

	require.NoError(t, execute(r.client, "/lang kk"))
	assert.Equal(t, types.LanguageKazakh, r.client.Language())
}

func TestInteract(t *testing.T) {
	r, transport, out := newTestRuntime(t)

	input := strings.NewReader("/help\nfirst\n/dance\nsecond\n/quit\nnever sent\n")
	require.NoError(t, r.interact(context.Background(), input))

	emits := transport.GetEmitsByEvent(contracts.EmitUserMessage)
	require.Len(t, emits, 2)
	assert.Contains(t, out.String(), "Commands:")
	assert.Contains(t, out.String(), "! unknown command /dance")
}

func TestInteractEOF(t *testing.T) {
	r, transport, _ := newTestRuntime(t)

	require.NoError(t, r.interact(context.Background(), strings.NewReader("only line")))
	assert.Len(t, transport.GetEmitsByEvent(contracts.EmitUserMessage), 1)
}

func TestBuildCallInitialization(t *testing.T) {
	original := callFlags
	t.Cleanup(func() { callFlags = original })

	cfg := config.Default()
	cfg.Domain = "police"
	cfg.Topic = "config-topic"

	callFlags.topic = "flag-topic"
	callFlags.name = "Aigerim Nurlanova Sabitovna"
	callFlags.lat = 43.238
	callFlags.lon = 76.889

	ci := buildCallInitialization(cfg, types.CallAudio)

	assert.Equal(t, types.CallAudio, ci.CallType)
	assert.Equal(t, "police", ci.Domain)
	assert.Equal(t, "flag-topic", ci.Topic)
	assert.Equal(t, "Aigerim", ci.FirstName)
	assert.Equal(t, "Nurlanova", ci.LastName)
	assert.Equal(t, "Sabitovna", ci.Patronymic)
	assert.Equal(t, &types.Location{Latitude: 43.238, Longitude: 76.889}, ci.Location)
}
