package socket

import (
	"crypto/tls"
	"net/http"
	"time"

	"kenes-socket-go/internal/websocket/client"
	"kenes-socket-go/internal/websocket/retry"
	wstypes "kenes-socket-go/internal/websocket/types"
	contracts "kenes-socket-go/pkg/contracts/socket"
	"kenes-socket-go/pkg/logger"
	"kenes-socket-go/pkg/socket/incoming"
	"kenes-socket-go/pkg/types"
)

// TransportFactory builds the transport for a backend URL
type TransportFactory func(url string, opts *Options, log *logger.Logger) (contracts.Transport, error)

// Metrics receives counters for inbound and outbound traffic
type Metrics interface {
	incoming.Observer
	Emitted(event string, err error)
}

type nopMetrics struct{}

func (nopMetrics) Classified(string, string) {}
func (nopMetrics) Dropped(string, string)    {}
func (nopMetrics) Emitted(string, error)     {}

// Options configures a session created with Client.Create
type Options struct {
	// Language is written to every payload that carries "lang".
	Language types.Language

	// NetworkAvailable is consulted by Connect. Nil means always available.
	NetworkAvailable func() bool

	// Reconnection policy of the transport.
	Reconnection         bool
	ReconnectionAttempts int
	ReconnectionDelay    time.Duration
	ReconnectionDelayMax time.Duration
	RandomizationFactor  float64

	// Timeout bounds a single connection attempt.
	Timeout time.Duration

	// Path is the Engine.IO path, "/socket.io/" when empty.
	Path      string
	Header    http.Header
	TLSConfig *tls.Config

	Metrics Metrics

	// Transport replaces the Socket.IO transport, mainly for tests.
	Transport TransportFactory
}

// DefaultOptions returns the options used when Create gets nil
func DefaultOptions() *Options {
	return &Options{
		Language:             types.DefaultLanguage,
		Reconnection:         true,
		ReconnectionAttempts: 3,
		ReconnectionDelay:    1000 * time.Millisecond,
		ReconnectionDelayMax: 5000 * time.Millisecond,
		RandomizationFactor:  0.5,
		Timeout:              20000 * time.Millisecond,
	}
}

func (o *Options) networkAvailable() bool {
	if o.NetworkAvailable == nil {
		return true
	}
	return o.NetworkAvailable()
}

func (o *Options) metrics() Metrics {
	if o.Metrics == nil {
		return nopMetrics{}
	}
	return o.Metrics
}

// ClientConfig maps the options onto the Socket.IO client configuration.
func (o *Options) ClientConfig(url string) *client.ClientConfig {
	config := client.DefaultClientConfig()

	config.Connection.URL = url
	config.Connection.Path = o.Path
	config.Connection.Header = o.Header
	config.Connection.TLSConfig = o.TLSConfig
	if o.Timeout > 0 {
		config.Connection.HandshakeTimeout = o.Timeout
	}

	config.Reconnection = &retry.Config{
		InitialDelay:  o.ReconnectionDelay,
		MaxDelay:      o.ReconnectionDelayMax,
		BackoffFactor: 2.0,
		MaxAttempts:   o.ReconnectionAttempts,
		JitterFactor:  o.RandomizationFactor,
		Enabled:       o.Reconnection,
	}

	return config
}

func newSocketTransport(url string, opts *Options, log *logger.Logger) (contracts.Transport, error) {
	return client.NewSocketClient(opts.ClientConfig(url), log)
}

// Errors returned by the client.
var (
	ErrNoTransport        = wstypes.ErrNoTransport
	ErrNetworkUnavailable = wstypes.ErrNetworkUnavailable
	ErrNotConnected       = wstypes.ErrNotConnected
)
