// Package socket declares the wire contract with the contact-center backend:
// event names and the transport abstraction the client is built on.
package socket

import (
	"context"
	"encoding/json"
)

// Inbound events emitted by the backend or generated locally by the transport.
const (
	EventConnect         = "connect"
	EventDisconnect      = "disconnect"
	EventConnectError    = "connect_error"
	EventReconnectFailed = "reconnect_failed"

	EventMessage        = "message"
	EventUserQueue      = "user_queue"
	EventOperatorGreet  = "operator_greet"
	EventOperatorTyping = "operator_typing"
	EventCategoryList   = "category_list"
	EventFeedback       = "feedback"
	EventFormInit       = "form_init"
	EventFormFinal      = "form_final"
	EventCard102Update  = "card102_update"
	EventLocationUpdate = "location_update"
	EventTaskMessage    = "task_message"
)

// Outbound events emitted by the client.
const (
	EmitInitialize          = "initialize"
	EmitMessage             = "message"
	EmitUserDashboard       = "user_dashboard"
	EmitUserFeedback        = "user_feedback"
	EmitUserLanguage        = "user_language"
	EmitUserMessage         = "user_message"
	EmitUserLocation        = "user_location"
	EmitConfirmFuzzyTask    = "confirm_fuzzy_task"
	EmitExternal            = "external"
	EmitFormInit            = "form_init"
	EmitFormFinal           = "form_final"
	EmitCancel              = "cancel"
	EmitCancelPendingCall   = "cancel_pending_call"
	EmitLocationSubscribe   = "location_subscribe"
	EmitLocationUnsubscribe = "location_unsubscribe"
)

// EventHandler receives the decoded arguments of one inbound event.
type EventHandler func(args []json.RawMessage)

// AckFunc receives the arguments of an acknowledgement.
type AckFunc func(args []json.RawMessage)

// Emitter represents the ability to emit events over the connection.
type Emitter interface {
	// Emit sends event with an optional payload. A nil data sends the event
	// without arguments. A non-nil ack requests an acknowledgement.
	Emit(event string, data interface{}, ack AckFunc) error
}

// Connector reports the connection status.
type Connector interface {
	IsConnected() bool
	ID() string
}

// HandlerRegistrar attaches and detaches inbound event handlers.
type HandlerRegistrar interface {
	On(event string, handler EventHandler)
	Off(event string)
	OffAll()
}

// Transport is the reconnecting event connection the client runs on. Inbound
// handlers must be invoked sequentially from a single goroutine.
type Transport interface {
	Emitter
	Connector
	HandlerRegistrar

	Connect(ctx context.Context) error
	Disconnect() error
}
