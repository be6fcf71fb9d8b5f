// Package listener declares the callback categories an application
// subscribes to and the registry holding one subscriber per category.
package listener

import (
	"kenes-socket-go/pkg/types"
)

// Result tells the classifier whether a listener took ownership of an
// incoming message. NotConsumed lets classification continue.
type Result int

const (
	NotConsumed Result = iota
	Consumed
)

func (r Result) String() string {
	if r == Consumed {
		return "consumed"
	}
	return "not_consumed"
}

// IsConsumed reports whether classification should stop
func (r Result) IsConsumed() bool {
	return r == Consumed
}

// ResultOf maps a boolean "handled" flag to a Result
func ResultOf(consumed bool) Result {
	if consumed {
		return Consumed
	}
	return NotConsumed
}

// ConnectionStateListener is notified about the session lifecycle
type ConnectionStateListener interface {
	OnConnect()
	OnDisconnect()
}

// CallListener receives queue and operator events of a call
type CallListener interface {
	// OnPendingUsersQueueCount never stops classification.
	OnPendingUsersQueueCount(text string, count int)
	OnNoOnlineCallAgents(text string) Result
	OnCallAgentGreet(greeting types.Greeting)
	OnCallFeedback(text string, buttons []types.RateButton)
}

// ChatBotListener receives chat bot replies and category pages
type ChatBotListener interface {
	OnNoResultsFound(text string, timestamp int64) Result
	OnFuzzyTaskOffered(text string, timestamp int64) Result
	OnMessage(message types.Message)
	OnCategories(categories []types.Category)
}

// DialogListener receives live chat state changes
type DialogListener interface {
	OnLiveChatTimeout(text string, timestamp int64) Result
	OnCallAgentDisconnected(text string, timestamp int64) Result
	OnUserRedirected(text string, timestamp int64) Result
}

// FormListener receives structured form events
type FormListener interface {
	OnFormInit(form types.Form)
	OnFormFound(message types.Message, form types.Form) Result
	OnFormFinal(result types.FormResult)
}

// WebRTCListener receives call signaling
type WebRTCListener interface {
	OnCallAccept()
	OnCallRedirect()
	OnCallPrepare()
	OnCallReady()
	OnCallOffer(description types.SessionDescription)
	OnCallAnswer(description types.SessionDescription)
	OnIceCandidate(candidate types.IceCandidate)
	OnHangup()
}

// LocationListener receives dispatch (102) card and GPS updates
type LocationListener interface {
	OnCard102Update(status types.Card102Status)
	OnLocationUpdate(updates []types.LocationUpdate)
}

// TaskListener receives task notifications
type TaskListener interface {
	OnTaskMessage(message types.TaskMessage)
}

// ConnectionStateFuncs adapts plain functions to ConnectionStateListener.
// Nil fields are ignored.
type ConnectionStateFuncs struct {
	Connect    func()
	Disconnect func()
}

func (f ConnectionStateFuncs) OnConnect() {
	if f.Connect != nil {
		f.Connect()
	}
}

func (f ConnectionStateFuncs) OnDisconnect() {
	if f.Disconnect != nil {
		f.Disconnect()
	}
}
