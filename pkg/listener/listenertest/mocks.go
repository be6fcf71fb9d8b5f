// Package listenertest provides testify mocks for every listener category
package listenertest

import (
	"github.com/stretchr/testify/mock"

	"kenes-socket-go/pkg/listener"
	"kenes-socket-go/pkg/types"
)

type ConnectionState struct{ mock.Mock }

func (m *ConnectionState) OnConnect()    { m.Called() }
func (m *ConnectionState) OnDisconnect() { m.Called() }

type Call struct{ mock.Mock }

func (m *Call) OnPendingUsersQueueCount(text string, count int) { m.Called(text, count) }

func (m *Call) OnNoOnlineCallAgents(text string) listener.Result {
	return m.Called(text).Get(0).(listener.Result)
}

func (m *Call) OnCallAgentGreet(greeting types.Greeting) { m.Called(greeting) }

func (m *Call) OnCallFeedback(text string, buttons []types.RateButton) { m.Called(text, buttons) }

type ChatBot struct{ mock.Mock }

func (m *ChatBot) OnNoResultsFound(text string, timestamp int64) listener.Result {
	return m.Called(text, timestamp).Get(0).(listener.Result)
}

func (m *ChatBot) OnFuzzyTaskOffered(text string, timestamp int64) listener.Result {
	return m.Called(text, timestamp).Get(0).(listener.Result)
}

func (m *ChatBot) OnMessage(message types.Message) { m.Called(message) }

func (m *ChatBot) OnCategories(categories []types.Category) { m.Called(categories) }

type Dialog struct{ mock.Mock }

func (m *Dialog) OnLiveChatTimeout(text string, timestamp int64) listener.Result {
	return m.Called(text, timestamp).Get(0).(listener.Result)
}

func (m *Dialog) OnCallAgentDisconnected(text string, timestamp int64) listener.Result {
	return m.Called(text, timestamp).Get(0).(listener.Result)
}

func (m *Dialog) OnUserRedirected(text string, timestamp int64) listener.Result {
	return m.Called(text, timestamp).Get(0).(listener.Result)
}

type Form struct{ mock.Mock }

func (m *Form) OnFormInit(form types.Form) { m.Called(form) }

func (m *Form) OnFormFound(message types.Message, form types.Form) listener.Result {
	return m.Called(message, form).Get(0).(listener.Result)
}

func (m *Form) OnFormFinal(result types.FormResult) { m.Called(result) }

type WebRTC struct{ mock.Mock }

func (m *WebRTC) OnCallAccept()   { m.Called() }
func (m *WebRTC) OnCallRedirect() { m.Called() }
func (m *WebRTC) OnCallPrepare()  { m.Called() }
func (m *WebRTC) OnCallReady()    { m.Called() }
func (m *WebRTC) OnHangup()       { m.Called() }

func (m *WebRTC) OnCallOffer(description types.SessionDescription) { m.Called(description) }

func (m *WebRTC) OnCallAnswer(description types.SessionDescription) { m.Called(description) }

func (m *WebRTC) OnIceCandidate(candidate types.IceCandidate) { m.Called(candidate) }

type Location struct{ mock.Mock }

func (m *Location) OnCard102Update(status types.Card102Status) { m.Called(status) }

func (m *Location) OnLocationUpdate(updates []types.LocationUpdate) { m.Called(updates) }

type Task struct{ mock.Mock }

func (m *Task) OnTaskMessage(message types.TaskMessage) { m.Called(message) }

var (
	_ listener.ConnectionStateListener = (*ConnectionState)(nil)
	_ listener.CallListener            = (*Call)(nil)
	_ listener.ChatBotListener         = (*ChatBot)(nil)
	_ listener.DialogListener          = (*Dialog)(nil)
	_ listener.FormListener            = (*Form)(nil)
	_ listener.WebRTCListener          = (*WebRTC)(nil)
	_ listener.LocationListener        = (*Location)(nil)
	_ listener.TaskListener            = (*Task)(nil)
)
