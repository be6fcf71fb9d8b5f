package incoming

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	contracts "kenes-socket-go/pkg/contracts/socket"
	"kenes-socket-go/pkg/listener"
	"kenes-socket-go/pkg/listener/listenertest"
	"kenes-socket-go/pkg/types"
)

type recordingObserver struct {
	mu         sync.Mutex
	classified []string
	dropped    []string
}

func (o *recordingObserver) Classified(event, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.classified = append(o.classified, event+":"+outcome)
}

func (o *recordingObserver) Dropped(event, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped = append(o.dropped, event+":"+reason)
}

type fixture struct {
	registry   *listener.Registry
	classifier *Classifier
	observer   *recordingObserver

	call     *listenertest.Call
	chatBot  *listenertest.ChatBot
	dialog   *listenertest.Dialog
	form     *listenertest.Form
	webRTC   *listenertest.WebRTC
	location *listenertest.Location
	task     *listenertest.Task

	// calls records listener invocations in order
	calls []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		registry: listener.NewRegistry(),
		observer: &recordingObserver{},
		call:     &listenertest.Call{},
		chatBot:  &listenertest.ChatBot{},
		dialog:   &listenertest.Dialog{},
		form:     &listenertest.Form{},
		webRTC:   &listenertest.WebRTC{},
		location: &listenertest.Location{},
		task:     &listenertest.Task{},
	}

	f.registry.SetCall(f.call)
	f.registry.SetChatBot(f.chatBot)
	f.registry.SetDialog(f.dialog)
	f.registry.SetForm(f.form)
	f.registry.SetWebRTC(f.webRTC)
	f.registry.SetLocation(f.location)
	f.registry.SetTask(f.task)

	f.classifier = NewClassifier(f.registry, nil,
		WithObserver(f.observer),
		WithIDGenerator(func() string { return "generated-id" }),
	)

	t.Cleanup(func() {
		for _, m := range []*mock.Mock{&f.call.Mock, &f.chatBot.Mock, &f.dialog.Mock, &f.form.Mock, &f.webRTC.Mock, &f.location.Mock, &f.task.Mock} {
			m.AssertExpectations(t)
		}
	})

	return f
}

func (f *fixture) record(name string) func(mock.Arguments) {
	return func(mock.Arguments) {
		f.calls = append(f.calls, name)
	}
}

func (f *fixture) send(t *testing.T, event, payload string) error {
	t.Helper()
	return f.classifier.Handle(event, []json.RawMessage{json.RawMessage(payload)})
}

func TestRTCTakesPriority(t *testing.T) {
	f := newFixture(t)
	f.webRTC.On("OnCallOffer", types.SessionDescription{Type: types.RTCOffer, Description: "v=0..."}).Once()

	err := f.send(t, contracts.EventMessage, `{"rtc":{"type":"offer","sdp":"v=0..."},"no_results":true,"no_online":true,"queued":2,"text":"hello","action":"chat_timeout"}`)

	require.NoError(t, err)
	f.chatBot.AssertNotCalled(t, "OnMessage", mock.Anything)
	f.call.AssertNotCalled(t, "OnPendingUsersQueueCount", mock.Anything, mock.Anything)
	assert.Equal(t, []string{"message:rtc"}, f.observer.classified)
}

func TestRTCFrames(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		expect  func(f *fixture)
	}{
		{
			name:    "answer",
			payload: `{"rtc":{"type":"answer","sdp":"v=1"}}`,
			expect: func(f *fixture) {
				f.webRTC.On("OnCallAnswer", types.SessionDescription{Type: types.RTCAnswer, Description: "v=1"}).Once()
			},
		},
		{
			name:    "candidate",
			payload: `{"rtc":{"type":"candidate","id":"audio","label":"1","candidate":"candidate:842163049 1 udp"}}`,
			expect: func(f *fixture) {
				f.webRTC.On("OnIceCandidate", types.IceCandidate{SDPMid: "audio", SDPMLineIndex: 1, SDP: "candidate:842163049 1 udp"}).Once()
			},
		},
		{
			name:    "start accept",
			payload: `{"rtc":{"type":"start"},"action":"call_accept"}`,
			expect:  func(f *fixture) { f.webRTC.On("OnCallAccept").Once() },
		},
		{
			name:    "start redirect",
			payload: `{"rtc":{"type":"start"},"action":"call_redirect"}`,
			expect:  func(f *fixture) { f.webRTC.On("OnCallRedirect").Once() },
		},
		{
			name:    "start redial",
			payload: `{"rtc":{"type":"start"},"action":"call_redial"}`,
			expect:  func(*fixture) {},
		},
		{
			name:    "start without action",
			payload: `{"rtc":{"type":"start"}}`,
			expect:  func(*fixture) {},
		},
		{
			name:    "prepare",
			payload: `{"rtc":{"type":"prepare"}}`,
			expect:  func(f *fixture) { f.webRTC.On("OnCallPrepare").Once() },
		},
		{
			name:    "ready",
			payload: `{"rtc":{"type":"ready"}}`,
			expect:  func(f *fixture) { f.webRTC.On("OnCallReady").Once() },
		},
		{
			name:    "hangup",
			payload: `{"rtc":{"type":"hangup"}}`,
			expect:  func(f *fixture) { f.webRTC.On("OnHangup").Once() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.expect(f)

			require.NoError(t, f.send(t, contracts.EventMessage, tt.payload))
			f.chatBot.AssertNotCalled(t, "OnMessage", mock.Anything)
		})
	}
}

func TestRTCFramesDropped(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		err     error
		reason  string
	}{
		{"offer without sdp", `{"rtc":{"type":"offer"}}`, ErrMalformedFrame, ReasonMalformed},
		{"answer with blank sdp", `{"rtc":{"type":"answer","sdp":"  "}}`, ErrMalformedFrame, ReasonMalformed},
		{"candidate without label", `{"rtc":{"type":"candidate","id":"audio","candidate":"c"}}`, ErrMalformedFrame, ReasonMalformed},
		{"unknown type", `{"rtc":{"type":"renegotiate"}}`, ErrUnsupportedFrame, ReasonUnsupported},
		{"rtc not an object", `{"rtc":"offer"}`, ErrMalformedFrame, ReasonMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			err := f.send(t, contracts.EventMessage, tt.payload)

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, []string{"message:" + tt.reason}, f.observer.dropped)
			f.chatBot.AssertNotCalled(t, "OnMessage", mock.Anything)
		})
	}
}

func TestNoResultsFallsThroughWhenNotConsumed(t *testing.T) {
	f := newFixture(t)
	f.chatBot.On("OnNoResultsFound", "x", int64(0)).Return(listener.NotConsumed).Run(f.record("no_results")).Once()
	f.chatBot.On("OnFuzzyTaskOffered", "x", int64(0)).Return(listener.NotConsumed).Run(f.record("fuzzy_task")).Once()
	f.call.On("OnNoOnlineCallAgents", "x").Return(listener.NotConsumed).Run(f.record("no_online")).Once()
	f.chatBot.On("OnMessage", mock.MatchedBy(func(m types.Message) bool {
		return m.Text == "x" && m.ID == "generated-id"
	})).Run(f.record("message")).Once()

	err := f.send(t, contracts.EventMessage, `{"no_results":true,"fuzzy_task":true,"no_online":true,"text":"x","from":null,"sender":null,"action":null}`)

	require.NoError(t, err)
	assert.Equal(t, []string{"no_results", "fuzzy_task", "no_online", "message"}, f.calls)
}

func TestNoResultsConsumedStops(t *testing.T) {
	f := newFixture(t)
	f.chatBot.On("OnNoResultsFound", "x", int64(1700000000)).Return(listener.Consumed).Once()

	err := f.send(t, contracts.EventMessage, `{"no_results":true,"fuzzy_task":true,"queued":1,"text":" x ","time":1700000000}`)

	require.NoError(t, err)
	f.chatBot.AssertNotCalled(t, "OnFuzzyTaskOffered", mock.Anything, mock.Anything)
	f.call.AssertNotCalled(t, "OnPendingUsersQueueCount", mock.Anything, mock.Anything)
	f.chatBot.AssertNotCalled(t, "OnMessage", mock.Anything)
	assert.Equal(t, []string{"message:no_results"}, f.observer.classified)
}

func TestNoResultsRequiresAnonymousEnvelope(t *testing.T) {
	for _, payload := range []string{
		`{"no_results":true,"text":"x","from":"bot"}`,
		`{"no_results":true,"text":"x","sender":"operator"}`,
		`{"no_results":true,"text":"x","action":"redirect"}`,
		`{"no_results":true,"text":"  "}`,
	} {
		t.Run(payload, func(t *testing.T) {
			f := newFixture(t)
			f.dialog.On("OnUserRedirected", mock.Anything, mock.Anything).Return(listener.NotConsumed).Maybe()
			f.chatBot.On("OnMessage", mock.Anything).Once()

			require.NoError(t, f.send(t, contracts.EventMessage, payload))
			f.chatBot.AssertNotCalled(t, "OnNoResultsFound", mock.Anything, mock.Anything)
		})
	}
}

func TestDialogActions(t *testing.T) {
	tests := []struct {
		action string
		method string
	}{
		{"chat_timeout", "OnLiveChatTimeout"},
		{"operator_disconnect", "OnCallAgentDisconnected"},
		{"redirect", "OnUserRedirected"},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			f := newFixture(t)
			f.dialog.On(tt.method, "bye", int64(5)).Return(listener.Consumed).Once()

			payload := `{"action":"` + tt.action + `","text":"bye","time":"5"}`
			require.NoError(t, f.send(t, contracts.EventMessage, payload))

			f.chatBot.AssertNotCalled(t, "OnMessage", mock.Anything)
			assert.Equal(t, []string{"message:" + tt.action}, f.observer.classified)
		})
	}
}

func TestDialogActionNotConsumedDelivers(t *testing.T) {
	f := newFixture(t)
	f.dialog.On("OnLiveChatTimeout", "bye", int64(0)).Return(listener.NotConsumed).Once()
	f.chatBot.On("OnMessage", mock.MatchedBy(func(m types.Message) bool { return m.Text == "bye" })).Once()

	require.NoError(t, f.send(t, contracts.EventMessage, `{"action":"chat_timeout","text":"bye"}`))
}

func TestQueuedIsNotTerminal(t *testing.T) {
	f := newFixture(t)
	f.call.On("OnPendingUsersQueueCount", "You are #3", 3).Run(f.record("queued")).Once()
	f.chatBot.On("OnMessage", mock.MatchedBy(func(m types.Message) bool {
		return m.Text == "You are #3"
	})).Run(f.record("message")).Once()

	require.NoError(t, f.send(t, contracts.EventMessage, `{"queued": 3, "text": "You are #3"}`))
	assert.Equal(t, []string{"queued", "message"}, f.calls)
}

func TestQueuedNullIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.chatBot.On("OnMessage", mock.Anything).Once()

	require.NoError(t, f.send(t, contracts.EventMessage, `{"queued": null, "text": "hi"}`))
	f.call.AssertNotCalled(t, "OnPendingUsersQueueCount", mock.Anything, mock.Anything)
}

func TestFormFound(t *testing.T) {
	payload := `{"id":"m1","text":"Fill in","form":{"id":12,"title":"Complaint","prompt":"Tell us"}}`
	expected := types.Form{ID: 12, Title: "Complaint", Prompt: "Tell us"}

	t.Run("consumed", func(t *testing.T) {
		f := newFixture(t)
		f.form.On("OnFormFound", mock.MatchedBy(func(m types.Message) bool { return m.ID == "m1" }), expected).Return(listener.Consumed).Once()

		require.NoError(t, f.send(t, contracts.EventMessage, payload))
		f.chatBot.AssertNotCalled(t, "OnMessage", mock.Anything)
	})

	t.Run("not consumed", func(t *testing.T) {
		f := newFixture(t)
		f.form.On("OnFormFound", mock.Anything, expected).Return(listener.NotConsumed).Once()
		f.chatBot.On("OnMessage", mock.MatchedBy(func(m types.Message) bool {
			return m.Form != nil && m.Form.ID == 12
		})).Once()

		require.NoError(t, f.send(t, contracts.EventMessage, payload))
	})

	t.Run("form without id", func(t *testing.T) {
		f := newFixture(t)
		f.chatBot.On("OnMessage", mock.MatchedBy(func(m types.Message) bool { return m.Form == nil })).Once()

		require.NoError(t, f.send(t, contracts.EventMessage, `{"text":"x","form":{"title":"t"}}`))
		f.form.AssertNotCalled(t, "OnFormFound", mock.Anything, mock.Anything)
	})
}

func TestMessageContent(t *testing.T) {
	f := newFixture(t)

	var got types.Message
	f.chatBot.On("OnMessage", mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(0).(types.Message)
	}).Once()

	payload := `{
		"id": 981,
		"text": "  Documents  ",
		"time": 1700000100,
		"media": {"image": "https://cdn/p.png", "name": "passport", "ext": "png"},
		"attachments": [{"title": "Form", "ext": "pdf", "type": "document", "url": "https://cdn/f.pdf"}],
		"reply_markup": {"inline_keyboard": [[{"text": "Yes", "callback_data": "yes"}, {"text": "Site", "url": "https://gov.kz"}], [], [{"text": "", "callback_data": "more"}]]}
	}`
	require.NoError(t, f.send(t, contracts.EventMessage, payload))

	assert.Equal(t, "981", got.ID)
	assert.Equal(t, "Documents", got.Text)
	assert.Equal(t, int64(1700000100), got.Timestamp)
	assert.Equal(t, types.MessageIncoming, got.Type)
	assert.Equal(t, &types.Media{Title: "passport", Extension: "png", Type: types.MediaImage, URL: "https://cdn/p.png"}, got.Media)
	assert.Equal(t, []types.Media{{Title: "Form", Extension: "pdf", Type: types.MediaDocument, URL: "https://cdn/f.pdf"}}, got.Attachments)

	require.NotNil(t, got.ReplyMarkup)
	require.Len(t, got.ReplyMarkup.Rows, 3)
	assert.Equal(t, types.ButtonCallback, got.ReplyMarkup.Rows[0][0].Kind)
	assert.Equal(t, "https://gov.kz", got.ReplyMarkup.Rows[0][1].URL)
	assert.Empty(t, got.ReplyMarkup.Rows[1])
	assert.Equal(t, []types.Button{{Kind: types.ButtonCallback, Text: "", CallbackData: "more"}}, got.ReplyMarkup.Rows[2])
}

func TestMediaWithoutExtension(t *testing.T) {
	f := newFixture(t)
	f.chatBot.On("OnMessage", mock.MatchedBy(func(m types.Message) bool {
		return m.Media != nil && m.Media.Title == "voice" && m.Media.URL == "" && m.Media.Type == ""
	})).Once()

	require.NoError(t, f.send(t, contracts.EventMessage, `{"media":{"audio":"https://cdn/a.ogg","name":"voice"}}`))
}

func TestMissingListenersAreSkipped(t *testing.T) {
	registry := listener.NewRegistry()
	observer := &recordingObserver{}
	classifier := NewClassifier(registry, nil, WithObserver(observer))

	assert.NotPanics(t, func() {
		assert.NoError(t, classifier.Handle(contracts.EventMessage, []json.RawMessage{json.RawMessage(`{"no_results":true,"queued":1,"text":"x"}`)}))
		assert.NoError(t, classifier.Handle(contracts.EventMessage, []json.RawMessage{json.RawMessage(`{"rtc":{"type":"hangup"}}`)}))
		assert.NoError(t, classifier.Handle(contracts.EventUserQueue, []json.RawMessage{json.RawMessage(`{"count":1}`)}))
	})
	assert.Contains(t, observer.dropped, "message:no_listener")
	assert.Contains(t, observer.dropped, "rtc:no_listener")
	assert.Contains(t, observer.dropped, "user_queue:no_listener")
}

func TestMalformedMessage(t *testing.T) {
	f := newFixture(t)

	for _, args := range [][]json.RawMessage{
		nil,
		{json.RawMessage(`null`)},
		{json.RawMessage(`"text"`)},
		{json.RawMessage(`[{"text":"hello"}]`)},
		{json.RawMessage(`{"rtc":"offer"}`)},
	} {
		err := f.classifier.Handle(contracts.EventMessage, args)
		assert.ErrorIs(t, err, ErrMalformedFrame)
	}
	assert.Len(t, f.observer.dropped, 5)
}

func TestMessageSurvivesFieldOfWrongShape(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"media string", `{"text":"hello","media":""}`},
		{"reply markup string", `{"text":"hello","reply_markup":""}`},
		{"inline keyboard string", `{"text":"hello","reply_markup":{"inline_keyboard":"yes"}}`},
		{"attachments object", `{"text":"hello","attachments":{}}`},
		{"form string", `{"text":"hello","form":""}`},
		{"time clock string", `{"text":"hello","time":"12:30"}`},
		{"id object", `{"id":{"v":1},"text":"hello"}`},
		{"flag word", `{"text":"hello","no_results":"maybe"}`},
		{"huge time", `{"text":"hello","time":1e300}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.chatBot.On("OnMessage", mock.MatchedBy(func(m types.Message) bool {
				return m.Text == "hello" && m.Media == nil && m.ReplyMarkup == nil && m.Form == nil &&
					len(m.Attachments) == 0 && m.Timestamp == 0
			})).Once()

			require.NoError(t, f.send(t, contracts.EventMessage, tt.payload))
			f.chatBot.AssertExpectations(t)
			assert.Empty(t, f.observer.dropped)
		})
	}
}

func TestQueuedOfAnyShapeIsAnUpdate(t *testing.T) {
	for _, payload := range []string{
		`{"text":"hello","queued":true}`,
		`{"text":"hello","queued":"many"}`,
	} {
		f := newFixture(t)
		f.call.On("OnPendingUsersQueueCount", "hello", 0).Run(f.record("queued")).Once()
		f.chatBot.On("OnMessage", mock.MatchedBy(func(m types.Message) bool {
			return m.Text == "hello"
		})).Run(f.record("message")).Once()

		require.NoError(t, f.send(t, contracts.EventMessage, payload))
		assert.Equal(t, []string{"queued", "message"}, f.calls, payload)
	}
}

func TestRTCIgnoresFieldsOfWrongShape(t *testing.T) {
	t.Run("envelope field", func(t *testing.T) {
		f := newFixture(t)
		f.webRTC.On("OnHangup").Once()

		require.NoError(t, f.send(t, contracts.EventMessage, `{"rtc":{"type":"hangup"},"time":"now","media":""}`))
		f.webRTC.AssertExpectations(t)
	})

	t.Run("frame field outside the branch", func(t *testing.T) {
		f := newFixture(t)
		f.webRTC.On("OnCallOffer", types.SessionDescription{Type: types.RTCOffer, Description: "v=0"}).Once()

		require.NoError(t, f.send(t, contracts.EventMessage, `{"rtc":{"type":"offer","sdp":"v=0","label":"x"}}`))
		f.webRTC.AssertExpectations(t)
	})

	t.Run("frame field the branch needs", func(t *testing.T) {
		f := newFixture(t)

		err := f.send(t, contracts.EventMessage, `{"rtc":{"type":"candidate","id":"audio","label":"x","candidate":"c"}}`)
		assert.ErrorIs(t, err, ErrMalformedFrame)
		f.webRTC.AssertNotCalled(t, "OnIceCandidate", mock.Anything)
	})
}

func TestUnknownEvent(t *testing.T) {
	f := newFixture(t)

	assert.False(t, f.classifier.Handles("server_time"))
	assert.ErrorIs(t, f.classifier.Handle("server_time", nil), ErrUnsupportedFrame)
	assert.True(t, f.classifier.Handles(contracts.EventTaskMessage))
}
