package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"kenes-socket-go/pkg/listener"
	"kenes-socket-go/pkg/types"
)

// printer renders every listener callback as a line of text
type printer struct {
	mu  sync.Mutex
	out io.Writer

	connectOnce sync.Once
	connected   chan struct{}
	categories  chan []types.Category
}

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:        out,
		connected:  make(chan struct{}),
		categories: make(chan []types.Category, 1),
	}
}

// install subscribes the printer to every listener category
func (p *printer) install(registry *listener.Registry) {
	registry.SetConnectionState(p)
	registry.SetCall(p)
	registry.SetChatBot(p)
	registry.SetDialog(p)
	registry.SetForm(p)
	registry.SetWebRTC(p)
	registry.SetLocation(p)
	registry.SetTask(p)
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) OnConnect() {
	p.printf("* connected")
	p.connectOnce.Do(func() { close(p.connected) })
}

func (p *printer) OnDisconnect() {
	p.printf("* disconnected")
}

func (p *printer) OnPendingUsersQueueCount(text string, count int) {
	p.printf("* queue position %d", count)
}

func (p *printer) OnNoOnlineCallAgents(text string) listener.Result {
	p.printf("* no operators online: %s", text)
	return listener.Consumed
}

func (p *printer) OnCallAgentGreet(greeting types.Greeting) {
	name := greeting.CallAgent.FullName
	if name == "" {
		name = greeting.CallAgent.Name
	}
	p.printf("* %s joined: %s", name, greeting.Text)
}

func (p *printer) OnCallFeedback(text string, buttons []types.RateButton) {
	titles := make([]string, 0, len(buttons))
	for _, button := range buttons {
		titles = append(titles, fmt.Sprintf("%s=%s", button.Payload, button.Title))
	}
	p.printf("* feedback: %s [%s]", text, strings.Join(titles, ", "))
}

func (p *printer) OnNoResultsFound(text string, timestamp int64) listener.Result {
	p.printf("bot (no results): %s", text)
	return listener.Consumed
}

func (p *printer) OnFuzzyTaskOffered(text string, timestamp int64) listener.Result {
	p.printf("bot (task offered): %s", text)
	return listener.Consumed
}

func (p *printer) OnMessage(message types.Message) {
	p.printf("< %s", message.Text)
	if message.Media != nil {
		p.printf("  %s: %s", message.Media.Type, message.Media.URL)
	}
	for _, attachment := range message.Attachments {
		p.printf("  attachment %s: %s", attachment.Type, attachment.URL)
	}
	for _, button := range message.ReplyMarkup.Buttons() {
		switch button.Kind {
		case types.ButtonCallback:
			p.printf("  [%s] /external %s", button.Text, button.CallbackData)
		case types.ButtonURL:
			p.printf("  [%s] %s", button.Text, button.URL)
		default:
			p.printf("  [%s]", button.Text)
		}
	}
}

func (p *printer) OnCategories(categories []types.Category) {
	for _, category := range categories {
		p.printf("  %d\t%s", category.ID, category.Title)
	}

	select {
	case p.categories <- categories:
	default:
	}
}

func (p *printer) OnLiveChatTimeout(text string, timestamp int64) listener.Result {
	p.printf("* chat timed out: %s", text)
	return listener.Consumed
}

func (p *printer) OnCallAgentDisconnected(text string, timestamp int64) listener.Result {
	p.printf("* operator left: %s", text)
	return listener.Consumed
}

func (p *printer) OnUserRedirected(text string, timestamp int64) listener.Result {
	p.printf("* redirected: %s", text)
	return listener.Consumed
}

func (p *printer) OnFormInit(form types.Form) {
	p.printf("* form %d %q (%d fields)", form.ID, form.Title, len(form.Fields))
	for _, field := range form.Fields {
		p.printf("  %s (%s)", field.Title, field.Type)
	}
}

func (p *printer) OnFormFound(message types.Message, form types.Form) listener.Result {
	p.printf("< %s", message.Text)
	p.printf("  form %d: /form %d", form.ID, form.ID)
	return listener.Consumed
}

func (p *printer) OnFormFinal(result types.FormResult) {
	p.printf("* form submitted: %s (task %d, track %s, success %t)", result.Message, result.TaskID, result.TrackID, result.Success)
}

func (p *printer) OnCallAccept()   { p.printf("* call accepted") }
func (p *printer) OnCallRedirect() { p.printf("* call redirected") }
func (p *printer) OnCallPrepare()  { p.printf("* call preparing") }
func (p *printer) OnCallReady()    { p.printf("* call ready") }
func (p *printer) OnHangup()       { p.printf("* hangup") }

func (p *printer) OnCallOffer(description types.SessionDescription) {
	p.printf("* rtc offer (%d bytes of sdp)", len(description.Description))
}

func (p *printer) OnCallAnswer(description types.SessionDescription) {
	p.printf("* rtc answer (%d bytes of sdp)", len(description.Description))
}

func (p *printer) OnIceCandidate(candidate types.IceCandidate) {
	p.printf("* ice candidate %s:%d", candidate.SDPMid, candidate.SDPMLineIndex)
}

func (p *printer) OnCard102Update(status types.Card102Status) {
	p.printf("* card 102: %s", status)
}

func (p *printer) OnLocationUpdate(updates []types.LocationUpdate) {
	for _, update := range updates {
		p.printf("* unit %d at %.6f,%.6f", update.GPSCode, update.Latitude, update.Longitude)
	}
}

func (p *printer) OnTaskMessage(message types.TaskMessage) {
	p.printf("* task %d (%s): %s %s", message.Task.ID, message.Task.TrackID, message.Notification.Title, message.Notification.URL)
}
