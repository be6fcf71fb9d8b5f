// Package incoming decodes inbound events and fans them out to the listener
// registry. The "message" event is overloaded and goes through an ordered
// rule chain; every other event maps to exactly one callback.
package incoming

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	contracts "kenes-socket-go/pkg/contracts/socket"
	"kenes-socket-go/pkg/listener"
	"kenes-socket-go/pkg/logger"
	"kenes-socket-go/pkg/types"
)

// Drop reasons reported to the Observer.
const (
	ReasonMalformed   = "malformed"
	ReasonUnsupported = "unsupported"
	ReasonNoListener  = "no_listener"
)

// Observer is told how each inbound event ended. Implementations must be
// safe for concurrent use.
type Observer interface {
	Classified(event, outcome string)
	Dropped(event, reason string)
}

type nopObserver struct{}

func (nopObserver) Classified(string, string) {}
func (nopObserver) Dropped(string, string)    {}

// Option configures a Classifier
type Option func(*Classifier)

// WithObserver reports outcomes to o.
func WithObserver(o Observer) Option {
	return func(c *Classifier) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithIDGenerator replaces the generator used for messages without an id.
func WithIDGenerator(fn func() string) Option {
	return func(c *Classifier) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// rule is one step of the "message" chain. handle is only called when match
// holds; a Consumed result ends classification.
type rule struct {
	name   string
	match  func(e *Envelope) bool
	handle func(e *Envelope) (listener.Result, error)
}

// Classifier routes inbound events to the listener registry. It keeps no
// state between events and expects them one at a time.
type Classifier struct {
	registry *listener.Registry
	logger   *logger.Logger
	observer Observer
	newID    func() string

	rules    []rule
	handlers map[string]func(raw json.RawMessage) error
}

func NewClassifier(registry *listener.Registry, log *logger.Logger, opts ...Option) *Classifier {
	if log == nil {
		log = logger.Nop()
	}

	c := &Classifier{
		registry: registry,
		logger:   log.With("component", "classifier"),
		observer: nopObserver{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.rules = c.messageRules()
	c.handlers = map[string]func(json.RawMessage) error{
		contracts.EventMessage:        c.handleMessage,
		contracts.EventUserQueue:      c.handleUserQueue,
		contracts.EventOperatorGreet:  c.handleOperatorGreet,
		contracts.EventOperatorTyping: c.handleOperatorTyping,
		contracts.EventCategoryList:   c.handleCategoryList,
		contracts.EventFeedback:       c.handleFeedback,
		contracts.EventFormInit:       c.handleFormInit,
		contracts.EventFormFinal:      c.handleFormFinal,
		contracts.EventCard102Update:  c.handleCard102Update,
		contracts.EventLocationUpdate: c.handleLocationUpdate,
		contracts.EventTaskMessage:    c.handleTaskMessage,
	}

	return c
}

// Handles reports whether event has a decoder.
func (c *Classifier) Handles(event string) bool {
	_, ok := c.handlers[event]
	return ok
}

// Handle decodes the first argument of event and notifies the matching
// listeners. Failures are logged and counted, then returned for callers that
// care.
func (c *Classifier) Handle(event string, args []json.RawMessage) error {
	handler, ok := c.handlers[event]
	if !ok {
		c.observer.Dropped(event, ReasonUnsupported)
		return fmt.Errorf("%w: event %q", ErrUnsupportedFrame, event)
	}

	var raw json.RawMessage
	if len(args) > 0 {
		raw = args[0]
	}

	err := handler(raw)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnsupportedFrame):
		c.logger.Warn("Unsupported payload dropped", "event", event, "error", err)
		c.observer.Dropped(event, ReasonUnsupported)
	default:
		c.logger.Warn("Malformed payload dropped", "event", event, "error", err)
		c.observer.Dropped(event, ReasonMalformed)
	}
	return err
}

func (c *Classifier) handleMessage(raw json.RawMessage) error {
	envelope, err := DecodeEnvelope(raw)
	if err != nil {
		return err
	}

	if !envelope.Action.Blank() {
		if _, ok := envelope.KnownAction(); !ok {
			c.logger.Debug("Unknown message action ignored", "action", envelope.Action.Value)
		}
	}

	outcome, err := c.Classify(envelope)
	if err != nil {
		return err
	}
	c.observer.Classified(contracts.EventMessage, outcome)
	return nil
}

// Classify runs the rule chain over envelope and returns the name of the rule
// that ended it.
func (c *Classifier) Classify(envelope *Envelope) (string, error) {
	for _, r := range c.rules {
		if !r.match(envelope) {
			continue
		}

		result, err := r.handle(envelope)
		if err != nil {
			return r.name, err
		}

		c.logger.Debug("Message rule matched", "rule", r.name, "result", result.String())
		if result.IsConsumed() {
			return r.name, nil
		}
	}

	return "unhandled", nil
}

func (c *Classifier) messageRules() []rule {
	return []rule{
		{
			name:   "rtc",
			match:  (*Envelope).HasRTC,
			handle: c.dispatchRTC,
		},
		{
			name: "no_results",
			match: func(e *Envelope) bool {
				_, hasAction := e.KnownAction()
				return e.NoResults.True() && e.From.Blank() && e.Sender.Blank() && !hasAction && e.HasText()
			},
			handle: func(e *Envelope) (listener.Result, error) {
				chatBot := c.registry.ChatBot()
				if chatBot == nil {
					return listener.NotConsumed, nil
				}
				return chatBot.OnNoResultsFound(e.Text.Trimmed(), e.Time.Value), nil
			},
		},
		{
			name: "fuzzy_task",
			match: func(e *Envelope) bool {
				return e.FuzzyTask.True() && e.HasText()
			},
			handle: func(e *Envelope) (listener.Result, error) {
				chatBot := c.registry.ChatBot()
				if chatBot == nil {
					return listener.NotConsumed, nil
				}
				return chatBot.OnFuzzyTaskOffered(e.Text.Trimmed(), e.Time.Value), nil
			},
		},
		{
			name: "no_online",
			match: func(e *Envelope) bool {
				return e.NoOnline.True() && e.HasText()
			},
			handle: func(e *Envelope) (listener.Result, error) {
				call := c.registry.Call()
				if call == nil {
					return listener.NotConsumed, nil
				}
				return call.OnNoOnlineCallAgents(e.Text.Trimmed()), nil
			},
		},
		c.dialogRule(types.ActionChatTimeout, func(d listener.DialogListener, text string, ts int64) listener.Result {
			return d.OnLiveChatTimeout(text, ts)
		}),
		c.dialogRule(types.ActionOperatorDisconnect, func(d listener.DialogListener, text string, ts int64) listener.Result {
			return d.OnCallAgentDisconnected(text, ts)
		}),
		c.dialogRule(types.ActionRedirect, func(d listener.DialogListener, text string, ts int64) listener.Result {
			return d.OnUserRedirected(text, ts)
		}),
		{
			// A queue update is paired with a display text, so the envelope
			// still goes on to generic delivery.
			name: "queued",
			match: func(e *Envelope) bool {
				_, ok := e.QueuedCount()
				return ok
			},
			handle: func(e *Envelope) (listener.Result, error) {
				if call := c.registry.Call(); call != nil {
					count, _ := e.QueuedCount()
					call.OnPendingUsersQueueCount(e.Text.Trimmed(), count)
				}
				return listener.NotConsumed, nil
			},
		},
		{
			name: "message",
			match: func(*Envelope) bool {
				return true
			},
			handle: c.deliverMessage,
		},
	}
}

func (c *Classifier) dialogRule(action types.Action, notify func(listener.DialogListener, string, int64) listener.Result) rule {
	return rule{
		name: string(action),
		match: func(e *Envelope) bool {
			got, ok := e.KnownAction()
			return ok && got == action && e.HasText()
		},
		handle: func(e *Envelope) (listener.Result, error) {
			dialog := c.registry.Dialog()
			if dialog == nil {
				return listener.NotConsumed, nil
			}
			return notify(dialog, e.Text.Trimmed(), e.Time.Value), nil
		},
	}
}

func (c *Classifier) deliverMessage(e *Envelope) (listener.Result, error) {
	message := e.Message()
	if message.ID == "" {
		message.ID = c.newID()
	}

	if message.Form != nil {
		if form := c.registry.Form(); form != nil {
			if form.OnFormFound(message, *message.Form).IsConsumed() {
				return listener.Consumed, nil
			}
		}
	}

	chatBot := c.registry.ChatBot()
	if chatBot == nil {
		c.observer.Dropped(contracts.EventMessage, ReasonNoListener)
		return listener.NotConsumed, nil
	}

	chatBot.OnMessage(message)
	return listener.Consumed, nil
}
