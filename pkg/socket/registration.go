package socket

import (
	"sync"

	contracts "kenes-socket-go/pkg/contracts/socket"
)

// registrationOrder is the set of events attached by RegisterAllEventListeners.
var registrationOrder = []string{
	contracts.EventConnect,
	contracts.EventMessage,
	contracts.EventCategoryList,
	contracts.EventUserQueue,
	contracts.EventOperatorGreet,
	contracts.EventOperatorTyping,
	contracts.EventCard102Update,
	contracts.EventFeedback,
	contracts.EventFormInit,
	contracts.EventFormFinal,
	contracts.EventTaskMessage,
	contracts.EventReconnectFailed,
	contracts.EventDisconnect,
}

// registrationTable keeps at most one handler attached per wire event. The
// handlers are built once per session; registration only attaches them.
type registrationTable struct {
	mu         sync.Mutex
	transport  contracts.HandlerRegistrar
	handlers   map[string]contracts.EventHandler
	registered map[string]bool
}

func newRegistrationTable(transport contracts.HandlerRegistrar, handlers map[string]contracts.EventHandler) *registrationTable {
	return &registrationTable{
		transport:  transport,
		handlers:   handlers,
		registered: make(map[string]bool, len(handlers)),
	}
}

// register attaches the handler of event. It returns false when the event is
// already registered or has no handler.
func (t *registrationTable) register(event string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	handler, ok := t.handlers[event]
	if !ok || t.registered[event] {
		return false
	}

	t.transport.On(event, handler)
	t.registered[event] = true
	return true
}

// unregister detaches the handler of event. It returns false when the event
// is not registered.
func (t *registrationTable) unregister(event string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.registered[event] {
		return false
	}

	t.transport.Off(event)
	delete(t.registered, event)
	return true
}

// registerAll stops at the first failure, leaving earlier events registered.
func (t *registrationTable) registerAll() bool {
	for _, event := range registrationOrder {
		if !t.register(event) {
			return false
		}
	}
	return true
}

// unregisterAll stops at the first failure, leaving later events registered.
func (t *registrationTable) unregisterAll() bool {
	for _, event := range registrationOrder {
		if !t.unregister(event) {
			return false
		}
	}
	return true
}

func (t *registrationTable) isRegistered(event string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.registered[event]
}

// clear detaches everything, including events outside registrationOrder.
func (t *registrationTable) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for event := range t.registered {
		t.transport.Off(event)
	}
	t.registered = make(map[string]bool)
}
