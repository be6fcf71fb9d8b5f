package socket

import (
	contracts "kenes-socket-go/pkg/contracts/socket"
)

// Event registration. Every method returns false when there is no session,
// when registering an event that is already registered, or when
// unregistering one that is not.

func (c *Client) register(event string) bool {
	s := c.current()
	if s == nil {
		return false
	}
	return s.table.register(event)
}

func (c *Client) unregister(event string) bool {
	s := c.current()
	if s == nil {
		return false
	}
	return s.table.unregister(event)
}

// RegisterAllEventListeners attaches every inbound event in a fixed order and
// stops at the first failure. Call UnregisterAllEventListeners before
// retrying after a partial registration.
func (c *Client) RegisterAllEventListeners() bool {
	s := c.current()
	if s == nil {
		return false
	}
	return s.table.registerAll()
}

// UnregisterAllEventListeners detaches the events attached by
// RegisterAllEventListeners, stopping at the first one not registered.
func (c *Client) UnregisterAllEventListeners() bool {
	s := c.current()
	if s == nil {
		return false
	}
	return s.table.unregisterAll()
}

// IsEventRegistered reports whether the handler of event is attached.
func (c *Client) IsEventRegistered(event string) bool {
	s := c.current()
	return s != nil && s.table.isRegistered(event)
}

func (c *Client) RegisterSocketConnectEventListener() bool {
	return c.register(contracts.EventConnect)
}

func (c *Client) UnregisterSocketConnectEventListener() bool {
	return c.unregister(contracts.EventConnect)
}

func (c *Client) RegisterMessageEventListener() bool {
	return c.register(contracts.EventMessage)
}

func (c *Client) UnregisterMessageEventListener() bool {
	return c.unregister(contracts.EventMessage)
}

func (c *Client) RegisterChatBotDashboardEventListener() bool {
	return c.register(contracts.EventCategoryList)
}

func (c *Client) UnregisterChatBotDashboardEventListener() bool {
	return c.unregister(contracts.EventCategoryList)
}

func (c *Client) RegisterUsersQueueEventListener() bool {
	return c.register(contracts.EventUserQueue)
}

func (c *Client) UnregisterUsersQueueEventListener() bool {
	return c.unregister(contracts.EventUserQueue)
}

func (c *Client) RegisterCallAgentGreetEventListener() bool {
	return c.register(contracts.EventOperatorGreet)
}

func (c *Client) UnregisterCallAgentGreetEventListener() bool {
	return c.unregister(contracts.EventOperatorGreet)
}

func (c *Client) RegisterCallAgentTypingEventListener() bool {
	return c.register(contracts.EventOperatorTyping)
}

func (c *Client) UnregisterCallAgentTypingEventListener() bool {
	return c.unregister(contracts.EventOperatorTyping)
}

func (c *Client) RegisterCard102UpdateEventListener() bool {
	return c.register(contracts.EventCard102Update)
}

func (c *Client) UnregisterCard102UpdateEventListener() bool {
	return c.unregister(contracts.EventCard102Update)
}

func (c *Client) RegisterUserDialogFeedbackEventListener() bool {
	return c.register(contracts.EventFeedback)
}

func (c *Client) UnregisterUserDialogFeedbackEventListener() bool {
	return c.unregister(contracts.EventFeedback)
}

func (c *Client) RegisterFormInitializeEventListener() bool {
	return c.register(contracts.EventFormInit)
}

func (c *Client) UnregisterFormInitializeEventListener() bool {
	return c.unregister(contracts.EventFormInit)
}

func (c *Client) RegisterFormFinalizeEventListener() bool {
	return c.register(contracts.EventFormFinal)
}

func (c *Client) UnregisterFormFinalizeEventListener() bool {
	return c.unregister(contracts.EventFormFinal)
}

func (c *Client) RegisterTaskMessageEventListener() bool {
	return c.register(contracts.EventTaskMessage)
}

func (c *Client) UnregisterTaskMessageEventListener() bool {
	return c.unregister(contracts.EventTaskMessage)
}

func (c *Client) RegisterReconnectFailedEventListener() bool {
	return c.register(contracts.EventReconnectFailed)
}

func (c *Client) UnregisterReconnectFailedEventListener() bool {
	return c.unregister(contracts.EventReconnectFailed)
}

func (c *Client) RegisterSocketDisconnectEventListener() bool {
	return c.register(contracts.EventDisconnect)
}

func (c *Client) UnregisterSocketDisconnectEventListener() bool {
	return c.unregister(contracts.EventDisconnect)
}
