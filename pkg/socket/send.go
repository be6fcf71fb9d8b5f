package socket

import (
	"encoding/json"
	"fmt"

	contracts "kenes-socket-go/pkg/contracts/socket"
	"kenes-socket-go/pkg/socket/outgoing"
	"kenes-socket-go/pkg/types"
)

// emit sends request fire-and-forget. The acknowledgement, if the server
// sends one, is only logged.
func (c *Client) emit(request outgoing.Request) error {
	s := c.current()
	if s == nil {
		return ErrNoTransport
	}

	var data interface{}
	if request.Payload != nil {
		data = request.Payload
	}

	event := request.Event
	err := s.transport.Emit(event, data, func(args []json.RawMessage) {
		c.logger.Debug("Event acknowledged", "event", event, "args", len(args))
	})
	s.metrics.Emitted(event, err)
	if err != nil {
		c.logger.Warn("Failed to emit event", "event", event, "error", err)
		return fmt.Errorf("failed to emit %s: %w", event, err)
	}

	c.logger.Debug("Event emitted", "event", event)
	return nil
}

// SendCallInitialization starts a dialog. An empty language in ci is replaced
// by the client language.
func (c *Client) SendCallInitialization(ci types.CallInitialization) error {
	if ci.Language == "" {
		ci.Language = c.Language()
	}
	return c.emit(outgoing.CallInitialization(ci))
}

// SendUserMessage sends a chat text. Blank texts are not sent.
func (c *Client) SendUserMessage(text string) error {
	request, ok := outgoing.UserMessage(text, c.Language())
	if !ok {
		c.logger.Debug("Blank message not sent")
		return nil
	}
	return c.emit(request)
}

func (c *Client) SendUserMediaMessage(mediaType types.MediaType, url string) error {
	return c.emit(outgoing.UserMediaMessage(mediaType, url))
}

func (c *Client) SendUserFeedback(rating int, chatID int64) error {
	return c.emit(outgoing.UserFeedback(rating, chatID))
}

// SendUserLanguage tells the backend about a language change and uses lang
// for later payloads.
func (c *Client) SendUserLanguage(lang types.Language) error {
	c.SetLanguage(lang)
	return c.emit(outgoing.UserLanguage(lang))
}

// GetCategories requests the dashboard categories under parentID.
func (c *Client) GetCategories(parentID int64) error {
	return c.emit(outgoing.Categories(parentID, c.Language()))
}

// GetResponse requests the canned response id.
func (c *Client) GetResponse(id int64) error {
	return c.emit(outgoing.Response(id, c.Language()))
}

func (c *Client) SendFormInitialize(formID int64) error {
	return c.emit(outgoing.FormInitialize(formID))
}

func (c *Client) SendFormFinalize(form types.Form, sender *types.Sender, extra []types.ExtraField) error {
	return c.emit(outgoing.FormFinalize(form, sender, extra))
}

func (c *Client) SendRTC(frame outgoing.RTCFrame, action types.Action) error {
	return c.emit(outgoing.RTC(frame, action, c.Language()))
}

func (c *Client) SendLocalSessionDescription(description types.SessionDescription) error {
	return c.emit(outgoing.LocalSessionDescription(description, c.Language()))
}

func (c *Client) SendLocalIceCandidate(candidate types.IceCandidate) error {
	return c.emit(outgoing.LocalIceCandidate(candidate, c.Language()))
}

func (c *Client) SendCallAction(action types.Action) error {
	return c.emit(outgoing.CallAction(action, c.Language()))
}

func (c *Client) SendQRTCAction(action types.Action) error {
	return c.emit(outgoing.QRTCAction(action, c.Language()))
}

func (c *Client) SendUserLocation(id string, location types.UserLocation) error {
	return c.emit(outgoing.UserLocation(id, location))
}

func (c *Client) SendMessageLocation(id string, location types.UserLocation) error {
	return c.emit(outgoing.MessageLocation(id, location))
}

func (c *Client) SendFuzzyTaskConfirmation(name, email, phone string) error {
	return c.emit(outgoing.FuzzyTaskConfirmation(name, email, phone))
}

func (c *Client) SendExternal(callbackData string) error {
	return c.emit(outgoing.External(callbackData))
}

func (c *Client) SendCancel() error {
	return c.emit(outgoing.Cancel())
}

func (c *Client) SendCancelPendingCall() error {
	return c.emit(outgoing.CancelPendingCall())
}

// SendLocationSubscribe attaches the location_update handler and asks the
// backend for position updates.
func (c *Client) SendLocationSubscribe() error {
	c.register(contracts.EventLocationUpdate)
	return c.emit(outgoing.LocationSubscribe())
}

// SendLocationUnsubscribe stops position updates and detaches the handler.
func (c *Client) SendLocationUnsubscribe() error {
	err := c.emit(outgoing.LocationUnsubscribe())
	c.unregister(contracts.EventLocationUpdate)
	return err
}
