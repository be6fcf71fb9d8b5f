package incoming

import (
	"kenes-socket-go/pkg/listener"
	"kenes-socket-go/pkg/types"
)

// dispatchRTC handles the signaling frame of an envelope. It is always
// terminal: a frame that fails to decode is dropped, never delivered as chat.
func (c *Classifier) dispatchRTC(e *Envelope) (listener.Result, error) {
	frame, err := DecodeRTCFrame(e)
	if err != nil {
		return listener.Consumed, err
	}

	webRTC := c.registry.WebRTC()
	if webRTC == nil {
		c.logger.Debug("Signaling frame without listener", "type", frame.Type())
		c.observer.Dropped("rtc", ReasonNoListener)
		return listener.Consumed, nil
	}

	switch f := frame.(type) {
	case StartFrame:
		switch {
		case f.HasAction && f.Action == types.ActionCallAccept:
			webRTC.OnCallAccept()
		case f.HasAction && f.Action == types.ActionCallRedirect:
			webRTC.OnCallRedirect()
		case f.HasAction && f.Action == types.ActionCallRedial:
		default:
			c.logger.Debug("Start frame ignored", "action", e.Action.Value)
		}
	case PrepareFrame:
		webRTC.OnCallPrepare()
	case ReadyFrame:
		webRTC.OnCallReady()
	case OfferFrame:
		webRTC.OnCallOffer(types.SessionDescription{Type: types.RTCOffer, Description: f.SDP})
	case AnswerFrame:
		webRTC.OnCallAnswer(types.SessionDescription{Type: types.RTCAnswer, Description: f.SDP})
	case CandidateFrame:
		webRTC.OnIceCandidate(f.Candidate)
	case HangupFrame:
		webRTC.OnHangup()
	}

	return listener.Consumed, nil
}
