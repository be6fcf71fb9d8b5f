package incoming

import (
	"encoding/json"
	"fmt"

	"kenes-socket-go/pkg/types"
)

// RTCFrame is one decoded signaling step. The concrete types are StartFrame,
// PrepareFrame, ReadyFrame, OfferFrame, AnswerFrame, CandidateFrame and
// HangupFrame.
type RTCFrame interface {
	Type() types.RTCType
}

// StartFrame opens call negotiation. The action comes from the enclosing
// envelope; HasAction is false when it is missing or unrecognised.
type StartFrame struct {
	Action    types.Action
	HasAction bool
}

type PrepareFrame struct{}

type ReadyFrame struct{}

type OfferFrame struct {
	SDP string
}

type AnswerFrame struct {
	SDP string
}

type CandidateFrame struct {
	Candidate types.IceCandidate
}

type HangupFrame struct{}

func (StartFrame) Type() types.RTCType     { return types.RTCStart }
func (PrepareFrame) Type() types.RTCType   { return types.RTCPrepare }
func (ReadyFrame) Type() types.RTCType     { return types.RTCReady }
func (OfferFrame) Type() types.RTCType     { return types.RTCOffer }
func (AnswerFrame) Type() types.RTCType    { return types.RTCAnswer }
func (CandidateFrame) Type() types.RTCType { return types.RTCCandidate }
func (HangupFrame) Type() types.RTCType    { return types.RTCHangup }

type rtcEnvelope struct {
	Type      OptString `json:"type"`
	SDP       OptString `json:"sdp"`
	ID        OptString `json:"id"`
	Label     OptInt    `json:"label"`
	Candidate OptString `json:"candidate"`
}

// DecodeRTCFrame decodes the "rtc" object of envelope. Unknown types return
// ErrUnsupportedFrame, missing required fields ErrMalformedFrame.
func DecodeRTCFrame(envelope *Envelope) (RTCFrame, error) {
	var raw rtcEnvelope
	if err := json.Unmarshal(envelope.RTC, &raw); err != nil {
		return nil, fmt.Errorf("%w: rtc: %v", ErrMalformedFrame, err)
	}

	rtcType, ok := types.ParseRTCType(raw.Type.Trimmed())
	if !ok {
		return nil, fmt.Errorf("%w: rtc type %q", ErrUnsupportedFrame, raw.Type.Value)
	}

	switch rtcType {
	case types.RTCStart:
		action, ok := envelope.KnownAction()
		return StartFrame{Action: action, HasAction: ok}, nil
	case types.RTCPrepare:
		return PrepareFrame{}, nil
	case types.RTCReady:
		return ReadyFrame{}, nil
	case types.RTCOffer, types.RTCAnswer:
		if raw.SDP.Blank() {
			return nil, fmt.Errorf("%w: rtc %s without sdp", ErrMalformedFrame, rtcType)
		}
		if rtcType == types.RTCOffer {
			return OfferFrame{SDP: raw.SDP.Value}, nil
		}
		return AnswerFrame{SDP: raw.SDP.Value}, nil
	case types.RTCCandidate:
		if raw.ID.Blank() || !raw.Label.Valid || raw.Candidate.Blank() {
			return nil, fmt.Errorf("%w: rtc candidate requires id, label and candidate", ErrMalformedFrame)
		}
		return CandidateFrame{Candidate: types.IceCandidate{
			SDPMid:        raw.ID.Value,
			SDPMLineIndex: int(raw.Label.Value),
			SDP:           raw.Candidate.Value,
		}}, nil
	default:
		return HangupFrame{}, nil
	}
}
