package types

// RTCType is the signaling step carried by an "rtc" frame
type RTCType string

const (
	RTCStart     RTCType = "start"
	RTCPrepare   RTCType = "prepare"
	RTCReady     RTCType = "ready"
	RTCOffer     RTCType = "offer"
	RTCAnswer    RTCType = "answer"
	RTCCandidate RTCType = "candidate"
	RTCHangup    RTCType = "hangup"
)

// ParseRTCType resolves a signaling type.
func ParseRTCType(value string) (RTCType, bool) {
	switch t := RTCType(value); t {
	case RTCStart, RTCPrepare, RTCReady, RTCOffer, RTCAnswer, RTCCandidate, RTCHangup:
		return t, true
	default:
		return "", false
	}
}

// SessionDescription is an SDP offer or answer
type SessionDescription struct {
	Type        RTCType
	Description string
}

// IceCandidate is a trickled ICE candidate
type IceCandidate struct {
	SDPMid        string
	SDPMLineIndex int
	SDP           string
}
