// Package outgoing builds the payloads of every user initiated event. The
// functions are pure: they never touch the connection, the caller emits the
// returned Request.
package outgoing

import (
	"strings"

	contracts "kenes-socket-go/pkg/contracts/socket"
	"kenes-socket-go/pkg/types"
)

// Payload is the JSON object sent as the single event argument
type Payload map[string]interface{}

// Request is one encoded outbound event. A nil Payload means the event is
// sent without arguments.
type Request struct {
	Event   string
	Payload Payload
}

const (
	dashboardCategoryList = "get_category_list"
	dashboardResponse     = "get_response"

	fuzzyTaskConfirmed = "1"
)

// CallInitialization encodes the request that starts a text, audio or video
// dialog. Optional routing, identity, device and location keys are only
// written when set.
func CallInitialization(ci types.CallInitialization) Request {
	payload := Payload{}

	if ci.CallType.IsMedia() {
		payload["media"] = string(ci.CallType)
	}

	if ci.UserID != nil {
		payload["user_id"] = *ci.UserID
	}

	putString(payload, "domain", ci.Domain)
	putString(payload, "topic", ci.Topic)
	putString(payload, "scope", ci.Scope)
	putString(payload, "service_code", ci.ServiceCode)
	putString(payload, "iin", ci.IIN)
	putString(payload, "phone", ci.Phone)
	putString(payload, "first_name", ci.FirstName)
	putString(payload, "last_name", ci.LastName)
	putString(payload, "patronymic", ci.Patronymic)

	if ci.Device != nil {
		payload["device"] = ci.Device
	}

	if ci.Location != nil {
		payload["location"] = Payload{
			"lat": ci.Location.Latitude,
			"lon": ci.Location.Longitude,
		}
	}

	payload["lang"] = language(ci.Language)

	return Request{Event: contracts.EmitInitialize, Payload: payload}
}

// UserMessage encodes a chat text. The text is trimmed; ok is false when
// nothing is left to send.
func UserMessage(text string, lang types.Language) (Request, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Request{}, false
	}

	return Request{
		Event: contracts.EmitUserMessage,
		Payload: Payload{
			"text": text,
			"lang": language(lang),
		},
	}, true
}

// UserMediaMessage encodes an uploaded media item keyed by its type.
func UserMediaMessage(mediaType types.MediaType, url string) Request {
	return Request{
		Event:   contracts.EmitUserMessage,
		Payload: Payload{string(mediaType): url},
	}
}

// UserFeedback encodes a dialog rating.
func UserFeedback(rating int, chatID int64) Request {
	return Request{
		Event: contracts.EmitUserFeedback,
		Payload: Payload{
			"r":       rating,
			"chat_id": chatID,
		},
	}
}

// UserLanguage encodes a change of the dialog language.
func UserLanguage(lang types.Language) Request {
	return Request{
		Event:   contracts.EmitUserLanguage,
		Payload: Payload{"language": language(lang)},
	}
}

// Categories requests the children of parentID from the chat-bot dashboard.
func Categories(parentID int64, lang types.Language) Request {
	return Request{
		Event: contracts.EmitUserDashboard,
		Payload: Payload{
			"action":    dashboardCategoryList,
			"parent_id": parentID,
			"lang":      language(lang),
		},
	}
}

// Response requests the canned response id from the chat-bot dashboard.
func Response(id int64, lang types.Language) Request {
	return Request{
		Event: contracts.EmitUserDashboard,
		Payload: Payload{
			"action": dashboardResponse,
			"id":     id,
			"lang":   language(lang),
		},
	}
}

// FormInitialize asks the backend for the fields of a form.
func FormInitialize(formID int64) Request {
	return Request{
		Event:   contracts.EmitFormInit,
		Payload: Payload{"form_id": formID},
	}
}

// FormFinalize encodes a filled form. Flexible forms are written as an ordered
// node list with per-node metadata, fixed forms as a title keyed map. Extra
// fields always go to the map and are written first, so a form field with the
// same title replaces them. A nil
// sender omits the key.
func FormFinalize(form types.Form, sender *types.Sender, extra []types.ExtraField) Request {
	nodes := make([]Payload, 0, len(form.Fields))
	fields := Payload{}

	for _, field := range extra {
		if types.IsBlank(field.Title) {
			continue
		}
		fields[field.Title] = Payload{string(fieldType(field.Type)): field.Value}
	}

	for _, field := range form.Fields {
		key := string(fieldType(field.Type))

		if form.IsFlexible {
			node := Payload{key: field.Value}
			info := types.FieldInfo{}
			if field.Info != nil {
				info = *field.Info
			}
			node[key+"_info"] = info
			nodes = append(nodes, node)
			continue
		}

		if types.IsBlank(field.Title) {
			continue
		}
		fields[field.Title] = Payload{key: field.Value}
	}

	payload := Payload{
		"form_id": form.ID,
		"form_data": Payload{
			"nodes":  nodes,
			"fields": fields,
		},
	}
	if sender != nil {
		payload["sender"] = sender.String()
	}

	return Request{Event: contracts.EmitFormFinal, Payload: payload}
}

// RTCFrame is an outbound signaling frame. SDP is only written for offers and
// answers, Candidate only for candidate frames.
type RTCFrame struct {
	Type      types.RTCType
	SDP       string
	Candidate *types.IceCandidate
}

func (f RTCFrame) payload() Payload {
	rtc := Payload{"type": string(f.Type)}

	switch f.Type {
	case types.RTCOffer, types.RTCAnswer:
		rtc["sdp"] = f.SDP
	case types.RTCCandidate:
		if f.Candidate != nil {
			rtc["id"] = f.Candidate.SDPMid
			rtc["label"] = f.Candidate.SDPMLineIndex
			rtc["candidate"] = f.Candidate.SDP
		}
	}

	return rtc
}

// RTC wraps a signaling frame into a message. An empty action is omitted.
func RTC(frame RTCFrame, action types.Action, lang types.Language) Request {
	payload := Payload{
		"rtc":  frame.payload(),
		"lang": language(lang),
	}
	if action != "" {
		payload["action"] = string(action)
	}

	return Request{Event: contracts.EmitMessage, Payload: payload}
}

// LocalSessionDescription sends the local SDP offer or answer.
func LocalSessionDescription(sd types.SessionDescription, lang types.Language) Request {
	return RTC(RTCFrame{Type: sd.Type, SDP: sd.Description}, "", lang)
}

// LocalIceCandidate trickles a local ICE candidate.
func LocalIceCandidate(candidate types.IceCandidate, lang types.Language) Request {
	return RTC(RTCFrame{Type: types.RTCCandidate, Candidate: &candidate}, "", lang)
}

// CallAction sends a bare dialog action such as finalize.
func CallAction(action types.Action, lang types.Language) Request {
	return Request{
		Event: contracts.EmitMessage,
		Payload: Payload{
			"action": string(action),
			"lang":   language(lang),
		},
	}
}

// QRTCAction sends a call control action inside a start frame, e.g. accepting
// or declining an incoming call.
func QRTCAction(action types.Action, lang types.Language) Request {
	return RTC(RTCFrame{Type: types.RTCStart}, action, lang)
}

// UserLocation reports the position of the user.
func UserLocation(id string, location types.UserLocation) Request {
	payload := locationPayload(location)
	payload["id"] = id

	return Request{Event: contracts.EmitUserLocation, Payload: payload}
}

// MessageLocation reports the position of the user inside the dialog.
func MessageLocation(id string, location types.UserLocation) Request {
	payload := locationPayload(location)
	payload["id"] = id
	payload["action"] = string(types.ActionLocation)

	return Request{Event: contracts.EmitMessage, Payload: payload}
}

// FuzzyTaskConfirmation accepts the task the chat-bot offered.
func FuzzyTaskConfirmation(name, email, phone string) Request {
	return Request{
		Event: contracts.EmitConfirmFuzzyTask,
		Payload: Payload{
			"name":  name,
			"email": email,
			"phone": phone,
			"res":   fuzzyTaskConfirmed,
		},
	}
}

// External forwards the callback data of an inline keyboard button.
func External(callbackData string) Request {
	return Request{
		Event:   contracts.EmitExternal,
		Payload: Payload{"callback_data": callbackData},
	}
}

func Cancel() Request {
	return Request{Event: contracts.EmitCancel}
}

func CancelPendingCall() Request {
	return Request{Event: contracts.EmitCancelPendingCall}
}

func LocationSubscribe() Request {
	return Request{Event: contracts.EmitLocationSubscribe}
}

func LocationUnsubscribe() Request {
	return Request{Event: contracts.EmitLocationUnsubscribe}
}

func locationPayload(location types.UserLocation) Payload {
	payload := Payload{
		"latitude":  location.Latitude,
		"longitude": location.Longitude,
	}

	putString(payload, "provider", location.Provider)
	putFloat(payload, "bearing", location.Bearing)
	putFloat(payload, "bearingAccuracyDegrees", location.BearingAccuracyDegrees)
	putFloat(payload, "xAccuracyMeters", location.XAccuracyMeters)
	putFloat(payload, "yAccuracyMeters", location.YAccuracyMeters)
	putFloat(payload, "speed", location.Speed)
	putFloat(payload, "speedAccuracyMetersPerSecond", location.SpeedAccuracyMetersPerSecond)

	return payload
}

func putString(payload Payload, key, value string) {
	if types.IsBlank(value) {
		return
	}
	payload[key] = value
}

func putFloat(payload Payload, key string, value *float64) {
	if value == nil {
		return
	}
	payload[key] = *value
}

func fieldType(t types.FieldType) types.FieldType {
	if t == "" {
		return types.FieldText
	}
	return t
}

func language(lang types.Language) string {
	if lang == "" {
		return string(types.DefaultLanguage)
	}
	return string(lang)
}
