package types

import "strings"

// MessageType tells whether a message came from the backend or the user
type MessageType int

const (
	MessageIncoming MessageType = iota
	MessageOutgoing
)

func (t MessageType) String() string {
	switch t {
	case MessageIncoming:
		return "incoming"
	case MessageOutgoing:
		return "outgoing"
	default:
		return "unknown"
	}
}

// Message is a chat message delivered to the application
type Message struct {
	ID          string
	Type        MessageType
	Text        string
	ReplyMarkup *ReplyMarkup
	Media       *Media
	Attachments []Media
	Form        *Form
	Timestamp   int64
}

// HasContent reports whether the message carries anything renderable.
func (m Message) HasContent() bool {
	return !IsBlank(m.Text) || m.Media != nil || len(m.Attachments) > 0 || m.ReplyMarkup != nil
}

// ButtonKind is the variant of an inline keyboard button
type ButtonKind int

const (
	ButtonText ButtonKind = iota
	ButtonCallback
	ButtonURL
)

func (k ButtonKind) String() string {
	switch k {
	case ButtonCallback:
		return "callback"
	case ButtonURL:
		return "url"
	default:
		return "text"
	}
}

// Button is one inline keyboard button. Kind selects which of CallbackData
// and URL is meaningful.
type Button struct {
	Kind         ButtonKind
	Text         string
	CallbackData string
	URL          string
}

// NewButton resolves the button variant from the populated optional field.
// Callback data wins over a URL when both are present.
func NewButton(text, callbackData, url string) Button {
	button := Button{Text: text}
	switch {
	case !IsBlank(callbackData):
		button.Kind = ButtonCallback
		button.CallbackData = callbackData
	case !IsBlank(url):
		button.Kind = ButtonURL
		button.URL = strings.TrimSpace(url)
	default:
		button.Kind = ButtonText
	}
	return button
}

// ReplyMarkup is an inline keyboard made of rows of buttons
type ReplyMarkup struct {
	Rows [][]Button
}

// Buttons returns all buttons in row order.
func (r *ReplyMarkup) Buttons() []Button {
	if r == nil {
		return nil
	}
	var buttons []Button
	for _, row := range r.Rows {
		buttons = append(buttons, row...)
	}
	return buttons
}

// MediaType is the content kind of an attachment or inline media item. The
// value doubles as the payload key of outgoing media messages.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaAudio    MediaType = "audio"
	MediaVideo    MediaType = "video"
	MediaDocument MediaType = "document"
	MediaFile     MediaType = "file"
)

// MediaTypes lists media types in the order inline media keys are checked.
var MediaTypes = []MediaType{MediaImage, MediaAudio, MediaVideo, MediaDocument, MediaFile}

// ParseMediaType resolves a media type key.
func ParseMediaType(value string) (MediaType, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, t := range MediaTypes {
		if string(t) == value {
			return t, true
		}
	}
	return "", false
}

// Media is an attachment or inline media item
type Media struct {
	Title     string
	Extension string
	Type      MediaType
	URL       string
}

// RateButton is a feedback rating option offered after a dialog
type RateButton struct {
	Title   string
	Payload string
}

// Greeting is sent when a call agent joins the dialog
type Greeting struct {
	CallAgent CallAgent
	Text      string
}

// CallAgent describes the operator handling the dialog
type CallAgent struct {
	Name               string
	FullName           string
	PhotoURL           string
	AudioStreamEnabled bool
	VideoStreamEnabled bool
}
