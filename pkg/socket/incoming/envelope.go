package incoming

import (
	"encoding/json"
	"errors"
	"fmt"

	"kenes-socket-go/pkg/types"
)

var (
	// ErrMalformedFrame marks a payload that cannot be decoded or lacks a
	// required field.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrUnsupportedFrame marks a payload carrying an enum value this client
	// does not know.
	ErrUnsupportedFrame = errors.New("unsupported frame")
)

// Envelope is one decoded "message" event. Every field is optional;
// classification looks at combinations of presence and value. A field of the
// wrong shape reads as absent, so only the branch that needs it can fail.
type Envelope struct {
	ID     OptString `json:"id"`
	Text   OptString `json:"text"`
	Action OptString `json:"action"`
	Time   OptInt    `json:"time"`
	Sender OptString `json:"sender"`
	From   OptString `json:"from"`

	Media       *MediaEnvelope       `json:"media"`
	RTC         json.RawMessage      `json:"rtc"`
	Attachments AttachmentList       `json:"attachments"`
	ReplyMarkup *ReplyMarkupEnvelope `json:"reply_markup"`
	Form        *FormEnvelope        `json:"form"`

	// Queued is kept raw: any non-null value marks a queue update.
	Queued    json.RawMessage `json:"queued"`
	NoOnline  OptBool         `json:"no_online"`
	NoResults OptBool         `json:"no_results"`
	FuzzyTask OptBool         `json:"fuzzy_task"`
}

// MediaEnvelope is an inline media item. The URL sits under the key of its
// media type.
type MediaEnvelope struct {
	Image     OptString `json:"image"`
	Audio     OptString `json:"audio"`
	Video     OptString `json:"video"`
	Document  OptString `json:"document"`
	File      OptString `json:"file"`
	Name      OptString `json:"name"`
	Extension OptString `json:"ext"`
}

func (m *MediaEnvelope) UnmarshalJSON(data []byte) error {
	type plain MediaEnvelope
	*m = MediaEnvelope{}
	return decodeObject(data, (*plain)(m))
}

type AttachmentEnvelope struct {
	Title     OptString `json:"title"`
	Extension OptString `json:"ext"`
	Type      OptString `json:"type"`
	URL       OptString `json:"url"`
}

// AttachmentList keeps the object entries of an "attachments" array.
type AttachmentList []AttachmentEnvelope

func (l *AttachmentList) UnmarshalJSON(data []byte) error {
	*l = nil
	for _, item := range decodeArray(data) {
		if !isObject(item) {
			continue
		}
		var attachment AttachmentEnvelope
		if err := json.Unmarshal(item, &attachment); err != nil {
			return err
		}
		*l = append(*l, attachment)
	}
	return nil
}

type ReplyMarkupEnvelope struct {
	InlineKeyboard [][]ButtonEnvelope
}

func (r *ReplyMarkupEnvelope) UnmarshalJSON(data []byte) error {
	*r = ReplyMarkupEnvelope{}

	var raw struct {
		InlineKeyboard json.RawMessage `json:"inline_keyboard"`
	}
	if err := decodeObject(data, &raw); err != nil {
		return err
	}

	for _, rawRow := range decodeArray(raw.InlineKeyboard) {
		row := []ButtonEnvelope{}
		for _, item := range decodeArray(rawRow) {
			var button ButtonEnvelope
			if err := decodeObject(item, &button); err != nil {
				return err
			}
			row = append(row, button)
		}
		r.InlineKeyboard = append(r.InlineKeyboard, row)
	}
	return nil
}

type ButtonEnvelope struct {
	Text         OptString `json:"text"`
	CallbackData OptString `json:"callback_data"`
	URL          OptString `json:"url"`
}

type FormEnvelope struct {
	ID     OptInt    `json:"id"`
	Title  OptString `json:"title"`
	Prompt OptString `json:"prompt"`
	IsFlex OptBool   `json:"is_flex"`
}

func (f *FormEnvelope) UnmarshalJSON(data []byte) error {
	type plain FormEnvelope
	*f = FormEnvelope{}
	return decodeObject(data, (*plain)(f))
}

// DecodeEnvelope decodes the first argument of a "message" event. Only a
// missing or non-object argument is malformed.
func DecodeEnvelope(raw json.RawMessage) (*Envelope, error) {
	if !present(raw) {
		return nil, fmt.Errorf("%w: empty message", ErrMalformedFrame)
	}
	if !isObject(raw) {
		return nil, fmt.Errorf("%w: message is not an object", ErrMalformedFrame)
	}

	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return &envelope, nil
}

// HasRTC reports whether the envelope carries a signaling frame.
func (e *Envelope) HasRTC() bool {
	return present(e.RTC)
}

// KnownAction returns the envelope action. Missing and unrecognised values
// both report false.
func (e *Envelope) KnownAction() (types.Action, bool) {
	if e.Action.Blank() {
		return "", false
	}
	return types.ParseAction(e.Action.Value)
}

// QueuedCount returns the queue position of a queue update. The second
// result is false when "queued" is missing or null; a value that is not an
// integer still marks an update, at position 0.
func (e *Envelope) QueuedCount() (int, bool) {
	if !present(e.Queued) {
		return 0, false
	}
	var count OptInt
	if err := json.Unmarshal(e.Queued, &count); err != nil {
		return 0, true
	}
	return int(count.Value), true
}

// HasText reports whether the envelope carries a non-blank text.
func (e *Envelope) HasText() bool {
	return !e.Text.Blank()
}

// Message builds the chat message carried by the envelope. A blank id is left
// for the caller to fill in.
func (e *Envelope) Message() types.Message {
	message := types.Message{
		ID:          e.ID.Trimmed(),
		Type:        types.MessageIncoming,
		Text:        e.Text.Trimmed(),
		ReplyMarkup: e.ReplyMarkup.markup(),
		Media:       e.Media.media(),
		Timestamp:   e.Time.Value,
	}

	for _, attachment := range e.Attachments {
		message.Attachments = append(message.Attachments, attachment.media())
	}

	if form, ok := e.Form.form(); ok {
		message.Form = &form
	}

	return message
}

func (m *MediaEnvelope) media() *types.Media {
	if m == nil {
		return nil
	}

	media := types.Media{
		Title:     m.Name.Trimmed(),
		Extension: m.Extension.Trimmed(),
	}

	if media.Extension != "" {
		urls := map[types.MediaType]OptString{
			types.MediaImage:    m.Image,
			types.MediaAudio:    m.Audio,
			types.MediaVideo:    m.Video,
			types.MediaDocument: m.Document,
			types.MediaFile:     m.File,
		}
		for _, mediaType := range types.MediaTypes {
			if url := urls[mediaType]; !url.Blank() {
				media.Type = mediaType
				media.URL = url.Trimmed()
				break
			}
		}
	}

	if media == (types.Media{}) {
		return nil
	}
	return &media
}

func (a AttachmentEnvelope) media() types.Media {
	media := types.Media{
		Title:     a.Title.Trimmed(),
		Extension: a.Extension.Trimmed(),
		URL:       a.URL.Trimmed(),
	}
	if mediaType, ok := types.ParseMediaType(a.Type.Value); ok {
		media.Type = mediaType
	}
	return media
}

func (r *ReplyMarkupEnvelope) markup() *types.ReplyMarkup {
	if r == nil {
		return nil
	}

	if len(r.InlineKeyboard) == 0 {
		return nil
	}

	markup := types.ReplyMarkup{Rows: make([][]types.Button, 0, len(r.InlineKeyboard))}
	for _, row := range r.InlineKeyboard {
		buttons := make([]types.Button, 0, len(row))
		for _, button := range row {
			buttons = append(buttons, types.NewButton(button.Text.Trimmed(), button.CallbackData.Value, button.URL.Value))
		}
		markup.Rows = append(markup.Rows, buttons)
	}
	return &markup
}

func (f *FormEnvelope) form() (types.Form, bool) {
	if f == nil || !f.ID.Valid {
		return types.Form{}, false
	}
	return types.Form{
		ID:         f.ID.Value,
		Title:      f.Title.Trimmed(),
		Prompt:     f.Prompt.Trimmed(),
		IsFlexible: f.IsFlex.True(),
	}, true
}
