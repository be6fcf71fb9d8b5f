package types

import "strings"

// FieldType is the value type of a form field. It is also the key used for the
// field value when a form is submitted.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldFile     FieldType = "file"
	FieldImage    FieldType = "image"
	FieldAudio    FieldType = "audio"
	FieldVideo    FieldType = "video"
	FieldDocument FieldType = "document"
)

// ParseFieldType resolves a field type, defaulting to text.
func ParseFieldType(value string) FieldType {
	switch t := FieldType(strings.ToLower(strings.TrimSpace(value))); t {
	case FieldText, FieldFile, FieldImage, FieldAudio, FieldVideo, FieldDocument:
		return t
	default:
		return FieldText
	}
}

// NoLevel is the level of a field the backend did not assign a level to.
const NoLevel = -1

// Form is a structured form offered by the backend
type Form struct {
	ID         int64
	Title      string
	Prompt     string
	IsFlexible bool
	Fields     []Field
}

// Field is a single form field. Value and Info are filled in by the user side
// before the form is finalized.
type Field struct {
	ID           int64
	FormID       int64
	Title        string
	Prompt       string
	Type         FieldType
	DefaultValue string
	Level        int
	Value        string
	Info         *FieldInfo
}

// FieldInfo is the per-node metadata submitted for flexible forms. A nil
// field is omitted; a zero is sent as zero.
type FieldInfo struct {
	Extension    *string `json:"extension,omitempty"`
	Width        *int    `json:"width,omitempty"`
	Height       *int    `json:"height,omitempty"`
	Duration     *int64  `json:"duration,omitempty"`
	DateAdded    *int64  `json:"date_added,omitempty"`
	DateModified *int64  `json:"date_modified,omitempty"`
	DateTaken    *int64  `json:"date_taken,omitempty"`
	Size         *int64  `json:"size,omitempty"`
}

// ExtraField is a caller-supplied fixed field merged into a form submission
type ExtraField struct {
	Title string
	Type  FieldType
	Value string
}

// FormResult is the outcome of a form submission
type FormResult struct {
	TrackID string
	TaskID  int64
	Message string
	Success bool
}
