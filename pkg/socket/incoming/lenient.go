package incoming

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// The backend is loose about scalar types: ids arrive as numbers or strings,
// flags as booleans, numbers or strings. The Opt types accept every variant
// and record whether a usable value was present. A value of the wrong shape
// reads as absent and never fails the enclosing document, so one bad field
// cannot hide the rest of a payload.

var null = []byte("null")

func isNull(data []byte) bool {
	return len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), null)
}

// OptString is a scalar read as text. Numbers and booleans keep their JSON
// spelling.
type OptString struct {
	Value string
	Valid bool
}

func (s *OptString) UnmarshalJSON(data []byte) error {
	*s = OptString{}
	if isNull(data) {
		return nil
	}

	data = bytes.TrimSpace(data)
	switch data[0] {
	case '"':
		if err := json.Unmarshal(data, &s.Value); err != nil {
			return nil
		}
	case '{', '[':
		return nil
	default:
		s.Value = string(data)
	}

	s.Valid = true
	return nil
}

// Trimmed returns the value without surrounding whitespace.
func (s OptString) Trimmed() string {
	return strings.TrimSpace(s.Value)
}

// Blank reports whether the value is missing or whitespace only.
func (s OptString) Blank() bool {
	return !s.Valid || s.Trimmed() == ""
}

// OptInt is an integer that may arrive as a number or a numeric string.
type OptInt struct {
	Value int64
	Valid bool
}

func (i *OptInt) UnmarshalJSON(data []byte) error {
	*i = OptInt{}
	if isNull(data) {
		return nil
	}

	text, ok := scalarText(data)
	if !ok || text == "" {
		return nil
	}

	if value, err := strconv.ParseInt(text, 10, 64); err == nil {
		i.Value, i.Valid = value, true
		return nil
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) {
		return nil
	}
	// float64(math.MaxInt64) rounds up to 2^63, which no int64 can hold.
	if value < math.MinInt64 || value >= math.MaxInt64 {
		return nil
	}
	i.Value, i.Valid = int64(value), true
	return nil
}

// Or returns the value, or fallback when it is missing.
func (i OptInt) Or(fallback int64) int64 {
	if !i.Valid {
		return fallback
	}
	return i.Value
}

// OptFloat is a number that may arrive as a numeric string.
type OptFloat struct {
	Value float64
	Valid bool
}

func (f *OptFloat) UnmarshalJSON(data []byte) error {
	*f = OptFloat{}
	if isNull(data) {
		return nil
	}

	text, ok := scalarText(data)
	if !ok {
		return nil
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	f.Value, f.Valid = value, true
	return nil
}

// OptBool is a flag that may arrive as a boolean, a number or a string.
type OptBool struct {
	Value bool
	Valid bool
}

func (b *OptBool) UnmarshalJSON(data []byte) error {
	*b = OptBool{}
	if isNull(data) {
		return nil
	}

	text, ok := scalarText(data)
	if !ok {
		return nil
	}

	switch strings.ToLower(text) {
	case "true", "1":
		b.Value, b.Valid = true, true
	case "false", "0", "":
		b.Value, b.Valid = false, true
	}
	return nil
}

// True reports whether the flag is present and set.
func (b OptBool) True() bool {
	return b.Valid && b.Value
}

// scalarText returns the trimmed text of a JSON string, number or boolean.
// Objects and arrays report false.
func scalarText(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	switch data[0] {
	case '{', '[':
		return "", false
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return "", false
		}
		return strings.TrimSpace(text), true
	default:
		return string(data), true
	}
}

// decodeObject decodes data into v when it is a JSON object and leaves v
// untouched otherwise.
func decodeObject(data []byte, v interface{}) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	return json.Unmarshal(data, v)
}

// decodeArray splits a JSON array into its elements. Anything else yields
// no elements.
func decodeArray(data []byte) []json.RawMessage {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	return items
}

func isObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}

func present(raw json.RawMessage) bool {
	return !isNull(raw)
}
