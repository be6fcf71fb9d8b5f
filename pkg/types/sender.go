package types

import (
	"fmt"
	"strings"
)

const (
	DefaultSenderNamespace = "user"
	DefaultSenderChannel   = "em"
	DefaultSenderDelimiter = ":"
)

// Sender is the "namespace:channel:id" identity attached to form submissions
type Sender struct {
	Namespace string
	Channel   string
	ID        string
	Delimiter string
}

// NewSender builds a sender with the default namespace and channel.
func NewSender(id string) (Sender, error) {
	if IsBlank(id) {
		return Sender{}, fmt.Errorf("sender id is required")
	}
	return Sender{
		Namespace: DefaultSenderNamespace,
		Channel:   DefaultSenderChannel,
		ID:        id,
		Delimiter: DefaultSenderDelimiter,
	}, nil
}

// ParseSender splits a sender string using the default delimiter.
func ParseSender(value string) (Sender, error) {
	parts := strings.Split(value, DefaultSenderDelimiter)
	if len(parts) != 3 || IsBlank(parts[2]) {
		return Sender{}, fmt.Errorf("malformed sender %q", value)
	}
	return Sender{
		Namespace: parts[0],
		Channel:   parts[1],
		ID:        parts[2],
		Delimiter: DefaultSenderDelimiter,
	}, nil
}

func (s Sender) String() string {
	delimiter := s.Delimiter
	if delimiter == "" {
		delimiter = DefaultSenderDelimiter
	}
	return s.Namespace + delimiter + s.Channel + delimiter + s.ID
}
