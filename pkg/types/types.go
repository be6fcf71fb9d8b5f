// Package types defines the data model shared by the socket client, the
// encoder, the classifier and listener implementations.
package types

import (
	"strings"
)

// Action is the value of the "action" field carried by message envelopes.
type Action string

const (
	ActionChatTimeout        Action = "chat_timeout"
	ActionOperatorDisconnect Action = "operator_disconnect"
	ActionRedirect           Action = "redirect"

	ActionCallAccept   Action = "call_accept"
	ActionCallDecline  Action = "call_decline"
	ActionCallRedirect Action = "call_redirect"
	ActionCallRedial   Action = "call_redial"
	ActionFinalize     Action = "finalize"

	ActionLocation Action = "location"
)

var knownActions = map[Action]struct{}{
	ActionChatTimeout:        {},
	ActionOperatorDisconnect: {},
	ActionRedirect:           {},
	ActionCallAccept:         {},
	ActionCallDecline:        {},
	ActionCallRedirect:       {},
	ActionCallRedial:         {},
	ActionFinalize:           {},
	ActionLocation:           {},
}

// ParseAction returns the action for a wire value. The second result is false
// for blank and unrecognised values.
func ParseAction(value string) (Action, bool) {
	action := Action(strings.TrimSpace(value))
	if _, ok := knownActions[action]; !ok {
		return "", false
	}
	return action, true
}

// Language is the key the backend expects in "lang" fields.
type Language string

const (
	LanguageKazakh  Language = "kk"
	LanguageRussian Language = "ru"
	LanguageEnglish Language = "en"

	DefaultLanguage = LanguageRussian
)

// LanguageID is the numeric language identifier used in category payloads.
type LanguageID int64

const (
	LanguageIDKazakh  LanguageID = 1
	LanguageIDRussian LanguageID = 2
	LanguageIDEnglish LanguageID = 3
)

var languageIDs = map[Language]LanguageID{
	LanguageKazakh:  LanguageIDKazakh,
	LanguageRussian: LanguageIDRussian,
	LanguageEnglish: LanguageIDEnglish,
}

// ID returns the numeric identifier of the language.
func (l Language) ID() LanguageID {
	return languageIDs[l]
}

func (l Language) String() string {
	return string(l)
}

// ParseLanguage resolves a language key such as "ru".
func ParseLanguage(value string) (Language, bool) {
	lang := Language(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := languageIDs[lang]; !ok {
		return "", false
	}
	return lang, true
}

// LanguageByID resolves a numeric language identifier.
func LanguageByID(id int64) (Language, bool) {
	for lang, langID := range languageIDs {
		if int64(langID) == id {
			return lang, true
		}
	}
	return "", false
}

// IsBlank reports whether s is empty or whitespace only.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
