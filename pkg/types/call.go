package types

import "strings"

// CallType is the kind of dialog requested from the contact center
type CallType string

const (
	CallText  CallType = "text"
	CallAudio CallType = "audio"
	CallVideo CallType = "video"
)

// ParseCallType resolves a call type name.
func ParseCallType(value string) (CallType, bool) {
	switch t := CallType(strings.ToLower(strings.TrimSpace(value))); t {
	case CallText, CallAudio, CallVideo:
		return t, true
	default:
		return "", false
	}
}

// IsMedia reports whether the call needs a media stream.
func (t CallType) IsMedia() bool {
	return t == CallAudio || t == CallVideo
}

// Location is a geographic point
type Location struct {
	Latitude  float64
	Longitude float64
}

// Battery is the device battery state reported on call initialization
type Battery struct {
	Percentage  *float64 `json:"percentage,omitempty"`
	IsCharging  *bool    `json:"is_charging,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Device is the device telemetry reported on call initialization
type Device struct {
	OS             string   `json:"os,omitempty"`
	OSVersion      string   `json:"os_version,omitempty"`
	Name           string   `json:"name,omitempty"`
	AppVersion     string   `json:"app_version,omitempty"`
	MobileOperator string   `json:"mobile_operator,omitempty"`
	Battery        *Battery `json:"battery,omitempty"`
}

// CallInitialization describes a request to start a dialog. Empty strings and
// nil pointers are treated as not provided.
type CallInitialization struct {
	CallType CallType

	UserID      *int64
	Domain      string
	Topic       string
	Scope       string
	ServiceCode string

	IIN        string
	Phone      string
	FirstName  string
	LastName   string
	Patronymic string

	Device   *Device
	Location *Location
	Language Language
}

// UserLocation is a detailed position fix sent by the user
type UserLocation struct {
	Provider                     string   `json:"provider,omitempty"`
	Latitude                     float64  `json:"latitude"`
	Longitude                    float64  `json:"longitude"`
	Bearing                      *float64 `json:"bearing,omitempty"`
	BearingAccuracyDegrees       *float64 `json:"bearingAccuracyDegrees,omitempty"`
	XAccuracyMeters              *float64 `json:"xAccuracyMeters,omitempty"`
	YAccuracyMeters              *float64 `json:"yAccuracyMeters,omitempty"`
	Speed                        *float64 `json:"speed,omitempty"`
	SpeedAccuracyMetersPerSecond *float64 `json:"speedAccuracyMetersPerSecond,omitempty"`
}
