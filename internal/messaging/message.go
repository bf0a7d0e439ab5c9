// Package messaging carries actions between isolated contexts: one host and many pages.
package messaging

import (
	"encoding/json"

	"github.com/jmylchreest/moodify/internal/mood"
	"github.com/jmylchreest/moodify/internal/settings"
)

// Action names a message type.
type Action string

// Page actions.
const (
	ApplyMood        Action = "applyMood"
	ApplyDarkMode    Action = "applyDarkMode"
	ApplyColorFilter Action = "applyColorFilter"
	RemoveEffects    Action = "removeEffects"
	GetStatus        Action = "getStatus"
	SettingsUpdated  Action = "settingsUpdated"
	CheckSystemTheme Action = "checkSystemTheme"
)

// Host actions.
const (
	GetSettings         Action = "getSettings"
	SaveSettings        Action = "saveSettings"
	GetMoodProfile      Action = "getMoodProfile"
	ApplyToCurrentTab   Action = "applyToCurrentTab"
	ResetCurrentTab     Action = "resetCurrentTab"
	ContentScriptLoaded Action = "contentScriptLoaded"
)

// ErrUnknownAction is the error text returned for unhandled actions.
const ErrUnknownAction = "Unknown action"

// Message is a request sent to a context.
type Message struct {
	Action   Action             `json:"action"`
	Settings *settings.Settings `json:"settings,omitempty"`
	// Enabled and Intensity parameterise applyDarkMode. Intensity also carries the
	// legacy single-axis strength of an applyMood without settings.
	Enabled   *bool     `json:"enabled,omitempty"`
	Intensity *int      `json:"intensity,omitempty"`
	Type      string    `json:"type,omitempty"`
	Mood      mood.Mood `json:"mood,omitempty"`
	// TabID and URL identify the sender of contentScriptLoaded.
	TabID string `json:"tabId,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Response answers a Message.
type Response struct {
	Success         bool   `json:"success"`
	Error           string `json:"error,omitempty"`
	HasCustomStyles *bool  `json:"hasCustomStyles,omitempty"`
	PrefersDarkMode *bool  `json:"prefersDarkMode,omitempty"`
	Mode            string `json:"mode,omitempty"`

	// Settings and Palette are sent bare on the wire in place of the envelope.
	Settings *settings.Settings `json:"-"`
	Palette  *mood.Palette      `json:"-"`
}

// MarshalJSON writes getSettings and getMoodProfile answers as the bare record.
func (r Response) MarshalJSON() ([]byte, error) {
	switch {
	case r.Settings != nil:
		return json.Marshal(r.Settings)
	case r.Palette != nil:
		return json.Marshal(r.Palette)
	}
	type plain Response
	return json.Marshal(plain(r))
}

// OK is a successful response.
func OK() Response {
	return Response{Success: true}
}

// Fail is an unsuccessful response carrying err's message.
func Fail(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

// Unknown answers an unhandled action.
func Unknown() Response {
	return Response{Success: false, Error: ErrUnknownAction}
}

// Bool returns a pointer to b, for optional message fields.
func Bool(b bool) *bool {
	return &b
}

// Int returns a pointer to i, for optional message fields.
func Int(i int) *int {
	return &i
}
