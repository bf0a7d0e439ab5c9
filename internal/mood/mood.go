// Package mood holds the catalog of named colour palettes a page can be recoloured with.
package mood

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMood is returned when a mood name has no palette.
var ErrUnknownMood = errors.New("unknown mood")

// Mood is a named palette key.
type Mood string

// Built-in moods.
const (
	Calm      Mood = "calm"
	Happy     Mood = "happy"
	Focused   Mood = "focused"
	Energetic Mood = "energetic"
	Relaxed   Mood = "relaxed"
	Creative  Mood = "creative"
	Custom    Mood = "custom"
)

// Default is the mood every unknown name falls back to.
const Default = Calm

// Dark is the palette used when following a dark system theme.
// No other built-in palette qualifies.
const Dark = Focused

// builtin lists the fixed moods in display order. Custom is not included.
var builtin = []Mood{Calm, Happy, Focused, Energetic, Relaxed, Creative}

// All returns the fixed moods in display order, followed by Custom.
func All() []Mood {
	moods := make([]Mood, 0, len(builtin)+1)
	moods = append(moods, builtin...)
	return append(moods, Custom)
}

// Builtin returns the fixed moods in display order.
func Builtin() []Mood {
	return append([]Mood(nil), builtin...)
}

// Parse converts a name to a Mood. Matching is case-insensitive.
func Parse(name string) (Mood, error) {
	m := Mood(strings.ToLower(strings.TrimSpace(name)))
	if m.Valid() {
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMood, name)
}

// Valid reports whether m names a palette in the catalog.
func (m Mood) Valid() bool {
	if m == Custom {
		return true
	}
	for _, b := range builtin {
		if m == b {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (m Mood) String() string {
	return string(m)
}

// Set implements pflag.Value so moods can be used directly as CLI flags.
func (m *Mood) Set(value string) error {
	parsed, err := Parse(value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Type implements pflag.Value.
func (m *Mood) Type() string {
	return "mood"
}
