package mood

import (
	"fmt"
	"sync"
)

// Palette is the four colour set a mood applies to a page.
type Palette struct {
	Background string `json:"backgroundColor"`
	Text       string `json:"textColor"`
	Link       string `json:"linkColor"`
	Accent     string `json:"accentColor"`
}

// Defaults for any field omitted from a custom palette.
const (
	DefaultCustomBackground = "#ffffff"
	DefaultCustomText       = "#000000"
	DefaultCustomLink       = "#0066cc"
	DefaultCustomAccent     = "#cccccc"
)

var builtinPalettes = map[Mood]Palette{
	Happy: {
		Background: "#fffde7", // Light yellow
		Text:       "#4527a0", // Deep purple
		Link:       "#ff6f00", // Amber
		Accent:     "#ffeb3b", // Yellow
	},
	Calm: {
		Background: "#e8f5e9", // Light green
		Text:       "#1a237e", // Indigo
		Link:       "#0288d1", // Light blue
		Accent:     "#80cbc4", // Teal
	},
	Focused: {
		Background: "#eceff1", // Light blue-grey
		Text:       "#263238", // Dark blue-grey
		Link:       "#0277bd", // Dark blue
		Accent:     "#b0bec5", // Blue-grey
	},
	Energetic: {
		Background: "#fff3e0", // Light orange
		Text:       "#bf360c", // Deep orange
		Link:       "#e65100", // Orange
		Accent:     "#ffcc80", // Light orange
	},
	Relaxed: {
		Background: "#e3f2fd", // Light blue
		Text:       "#1a237e", // Indigo
		Link:       "#5e35b1", // Deep purple
		Accent:     "#bbdefb", // Light blue
	},
	Creative: {
		Background: "#f3e5f5", // Light purple
		Text:       "#4a148c", // Deep purple
		Link:       "#8e24aa", // Purple
		Accent:     "#ce93d8", // Light purple
	},
}

// Catalog maps moods to palettes. The built-in palettes are fixed; the custom slot is mutable.
// A Catalog is safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	custom Palette
}

// NewCatalog creates a catalog with the default custom palette.
func NewCatalog() *Catalog {
	return &Catalog{custom: WithCustomDefaults(Palette{})}
}

// Lookup returns the palette for m.
func (c *Catalog) Lookup(m Mood) (Palette, error) {
	if m == Custom {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.custom, nil
	}
	p, ok := builtinPalettes[m]
	if !ok {
		return Palette{}, fmt.Errorf("%w: %q", ErrUnknownMood, m)
	}
	return p, nil
}

// LookupOrDefault returns the palette for m, falling back to the calm palette for unknown moods.
// The mood actually used is returned alongside the palette.
func (c *Catalog) LookupOrDefault(m Mood) (Mood, Palette) {
	p, err := c.Lookup(m)
	if err != nil {
		return Default, builtinPalettes[Default]
	}
	return m, p
}

// SetCustomPalette replaces the custom slot. Empty fields take the custom defaults.
func (c *Catalog) SetCustomPalette(p Palette) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.custom = WithCustomDefaults(p)
}

// WithCustomDefaults fills empty palette fields with white background, black text,
// blue link and grey accent.
func WithCustomDefaults(p Palette) Palette {
	if p.Background == "" {
		p.Background = DefaultCustomBackground
	}
	if p.Text == "" {
		p.Text = DefaultCustomText
	}
	if p.Link == "" {
		p.Link = DefaultCustomLink
	}
	if p.Accent == "" {
		p.Accent = DefaultCustomAccent
	}
	return p
}
