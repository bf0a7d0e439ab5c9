// Package settings defines the persisted settings record and the stores that hold it.
package settings

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/jmylchreest/moodify/internal/colour"
	"github.com/jmylchreest/moodify/internal/mood"
)

// Intensity bounds for saturation and brightness.
const (
	MinPercent = 0
	MaxPercent = 100
)

// Percent is an intensity slider value in [0,100].
// It decodes from JSON numbers and numeric strings, since slider widgets report strings.
type Percent int

// UnmarshalJSON accepts 50, 50.7 and "50". Finite values outside [0,100] are clamped.
func (p *Percent) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid percentage %s: %w", string(data), err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid percentage %s: not a finite number", string(data))
	}
	*p = Percent(int(max(MinPercent, min(MaxPercent, f))))
	return nil
}

// Clamp restricts p to [0,100].
func (p Percent) Clamp() Percent {
	return Percent(max(MinPercent, min(MaxPercent, int(p))))
}

// Factor returns p as a fraction in [0,1].
func (p Percent) Factor() float64 {
	return float64(p.Clamp()) / 100
}

// Ptr returns a pointer to p, for building site overrides.
func (p Percent) Ptr() *Percent {
	return &p
}

// SiteOverride is a partial settings patch for one hostname. Absent fields keep the inherited value.
type SiteOverride struct {
	Mood       mood.Mood `json:"mood,omitempty" yaml:"mood,omitempty" toml:"mood,omitempty"`
	Saturation *Percent  `json:"saturation,omitempty" yaml:"saturation,omitempty" toml:"saturation,omitempty"`
	Brightness *Percent  `json:"brightness,omitempty" yaml:"brightness,omitempty" toml:"brightness,omitempty"`
}

// SiteSpecific holds per-hostname overrides keyed by the exact hostname.
type SiteSpecific struct {
	Enabled bool                    `json:"enabled" yaml:"enabled" toml:"enabled"`
	Sites   map[string]SiteOverride `json:"sites" yaml:"sites" toml:"sites"`
}

// TimeBased selects a mood by time of day. Day is local hours [6,18).
type TimeBased struct {
	Enabled   bool      `json:"enabled" yaml:"enabled" toml:"enabled"`
	DayMood   mood.Mood `json:"dayMood" yaml:"dayMood" toml:"dayMood"`
	NightMood mood.Mood `json:"nightMood" yaml:"nightMood" toml:"nightMood"`
}

// CustomColors is the user palette used when the mood is custom.
type CustomColors struct {
	Enabled         bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	BackgroundColor string `json:"backgroundColor" yaml:"backgroundColor" toml:"backgroundColor"`
	TextColor       string `json:"textColor" yaml:"textColor" toml:"textColor"`
	LinkColor       string `json:"linkColor" yaml:"linkColor" toml:"linkColor"`
}

// Palette converts the custom colours into a palette. The link colour doubles as the accent.
func (c CustomColors) Palette() mood.Palette {
	p := mood.WithCustomDefaults(mood.Palette{
		Background: c.BackgroundColor,
		Text:       c.TextColor,
		Link:       c.LinkColor,
	})
	p.Accent = p.Link
	return p
}

// Settings is the single persisted record for an installation.
type Settings struct {
	Enabled           bool         `json:"enabled" yaml:"enabled" toml:"enabled"`
	Mood              mood.Mood    `json:"mood" yaml:"mood" toml:"mood"`
	Saturation        Percent      `json:"saturation" yaml:"saturation" toml:"saturation"`
	Brightness        Percent      `json:"brightness" yaml:"brightness" toml:"brightness"`
	ApplyToImages     bool         `json:"applyToImages" yaml:"applyToImages" toml:"applyToImages"`
	TextReadability   bool         `json:"textReadability" yaml:"textReadability" toml:"textReadability"`
	FollowSystemTheme bool         `json:"followSystemTheme" yaml:"followSystemTheme" toml:"followSystemTheme"`
	SiteSpecific      SiteSpecific `json:"siteSpecific" yaml:"siteSpecific" toml:"siteSpecific"`
	TimeBased         TimeBased    `json:"timeBased" yaml:"timeBased" toml:"timeBased"`
	CustomColors      CustomColors `json:"customColors" yaml:"customColors" toml:"customColors"`
	ExcludedDomains   []string     `json:"excludedDomains" yaml:"excludedDomains" toml:"excludedDomains"`
}

// Defaults returns the settings a fresh installation starts with.
func Defaults() Settings {
	return Settings{
		Enabled:         true,
		Mood:            mood.Calm,
		Saturation:      50,
		Brightness:      50,
		TextReadability: true,
		SiteSpecific: SiteSpecific{
			Sites: map[string]SiteOverride{},
		},
		TimeBased: TimeBased{
			DayMood:   mood.Focused,
			NightMood: mood.Calm,
		},
		CustomColors: CustomColors{
			BackgroundColor: mood.DefaultCustomBackground,
			TextColor:       mood.DefaultCustomText,
			LinkColor:       mood.DefaultCustomLink,
		},
		ExcludedDomains: []string{},
	}
}

// Clone returns a deep copy, so a resolution can treat its input as an immutable snapshot.
func (s Settings) Clone() Settings {
	out := s
	out.SiteSpecific.Sites = make(map[string]SiteOverride, len(s.SiteSpecific.Sites))
	for host, o := range s.SiteSpecific.Sites {
		if o.Saturation != nil {
			o.Saturation = o.Saturation.Ptr()
		}
		if o.Brightness != nil {
			o.Brightness = o.Brightness.Ptr()
		}
		out.SiteSpecific.Sites[host] = o
	}
	out.ExcludedDomains = slices.Clone(s.ExcludedDomains)
	if out.ExcludedDomains == nil {
		out.ExcludedDomains = []string{}
	}
	return out
}

// Normalize returns a copy with intensities clamped, defaults filled and excluded domains de-duplicated.
func (s Settings) Normalize() Settings {
	out := s.Clone()
	out.Saturation = out.Saturation.Clamp()
	out.Brightness = out.Brightness.Clamp()

	for host, o := range out.SiteSpecific.Sites {
		if o.Saturation != nil {
			o.Saturation = o.Saturation.Clamp().Ptr()
		}
		if o.Brightness != nil {
			o.Brightness = o.Brightness.Clamp().Ptr()
		}
		out.SiteSpecific.Sites[host] = o
	}

	if out.TimeBased.DayMood == "" {
		out.TimeBased.DayMood = mood.Focused
	}
	if out.TimeBased.NightMood == "" {
		out.TimeBased.NightMood = mood.Calm
	}

	if out.CustomColors.BackgroundColor == "" {
		out.CustomColors.BackgroundColor = mood.DefaultCustomBackground
	}
	if out.CustomColors.TextColor == "" {
		out.CustomColors.TextColor = mood.DefaultCustomText
	}
	if out.CustomColors.LinkColor == "" {
		out.CustomColors.LinkColor = mood.DefaultCustomLink
	}

	seen := make(map[string]bool, len(out.ExcludedDomains))
	domains := out.ExcludedDomains[:0]
	for _, d := range out.ExcludedDomains {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		domains = append(domains, d)
	}
	out.ExcludedDomains = domains

	return out
}

// Validate checks mood names and custom colours.
func (s Settings) Validate() error {
	if !s.Mood.Valid() {
		return fmt.Errorf("mood: %w: %q", mood.ErrUnknownMood, s.Mood)
	}
	if s.Mood == mood.Custom && !s.CustomColors.Enabled {
		return fmt.Errorf("mood: %w: custom requires customColors.enabled", mood.ErrUnknownMood)
	}
	for name, m := range map[string]mood.Mood{"timeBased.dayMood": s.TimeBased.DayMood, "timeBased.nightMood": s.TimeBased.NightMood} {
		if m != "" && !m.Valid() {
			return fmt.Errorf("%s: %w: %q", name, mood.ErrUnknownMood, m)
		}
	}
	for _, host := range slices.Sorted(maps.Keys(s.SiteSpecific.Sites)) {
		if m := s.SiteSpecific.Sites[host].Mood; m != "" && !m.Valid() {
			return fmt.Errorf("siteSpecific.sites[%s].mood: %w: %q", host, mood.ErrUnknownMood, m)
		}
	}
	for name, hex := range map[string]string{
		"customColors.backgroundColor": s.CustomColors.BackgroundColor,
		"customColors.textColor":       s.CustomColors.TextColor,
		"customColors.linkColor":       s.CustomColors.LinkColor,
	} {
		if hex == "" {
			continue
		}
		if _, err := colour.ParseHex(hex); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// IsExcluded reports whether host is in the excluded domains.
func (s Settings) IsExcluded(host string) bool {
	return slices.Contains(s.ExcludedDomains, host)
}

// String renders the settings as indented JSON.
func (s Settings) String() string {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Sprintf("settings(%v)", err)
	}
	return string(data)
}
