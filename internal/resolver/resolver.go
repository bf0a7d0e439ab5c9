// Package resolver merges persisted settings, per-site overrides, the time of day and the
// system colour scheme into the single configuration applied to a page.
package resolver

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/moodify/internal/mood"
	"github.com/jmylchreest/moodify/internal/settings"
)

// Local hours bounding the day period, [DayStartHour, DayEndHour).
const (
	DayStartHour = 6
	DayEndHour   = 18
)

// DarkPreference reports whether the system currently prefers a dark colour scheme.
type DarkPreference interface {
	PrefersDark() bool
}

// EffectiveConfig is the resolved configuration for one page. It is never persisted.
type EffectiveConfig struct {
	Mood             mood.Mood        `json:"mood"`
	Saturation       settings.Percent `json:"saturation"`
	Brightness       settings.Percent `json:"brightness"`
	SaturationFactor float64          `json:"saturationFactor"`
	BrightnessFactor float64          `json:"brightnessFactor"`
	Palette          mood.Palette     `json:"palette"`
	TextReadability  bool             `json:"textReadability"`
	ApplyToImages    bool             `json:"applyToImages"`
}

// Intensity is the legacy single-axis blend strength: the mean of saturation and brightness as a fraction.
func (c EffectiveConfig) Intensity() float64 {
	return (c.SaturationFactor + c.BrightnessFactor) / 2
}

// Resolver computes effective configurations. Each call is independent of previous ones.
type Resolver struct {
	catalog *mood.Catalog
	dark    DarkPreference
	logger  hclog.Logger
}

// New creates a resolver. A nil dark preference is treated as light.
func New(catalog *mood.Catalog, dark DarkPreference, logger hclog.Logger) *Resolver {
	if catalog == nil {
		catalog = mood.NewCatalog()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Resolver{catalog: catalog, dark: dark, logger: logger}
}

// IsDaytime reports whether t falls in the local day period.
func IsDaytime(t time.Time) bool {
	h := t.Hour()
	return h >= DayStartHour && h < DayEndHour
}

// Resolve returns the configuration for site at now. ok is false when nothing may be applied:
// recolouring is disabled, the site is excluded, or resolution failed internally.
func (r *Resolver) Resolve(s settings.Settings, site string, now time.Time) (cfg EffectiveConfig, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("resolution failed, treating as disabled", "site", site, "panic", fmt.Sprint(rec))
			cfg, ok = EffectiveConfig{}, false
		}
	}()

	snap := s.Clone()

	m := r.knownMood(snap.Mood, snap.CustomColors.Enabled)
	sat := snap.Saturation.Clamp()
	bright := snap.Brightness.Clamp()

	if snap.TimeBased.Enabled {
		if IsDaytime(now) {
			m = r.knownMood(orDefault(snap.TimeBased.DayMood, mood.Focused), snap.CustomColors.Enabled)
		} else {
			m = r.knownMood(orDefault(snap.TimeBased.NightMood, mood.Calm), snap.CustomColors.Enabled)
		}
	}

	if snap.SiteSpecific.Enabled && site != "" {
		if o, found := snap.SiteSpecific.Sites[site]; found {
			if o.Mood != "" {
				m = r.knownMood(o.Mood, snap.CustomColors.Enabled)
			}
			if o.Saturation != nil {
				sat = o.Saturation.Clamp()
			}
			if o.Brightness != nil {
				bright = o.Brightness.Clamp()
			}
		}
	}

	var palette mood.Palette
	if snap.CustomColors.Enabled {
		m = mood.Custom
		palette = snap.CustomColors.Palette()
	} else {
		m, palette = r.catalog.LookupOrDefault(m)
	}

	if snap.FollowSystemTheme && m != mood.Custom && r.dark != nil && r.dark.PrefersDark() {
		m, palette = r.catalog.LookupOrDefault(mood.Dark)
	}

	if site != "" && snap.IsExcluded(site) {
		r.logger.Trace("site excluded", "site", site)
		return EffectiveConfig{}, false
	}
	if !snap.Enabled {
		return EffectiveConfig{}, false
	}

	return EffectiveConfig{
		Mood:             m,
		Saturation:       sat,
		Brightness:       bright,
		SaturationFactor: sat.Factor(),
		BrightnessFactor: bright.Factor(),
		Palette:          palette,
		TextReadability:  snap.TextReadability,
		ApplyToImages:    snap.ApplyToImages,
	}, true
}

// knownMood maps names with no palette to the default. Custom only counts when custom colours are enabled.
func (r *Resolver) knownMood(m mood.Mood, customEnabled bool) mood.Mood {
	if m == mood.Custom && !customEnabled {
		r.logger.Debug("custom mood without custom colours, using default", "default", mood.Default)
		return mood.Default
	}
	if !m.Valid() {
		r.logger.Debug("unknown mood, using default", "mood", m, "default", mood.Default)
		return mood.Default
	}
	return m
}

func orDefault(m, def mood.Mood) mood.Mood {
	if m == "" {
		return def
	}
	return m
}
