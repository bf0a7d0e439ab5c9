// Package page is the per-document context: it owns a DOM, its applied styles and a resolver,
// and reacts to messages from the host.
package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/moodify/internal/applicator"
	"github.com/jmylchreest/moodify/internal/dom"
	"github.com/jmylchreest/moodify/internal/messaging"
	"github.com/jmylchreest/moodify/internal/mood"
	"github.com/jmylchreest/moodify/internal/resolver"
	"github.com/jmylchreest/moodify/internal/settings"
)

// DefaultLegacyIntensity is used for applyMood messages that name a mood without an intensity.
const DefaultLegacyIntensity = 50

// hostRequestTimeout bounds requests a page makes to the host.
const hostRequestTimeout = 5 * time.Second

// Config holds the collaborators of a page.
type Config struct {
	ID       string
	URL      string
	Document *dom.Document
	Catalog  *mood.Catalog
	Dark     resolver.DarkPreference
	// Bus and HostID are used for requests back to the host. Both may be empty for a standalone page.
	Bus    *messaging.Bus
	HostID string
	Clock  func() time.Time
	Logger hclog.Logger

	Options applicator.Options
	// OnChange is called after every handled message.
	OnChange func(*Page)
}

// Page is one document context.
type Page struct {
	id       string
	url      string
	hostname string
	doc      *dom.Document
	catalog  *mood.Catalog
	app      *applicator.Applicator
	resolver *resolver.Resolver
	dark     resolver.DarkPreference
	bus      *messaging.Bus
	hostID   string
	clock    func() time.Time
	logger   hclog.Logger
	onChange func(*Page)
}

// New creates a page for cfg.URL.
func New(cfg Config) (*Page, error) {
	if cfg.Document == nil {
		return nil, errors.New("page requires a document")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if cfg.Catalog == nil {
		cfg.Catalog = mood.NewCatalog()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	if cfg.Options == (applicator.Options{}) {
		cfg.Options = applicator.DefaultOptions()
	}
	logger := cfg.Logger.With("page", cfg.ID, "host", u.Hostname())

	return &Page{
		id:       cfg.ID,
		url:      cfg.URL,
		hostname: u.Hostname(),
		doc:      cfg.Document,
		catalog:  cfg.Catalog,
		app:      applicator.New(cfg.Document, cfg.Catalog, logger.Named("applicator"), cfg.Options),
		resolver: resolver.New(cfg.Catalog, cfg.Dark, logger.Named("resolver")),
		dark:     cfg.Dark,
		bus:      cfg.Bus,
		hostID:   cfg.HostID,
		clock:    cfg.Clock,
		logger:   logger,
		onChange: cfg.OnChange,
	}, nil
}

// ID returns the page's context id.
func (p *Page) ID() string { return p.id }

// URL returns the page address.
func (p *Page) URL() string { return p.url }

// Hostname returns the host part of the page address, as used for site overrides and exclusions.
func (p *Page) Hostname() string { return p.hostname }

// Document returns the live document.
func (p *Page) Document() *dom.Document { return p.doc }

// State returns the applied-style state.
func (p *Page) State() applicator.AppliedStyleState { return p.app.State() }

// Render writes the current document.
func (p *Page) Render() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.doc.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Announce tells the host the page is ready to receive styles.
func (p *Page) Announce() {
	if p.bus == nil || p.hostID == "" {
		return
	}
	_ = p.bus.Post(p.hostID, messaging.Message{
		Action: messaging.ContentScriptLoaded,
		TabID:  p.id,
		URL:    p.url,
	})
}

// Handle implements messaging.Handler.
func (p *Page) Handle(ctx context.Context, msg messaging.Message) messaging.Response {
	resp := p.handle(ctx, msg)
	if p.onChange != nil {
		p.onChange(p)
	}
	return resp
}

func (p *Page) handle(ctx context.Context, msg messaging.Message) messaging.Response {
	switch msg.Action {
	case messaging.ApplyMood, messaging.SettingsUpdated:
		if msg.Settings != nil {
			return p.applySettings(*msg.Settings)
		}
		return p.applyLegacy(msg.Mood, msg.Intensity)

	case messaging.ApplyDarkMode:
		intensity := 0
		if msg.Intensity != nil {
			intensity = *msg.Intensity
		}
		if err := p.app.ApplyDarkMode(msg.Enabled != nil && *msg.Enabled, intensity); err != nil {
			return p.fail(msg.Action, err)
		}
		return messaging.OK()

	case messaging.ApplyColorFilter:
		ft, err := applicator.ParseFilterType(msg.Type)
		if err != nil {
			return p.fail(msg.Action, err)
		}
		if err := p.app.ApplyColorFilter(ft); err != nil {
			return p.fail(msg.Action, err)
		}
		return messaging.OK()

	case messaging.RemoveEffects:
		p.app.Restore()
		return messaging.OK()

	case messaging.GetStatus:
		return messaging.Response{
			Success:         true,
			HasCustomStyles: messaging.Bool(p.app.HasCustomStyles()),
			PrefersDarkMode: messaging.Bool(p.prefersDark()),
			Mode:            string(p.app.Mode()),
		}

	case messaging.CheckSystemTheme:
		return p.checkSystemTheme(ctx)

	default:
		p.logger.Warn("unknown action", "action", msg.Action)
		return messaging.Unknown()
	}
}

// applySettings resolves s for this page and applies or restores accordingly.
func (p *Page) applySettings(s settings.Settings) messaging.Response {
	cfg, ok := p.resolver.Resolve(s, p.hostname, p.clock())
	if !ok {
		p.app.Restore()
		return messaging.OK()
	}
	if _, err := p.app.Apply(cfg); err != nil {
		p.app.Restore()
		return p.fail(messaging.ApplyMood, err)
	}
	return messaging.OK()
}

// applyLegacy handles the {mood, intensity} form, where one value drives both axes.
func (p *Page) applyLegacy(m mood.Mood, intensity *int) messaging.Response {
	level := settings.Percent(DefaultLegacyIntensity)
	if intensity != nil {
		level = settings.Percent(*intensity).Clamp()
	}
	used, palette := p.catalog.LookupOrDefault(m)
	if used != m {
		p.logger.Debug("unknown mood, using default", "mood", m, "default", used)
	}
	cfg := resolver.EffectiveConfig{
		Mood:             used,
		Saturation:       level,
		Brightness:       level,
		SaturationFactor: level.Factor(),
		BrightnessFactor: level.Factor(),
		Palette:          palette,
		TextReadability:  true,
	}
	if _, err := p.app.Apply(cfg); err != nil {
		p.app.Restore()
		return p.fail(messaging.ApplyMood, err)
	}
	return messaging.OK()
}

// checkSystemTheme re-applies the stored settings when they follow the system theme.
func (p *Page) checkSystemTheme(ctx context.Context) messaging.Response {
	if p.bus == nil || p.hostID == "" {
		return messaging.OK()
	}
	ctx, cancel := context.WithTimeout(ctx, hostRequestTimeout)
	defer cancel()

	resp, err := p.bus.Send(ctx, p.hostID, messaging.Message{Action: messaging.GetSettings})
	if err != nil {
		p.logger.Debug("settings request failed", "error", err)
		return messaging.OK()
	}
	if resp.Settings != nil && resp.Settings.FollowSystemTheme {
		return p.applySettings(*resp.Settings)
	}
	return messaging.OK()
}

func (p *Page) prefersDark() bool {
	return p.dark != nil && p.dark.PrefersDark()
}

func (p *Page) fail(action messaging.Action, err error) messaging.Response {
	p.logger.Error("action failed", "action", action, "error", err)
	return messaging.Fail(err)
}

// Close restores the document. It must only be called once the page no longer receives messages.
func (p *Page) Close() {
	p.app.Restore()
	if p.onChange != nil {
		p.onChange(p)
	}
}
