// Package host is the settings-owning context: it persists settings, tracks open tabs,
// runs the scheduler and fans settings out to pages over the bus.
package host

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/moodify/internal/applicator"
	"github.com/jmylchreest/moodify/internal/dom"
	"github.com/jmylchreest/moodify/internal/messaging"
	"github.com/jmylchreest/moodify/internal/mood"
	"github.com/jmylchreest/moodify/internal/page"
	"github.com/jmylchreest/moodify/internal/resolver"
	"github.com/jmylchreest/moodify/internal/scheduler"
	"github.com/jmylchreest/moodify/internal/settings"
)

// ID is the bus address of the host context.
const ID = "host"

// ErrUnknownTab is returned for tab ids that are not open.
var ErrUnknownTab = errors.New("unknown tab")

var internalPrefixes = []string{"about:", "moz-extension:", "chrome:"}

// IsInternalURL reports whether a tab address belongs to the browser itself. Such tabs are never styled.
func IsInternalURL(u string) bool {
	for _, p := range internalPrefixes {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	return false
}

// Options configure a host.
type Options struct {
	TickInterval time.Duration
	// AutoApply styles pages with the stored settings as soon as they announce themselves.
	AutoApply bool
	Page      applicator.Options
	Clock     func() time.Time
}

// Tab describes an open tab.
type Tab struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

type tab struct {
	id   string
	url  string
	page *page.Page
}

// Service is the host context.
type Service struct {
	store   settings.Store
	catalog *mood.Catalog
	bus     *messaging.Bus
	dark    resolver.DarkPreference
	sched   *scheduler.Scheduler
	logger  hclog.Logger
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	tabs   map[string]*tab
	order  []string
	active string
}

// New creates a host and registers it on bus.
func New(store settings.Store, bus *messaging.Bus, dark resolver.DarkPreference, logger hclog.Logger, opts Options) (*Service, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		store:   store,
		catalog: mood.NewCatalog(),
		bus:     bus,
		dark:    dark,
		logger:  logger,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		tabs:    map[string]*tab{},
	}
	s.sched = scheduler.New(store, s, opts.TickInterval, logger.Named("scheduler"))
	s.sched.SetClock(opts.Clock)

	if err := bus.Register(ID, s); err != nil {
		cancel()
		return nil, fmt.Errorf("register host: %w", err)
	}
	return s, nil
}

// Catalog returns the palette catalog shared with pages.
func (s *Service) Catalog() *mood.Catalog { return s.catalog }

// Scheduler returns the time-based scheduler.
func (s *Service) Scheduler() *scheduler.Scheduler { return s.sched }

// Init persists defaults on first run and starts the scheduler when time-based moods are enabled.
func (s *Service) Init(ctx context.Context) error {
	current, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, settings.ErrNotFound):
		current = settings.Defaults()
		if err := s.store.Save(ctx, current); err != nil {
			return fmt.Errorf("persist default settings: %w", err)
		}
		s.logger.Info("initialised with default settings")
	case err != nil:
		s.logger.Error("loading settings failed, using defaults", "error", err)
		current = settings.Defaults()
	default:
		current = current.Normalize()
		s.logger.Debug("initialised with existing settings")
	}

	s.catalog.SetCustomPalette(current.CustomColors.Palette())
	s.updateScheduler(current)
	return nil
}

// Handle implements messaging.Handler.
func (s *Service) Handle(ctx context.Context, msg messaging.Message) messaging.Response {
	switch msg.Action {
	case messaging.GetSettings:
		current := s.load(ctx)
		return messaging.Response{Success: true, Settings: &current}

	case messaging.SaveSettings:
		if msg.Settings == nil {
			return messaging.Fail(errors.New("missing settings"))
		}
		if err := s.Save(ctx, *msg.Settings); err != nil {
			return messaging.Fail(err)
		}
		return messaging.OK()

	case messaging.GetMoodProfile:
		_, p := s.catalog.LookupOrDefault(msg.Mood)
		return messaging.Response{Success: true, Palette: &p}

	case messaging.ApplyToCurrentTab:
		current := s.load(ctx)
		if msg.Settings != nil {
			current = *msg.Settings
		}
		if id, ok := s.activeEligible(); ok {
			s.post(id, messaging.Message{Action: messaging.ApplyMood, Settings: &current})
		}
		return messaging.OK()

	case messaging.ResetCurrentTab:
		if id, ok := s.activeEligible(); ok {
			s.post(id, messaging.Message{Action: messaging.RemoveEffects})
		}
		return messaging.OK()

	case messaging.ContentScriptLoaded:
		if !s.opts.AutoApply || !s.eligible(msg.TabID) {
			return messaging.OK()
		}
		current := s.load(ctx)
		if current.Enabled {
			s.post(msg.TabID, messaging.Message{Action: messaging.ApplyMood, Settings: &current})
		}
		return messaging.OK()

	default:
		s.logger.Warn("unknown action", "action", msg.Action)
		return messaging.Unknown()
	}
}

// Save normalises and persists settings, then notifies every page and adjusts the scheduler.
// Storage failures are returned without retry.
func (s *Service) Save(ctx context.Context, next settings.Settings) error {
	next = next.Normalize()
	if err := s.store.Save(ctx, next); err != nil {
		s.logger.Error("saving settings failed", "error", err)
		return err
	}
	s.settingsChanged(next)
	return nil
}

// StorageChanged reloads settings written by another process and propagates them.
func (s *Service) StorageChanged(ctx context.Context) {
	current, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Debug("ignoring storage change", "error", err)
		return
	}
	s.logger.Debug("settings changed on disk")
	s.settingsChanged(current.Normalize())
}

func (s *Service) settingsChanged(current settings.Settings) {
	s.catalog.SetCustomPalette(current.CustomColors.Palette())
	s.Broadcast(messaging.Message{Action: messaging.SettingsUpdated, Settings: &current})
	s.updateScheduler(current)
}

func (s *Service) updateScheduler(current settings.Settings) {
	if current.Enabled && current.TimeBased.Enabled {
		s.sched.Start(s.ctx)
		return
	}
	s.sched.Stop()
}

func (s *Service) load(ctx context.Context) settings.Settings {
	current, err := settings.LoadOrDefaults(ctx, s.store)
	if err != nil && !errors.Is(err, settings.ErrNotFound) {
		s.logger.Error("loading settings failed, using defaults", "error", err)
	}
	return current
}

// Reapply posts the settings to every eligible tab. It is the scheduler's target.
func (s *Service) Reapply(ctx context.Context, current settings.Settings, daytime bool) {
	s.logger.Debug("re-applying to open tabs", "daytime", daytime)
	s.Broadcast(messaging.Message{Action: messaging.ApplyMood, Settings: &current})
}

// Broadcast posts msg to every eligible tab. Delivery failures are ignored.
func (s *Service) Broadcast(msg messaging.Message) {
	for _, id := range s.eligibleTabs() {
		if msg.Settings != nil {
			c := msg.Settings.Clone()
			msg.Settings = &c
		}
		s.post(id, msg)
	}
}

func (s *Service) post(id string, msg messaging.Message) {
	_ = s.bus.Post(id, msg)
}

// OpenTab loads a document in a new tab and returns its id. The first tab becomes active.
// Internal pages are tracked but get no page context.
func (s *Service) OpenTab(rawURL string, doc *dom.Document, onChange func(*page.Page)) (string, error) {
	id := uuid.NewString()
	t := &tab{id: id, url: rawURL}

	if !IsInternalURL(rawURL) {
		if doc == nil {
			var err error
			if doc, err = dom.ParseString(""); err != nil {
				return "", err
			}
		}
		p, err := page.New(page.Config{
			ID:       id,
			URL:      rawURL,
			Document: doc,
			Catalog:  s.catalog,
			Dark:     s.dark,
			Bus:      s.bus,
			HostID:   ID,
			Clock:    s.opts.Clock,
			Logger:   s.logger.ResetNamed("page"),
			Options:  s.opts.Page,
			OnChange: onChange,
		})
		if err != nil {
			return "", err
		}
		if err := s.bus.Register(id, p); err != nil {
			return "", err
		}
		t.page = p
	}

	s.mu.Lock()
	s.tabs[id] = t
	s.order = append(s.order, id)
	if s.active == "" {
		s.active = id
	}
	s.mu.Unlock()

	if t.page != nil {
		t.page.Announce()
	}
	s.logger.Debug("tab opened", "tab", id, "url", rawURL)
	return id, nil
}

// CloseTab stops a tab's page context and restores its document.
func (s *Service) CloseTab(id string) error {
	s.mu.Lock()
	t, ok := s.tabs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTab, id)
	}
	delete(s.tabs, id)
	s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })
	if s.active == id {
		s.active = ""
		if n := len(s.order); n > 0 {
			s.active = s.order[n-1]
		}
	}
	s.mu.Unlock()

	if t.page != nil {
		s.bus.Unregister(id)
		t.page.Close()
	}
	s.logger.Debug("tab closed", "tab", id)
	return nil
}

// ActivateTab makes id the current tab.
func (s *Service) ActivateTab(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tabs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTab, id)
	}
	s.active = id
	return nil
}

// Tabs lists open tabs in the order they were opened.
func (s *Service) Tabs() []Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Tab, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, Tab{ID: id, URL: s.tabs[id].url, Active: id == s.active})
	}
	return out
}

// Page returns the page context of a tab.
func (s *Service) Page(id string) (*page.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[id]
	if !ok || t.page == nil {
		return nil, false
	}
	return t.page, true
}

// ActiveTab returns the id of the current tab.
func (s *Service) ActiveTab() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.active != ""
}

func (s *Service) activeEligible() (string, bool) {
	id, ok := s.ActiveTab()
	if !ok || !s.eligible(id) {
		return "", false
	}
	return id, true
}

func (s *Service) eligible(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[id]
	return ok && t.page != nil && !IsInternalURL(t.url)
}

func (s *Service) eligibleTabs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, id := range s.order {
		if t := s.tabs[id]; t.page != nil && !IsInternalURL(t.url) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Close stops the scheduler, closes every tab and leaves the bus.
func (s *Service) Close() {
	s.cancel()
	s.sched.Stop()
	for _, t := range s.Tabs() {
		_ = s.CloseTab(t.ID)
	}
	s.bus.Unregister(ID)
}
