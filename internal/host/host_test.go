package host

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jmylchreest/moodify/internal/applicator"
	"github.com/jmylchreest/moodify/internal/darkpref"
	"github.com/jmylchreest/moodify/internal/dom"
	"github.com/jmylchreest/moodify/internal/messaging"
	"github.com/jmylchreest/moodify/internal/mood"
	"github.com/jmylchreest/moodify/internal/page"
	"github.com/jmylchreest/moodify/internal/settings"
)

const doc = `<html><head></head><body><div style="background-color: #333333; height: 100px">Hello</div></body></html>`

var noon = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local) }

type harness struct {
	host    *Service
	store   *settings.MemoryStore
	bus     *messaging.Bus
	renders chan string
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = noon
	}
	if opts.TickInterval == 0 {
		opts.TickInterval = time.Hour
	}
	h := &harness{
		store:   settings.NewMemoryStore(),
		bus:     messaging.NewBus(nil, 0),
		renders: make(chan string, 256),
	}
	host, err := New(h.store, h.bus, darkpref.Static(false), nil, opts)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	h.host = host
	t.Cleanup(func() {
		host.Close()
		h.bus.Close()
	})
	return h
}

func (h *harness) open(t *testing.T, url string) string {
	t.Helper()
	d, err := dom.ParseString(doc)
	if err != nil {
		t.Fatal(err)
	}
	id, err := h.host.OpenTab(url, d, func(p *page.Page) {
		out, err := p.Render()
		if err != nil {
			return
		}
		select {
		case h.renders <- string(out):
		default:
		}
	})
	if err != nil {
		t.Fatalf("OpenTab(%s) unexpected error: %v", url, err)
	}
	return id
}

// await returns the first page render satisfying want.
func (h *harness) await(t *testing.T, want func(string) bool) string {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case r := <-h.renders:
			if want(r) {
				return r
			}
		case <-timeout:
			t.Fatal("timed out waiting for page render")
			return ""
		}
	}
}

func (h *harness) send(t *testing.T, msg messaging.Message) messaging.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := h.bus.Send(ctx, ID, msg)
	if err != nil {
		t.Fatalf("Send(%s) unexpected error: %v", msg.Action, err)
	}
	return resp
}

func contains(s string) func(string) bool {
	return func(r string) bool { return strings.Contains(r, s) }
}

func TestIsInternalURL(t *testing.T) {
	tests := map[string]bool{
		"about:blank":                    true,
		"moz-extension://abc/popup.html": true,
		"chrome://settings":              true,
		"https://example.com":            false,
		"http://about.example":           false,
	}
	for url, want := range tests {
		if got := IsInternalURL(url); got != want {
			t.Errorf("IsInternalURL(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestInitPersistsDefaults(t *testing.T) {
	h := newHarness(t, Options{})
	if err := h.host.Init(context.Background()); err != nil {
		t.Fatalf("Init() unexpected error: %v", err)
	}
	got, err := h.store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() after Init: %v", err)
	}
	if diff := cmp.Diff(settings.Defaults(), got); diff != "" {
		t.Errorf("persisted settings mismatch (-want +got):\n%s", diff)
	}
	if h.host.Scheduler().Running() {
		t.Error("scheduler should not run with time-based moods disabled")
	}
}

func TestInitKeepsExistingSettings(t *testing.T) {
	h := newHarness(t, Options{})
	s := settings.Defaults()
	s.Mood = mood.Relaxed
	s.TimeBased.Enabled = true
	if err := h.store.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if err := h.host.Init(context.Background()); err != nil {
		t.Fatalf("Init() unexpected error: %v", err)
	}
	got, _ := h.store.Load(context.Background())
	if got.Mood != mood.Relaxed {
		t.Errorf("Init() overwrote mood with %s", got.Mood)
	}
	if !h.host.Scheduler().Running() {
		t.Error("scheduler should start with time-based moods enabled")
	}
}

func TestGetSettings(t *testing.T) {
	h := newHarness(t, Options{})

	resp := h.send(t, messaging.Message{Action: messaging.GetSettings})
	if !resp.Success || resp.Settings == nil {
		t.Fatalf("getSettings = %+v", resp)
	}
	if diff := cmp.Diff(settings.Defaults(), *resp.Settings); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}

	h.store.LoadErr = errors.New("disk on fire")
	resp = h.send(t, messaging.Message{Action: messaging.GetSettings})
	if !resp.Success || resp.Settings == nil || resp.Settings.Mood != mood.Calm {
		t.Errorf("getSettings on load failure = %+v, want defaults", resp)
	}
}

func TestSaveSettingsBroadcasts(t *testing.T) {
	h := newHarness(t, Options{})
	h.open(t, "https://news.example/")
	h.open(t, "about:blank")

	s := settings.Defaults()
	s.Mood = mood.Energetic
	s.Saturation = 150
	resp := h.send(t, messaging.Message{Action: messaging.SaveSettings, Settings: &s})
	if !resp.Success {
		t.Fatalf("saveSettings = %+v", resp)
	}

	h.await(t, contains("#fff3e0"))

	stored, _ := h.store.Load(context.Background())
	if stored.Saturation != 100 {
		t.Errorf("stored saturation = %d, want clamped 100", stored.Saturation)
	}
}

func TestSaveSettingsStorageFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.store.SaveErr = errors.New("quota exceeded")

	s := settings.Defaults()
	resp := h.send(t, messaging.Message{Action: messaging.SaveSettings, Settings: &s})
	if resp.Success {
		t.Fatal("saveSettings should fail when storage fails")
	}
	if !strings.Contains(resp.Error, "quota exceeded") {
		t.Errorf("error = %q", resp.Error)
	}

	resp = h.send(t, messaging.Message{Action: messaging.SaveSettings})
	if resp.Success {
		t.Error("saveSettings without settings should fail")
	}
}

func TestSaveSettingsUpdatesCustomPaletteAndScheduler(t *testing.T) {
	h := newHarness(t, Options{})

	s := settings.Defaults()
	s.CustomColors.Enabled = true
	s.CustomColors.BackgroundColor = "#101010"
	s.TimeBased.Enabled = true
	h.send(t, messaging.Message{Action: messaging.SaveSettings, Settings: &s})

	p, _ := h.host.Catalog().Lookup(mood.Custom)
	if p.Background != "#101010" {
		t.Errorf("custom palette background = %s", p.Background)
	}
	if !h.host.Scheduler().Running() {
		t.Error("scheduler should be running")
	}

	s.TimeBased.Enabled = false
	h.send(t, messaging.Message{Action: messaging.SaveSettings, Settings: &s})
	if h.host.Scheduler().Running() {
		t.Error("scheduler should be stopped")
	}
}

func TestDisablingStopsScheduler(t *testing.T) {
	h := newHarness(t, Options{})

	s := settings.Defaults()
	s.TimeBased.Enabled = true
	h.send(t, messaging.Message{Action: messaging.SaveSettings, Settings: &s})
	if !h.host.Scheduler().Running() {
		t.Fatal("scheduler should be running")
	}

	s.Enabled = false
	h.send(t, messaging.Message{Action: messaging.SaveSettings, Settings: &s})
	if h.host.Scheduler().Running() {
		t.Error("scheduler should stop when recolouring is disabled")
	}

	s.Enabled = true
	h.send(t, messaging.Message{Action: messaging.SaveSettings, Settings: &s})
	if !h.host.Scheduler().Running() {
		t.Error("scheduler should restart when recolouring is enabled again")
	}
}

func TestGetMoodProfile(t *testing.T) {
	h := newHarness(t, Options{})

	resp := h.send(t, messaging.Message{Action: messaging.GetMoodProfile, Mood: mood.Creative})
	want := mood.Palette{Background: "#f3e5f5", Text: "#4a148c", Link: "#8e24aa", Accent: "#ce93d8"}
	if resp.Palette == nil || *resp.Palette != want {
		t.Errorf("getMoodProfile(creative) = %+v", resp.Palette)
	}

	resp = h.send(t, messaging.Message{Action: messaging.GetMoodProfile, Mood: "grumpy"})
	if resp.Palette == nil || resp.Palette.Background != "#e8f5e9" {
		t.Errorf("getMoodProfile(grumpy) = %+v, want calm", resp.Palette)
	}
}

func TestApplyAndResetCurrentTab(t *testing.T) {
	h := newHarness(t, Options{})
	h.open(t, "https://news.example/")

	s := settings.Defaults()
	s.Mood = mood.Happy
	resp := h.send(t, messaging.Message{Action: messaging.ApplyToCurrentTab, Settings: &s})
	if !resp.Success {
		t.Fatalf("applyToCurrentTab = %+v", resp)
	}
	h.await(t, contains(applicator.StylesheetID))

	h.send(t, messaging.Message{Action: messaging.ResetCurrentTab})
	out := h.await(t, func(r string) bool { return !strings.Contains(r, applicator.StylesheetID) })
	if !strings.Contains(out, "background-color: #333333") {
		t.Errorf("reset did not restore the original style:\n%s", out)
	}
}

func TestApplyToInternalTabIsIgnored(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.open(t, "about:blank")

	resp := h.send(t, messaging.Message{Action: messaging.ApplyToCurrentTab})
	if !resp.Success {
		t.Errorf("applyToCurrentTab on internal tab = %+v", resp)
	}
	if _, ok := h.host.Page(id); ok {
		t.Error("internal tabs should have no page context")
	}
}

func TestAutoApplyOnLoad(t *testing.T) {
	h := newHarness(t, Options{AutoApply: true})
	s := settings.Defaults()
	s.Mood = mood.Relaxed
	if err := h.store.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	h.open(t, "https://news.example/")
	h.await(t, contains("#e3f2fd"))
}

func TestUnknownAction(t *testing.T) {
	h := newHarness(t, Options{})
	resp := h.send(t, messaging.Message{Action: "launchRockets"})
	if diff := cmp.Diff(messaging.Unknown(), resp); diff != "" {
		t.Errorf("unknown action response mismatch (-want +got):\n%s", diff)
	}
}

func TestTabLifecycle(t *testing.T) {
	h := newHarness(t, Options{})
	first := h.open(t, "https://a.example/")
	second := h.open(t, "https://b.example/")

	if active, _ := h.host.ActiveTab(); active != first {
		t.Errorf("first opened tab should be active, got %s", active)
	}
	if err := h.host.ActivateTab(second); err != nil {
		t.Fatalf("ActivateTab() unexpected error: %v", err)
	}
	if err := h.host.ActivateTab("nope"); !errors.Is(err, ErrUnknownTab) {
		t.Errorf("ActivateTab(nope) error = %v", err)
	}

	if err := h.host.CloseTab(second); err != nil {
		t.Fatalf("CloseTab() unexpected error: %v", err)
	}
	if h.bus.Registered(second) {
		t.Error("closed tab should leave the bus")
	}
	want := []Tab{{ID: first, URL: "https://a.example/", Active: true}}
	if diff := cmp.Diff(want, h.host.Tabs()); diff != "" {
		t.Errorf("Tabs() mismatch (-want +got):\n%s", diff)
	}
	if err := h.host.CloseTab(second); !errors.Is(err, ErrUnknownTab) {
		t.Errorf("second CloseTab() error = %v", err)
	}
}

func TestSchedulerReappliesToTabs(t *testing.T) {
	h := newHarness(t, Options{})
	h.open(t, "https://news.example/")

	s := settings.Defaults()
	s.TimeBased.Enabled = true
	s.TimeBased.DayMood = mood.Energetic
	if err := h.store.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	h.host.StorageChanged(context.Background())

	h.await(t, contains("#fff3e0"))
	if !h.host.Scheduler().Running() {
		t.Error("storage change enabling time-based moods should start the scheduler")
	}
}
