package page

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jmylchreest/moodify/internal/applicator"
	"github.com/jmylchreest/moodify/internal/darkpref"
	"github.com/jmylchreest/moodify/internal/dom"
	"github.com/jmylchreest/moodify/internal/messaging"
	"github.com/jmylchreest/moodify/internal/mood"
	"github.com/jmylchreest/moodify/internal/settings"
)

const html = `<html><head></head><body><div id="box" style="background-color: #333333; height: 100px">Hello</div></body></html>`

var noon = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local) }

func newPage(t *testing.T, cfg Config) *Page {
	t.Helper()
	doc, err := dom.ParseString(html)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Document = doc
	if cfg.URL == "" {
		cfg.URL = "https://news.example/article"
	}
	if cfg.Clock == nil {
		cfg.Clock = noon
	}
	if cfg.ID == "" {
		cfg.ID = "tab-1"
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return p
}

func stylesheet(t *testing.T, p *Page) string {
	t.Helper()
	el, ok := p.Document().ElementByID(applicator.StylesheetID)
	if !ok {
		return ""
	}
	return el.Text()
}

func TestNewParsesHostname(t *testing.T) {
	p := newPage(t, Config{URL: "https://www.example.com:8443/path?q=1"})
	if p.Hostname() != "www.example.com" {
		t.Errorf("Hostname() = %q", p.Hostname())
	}
	if _, err := New(Config{URL: "https://x"}); err == nil {
		t.Error("New() without a document should fail")
	}
}

func TestApplyMoodWithSettings(t *testing.T) {
	p := newPage(t, Config{})
	s := settings.Defaults()
	s.Mood = mood.Energetic

	resp := p.Handle(context.Background(), messaging.Message{Action: messaging.ApplyMood, Settings: &s})
	if !resp.Success {
		t.Fatalf("applyMood failed: %+v", resp)
	}
	if css := stylesheet(t, p); !strings.Contains(css, "#fff3e0") {
		t.Errorf("energetic palette not applied:\n%s", css)
	}
}

func TestApplyMoodRespectsSiteOverride(t *testing.T) {
	p := newPage(t, Config{})
	s := settings.Defaults()
	s.SiteSpecific.Enabled = true
	s.SiteSpecific.Sites["news.example"] = settings.SiteOverride{Mood: mood.Creative}

	p.Handle(context.Background(), messaging.Message{Action: messaging.SettingsUpdated, Settings: &s})
	if css := stylesheet(t, p); !strings.Contains(css, "#f3e5f5") {
		t.Errorf("site override not applied:\n%s", css)
	}
}

func TestApplyMoodExcludedRestores(t *testing.T) {
	p := newPage(t, Config{})
	s := settings.Defaults()
	p.Handle(context.Background(), messaging.Message{Action: messaging.ApplyMood, Settings: &s})
	if stylesheet(t, p) == "" {
		t.Fatal("expected styles before exclusion")
	}

	s.ExcludedDomains = []string{"news.example"}
	resp := p.Handle(context.Background(), messaging.Message{Action: messaging.ApplyMood, Settings: &s})
	if !resp.Success {
		t.Errorf("applyMood on excluded site = %+v", resp)
	}
	if stylesheet(t, p) != "" {
		t.Error("excluded site should be restored")
	}
}

func TestApplyMoodLegacyPayload(t *testing.T) {
	p := newPage(t, Config{})

	resp := p.Handle(context.Background(), messaging.Message{Action: messaging.ApplyMood, Mood: mood.Happy, Intensity: messaging.Int(80)})
	if !resp.Success {
		t.Fatalf("legacy applyMood failed: %+v", resp)
	}
	css := stylesheet(t, p)
	if !strings.Contains(css, "#fffde7") || !strings.Contains(css, "saturate(80%) brightness(120%)") {
		t.Errorf("legacy payload not applied:\n%s", css)
	}

	p.Handle(context.Background(), messaging.Message{Action: messaging.ApplyMood, Mood: "grumpy"})
	if css := stylesheet(t, p); !strings.Contains(css, "#e8f5e9") {
		t.Errorf("unknown legacy mood should fall back to calm:\n%s", css)
	}
}

func TestDarkModeAndFilters(t *testing.T) {
	p := newPage(t, Config{})
	ctx := context.Background()

	resp := p.Handle(ctx, messaging.Message{Action: messaging.ApplyDarkMode, Enabled: messaging.Bool(true), Intensity: messaging.Int(60)})
	if !resp.Success || !strings.Contains(stylesheet(t, p), "invert(60%)") {
		t.Errorf("dark mode not applied: %+v", resp)
	}

	resp = p.Handle(ctx, messaging.Message{Action: messaging.ApplyColorFilter, Type: "tritanopia"})
	if !resp.Success || !strings.Contains(stylesheet(t, p), "tritanopia-filter") {
		t.Errorf("filter not applied: %+v", resp)
	}

	resp = p.Handle(ctx, messaging.Message{Action: messaging.ApplyColorFilter, Type: "sepia"})
	if resp.Success || resp.Error == "" {
		t.Errorf("unknown filter should fail: %+v", resp)
	}

	resp = p.Handle(ctx, messaging.Message{Action: messaging.RemoveEffects})
	if !resp.Success || stylesheet(t, p) != "" {
		t.Errorf("removeEffects left styles: %+v", resp)
	}
}

func TestGetStatus(t *testing.T) {
	p := newPage(t, Config{Dark: darkpref.Static(true)})
	ctx := context.Background()

	resp := p.Handle(ctx, messaging.Message{Action: messaging.GetStatus})
	if !resp.Success || resp.HasCustomStyles == nil || *resp.HasCustomStyles || !*resp.PrefersDarkMode {
		t.Errorf("status before apply = %+v", resp)
	}

	s := settings.Defaults()
	p.Handle(ctx, messaging.Message{Action: messaging.ApplyMood, Settings: &s})
	resp = p.Handle(ctx, messaging.Message{Action: messaging.GetStatus})
	if !*resp.HasCustomStyles || resp.Mode != "mood" {
		t.Errorf("status after apply = %+v", resp)
	}
}

func TestUnknownAction(t *testing.T) {
	p := newPage(t, Config{})
	resp := p.Handle(context.Background(), messaging.Message{Action: "reset"})
	if resp.Success || resp.Error != "Unknown action" {
		t.Errorf("unknown action = %+v", resp)
	}
}

func TestOnChangeAndClose(t *testing.T) {
	calls := 0
	p := newPage(t, Config{OnChange: func(*Page) { calls++ }})
	pristine := p.Document().String()

	s := settings.Defaults()
	p.Handle(context.Background(), messaging.Message{Action: messaging.ApplyMood, Settings: &s})
	p.Close()

	if calls != 2 {
		t.Errorf("OnChange called %d times, want 2", calls)
	}
	if p.Document().String() != pristine {
		t.Error("Close() did not restore the document")
	}
}

func TestCheckSystemTheme(t *testing.T) {
	bus := messaging.NewBus(nil, 0)
	defer bus.Close()

	stored := settings.Defaults()
	stored.Mood = mood.Happy
	stored.FollowSystemTheme = true
	if err := bus.Register("host", messaging.HandlerFunc(func(ctx context.Context, msg messaging.Message) messaging.Response {
		if msg.Action != messaging.GetSettings {
			return messaging.Unknown()
		}
		s := stored.Clone()
		return messaging.Response{Success: true, Settings: &s}
	})); err != nil {
		t.Fatal(err)
	}

	p := newPage(t, Config{Bus: bus, HostID: "host", Dark: darkpref.Static(true)})
	resp := p.Handle(context.Background(), messaging.Message{Action: messaging.CheckSystemTheme})
	if !resp.Success {
		t.Fatalf("checkSystemTheme failed: %+v", resp)
	}
	if css := stylesheet(t, p); !strings.Contains(css, "#eceff1") {
		t.Errorf("dark preference should switch to the focused palette:\n%s", css)
	}
}

func TestCheckSystemThemeIgnoredWhenNotFollowing(t *testing.T) {
	bus := messaging.NewBus(nil, 0)
	defer bus.Close()
	if err := bus.Register("host", messaging.HandlerFunc(func(ctx context.Context, msg messaging.Message) messaging.Response {
		s := settings.Defaults()
		return messaging.Response{Success: true, Settings: &s}
	})); err != nil {
		t.Fatal(err)
	}

	p := newPage(t, Config{Bus: bus, HostID: "host", Dark: darkpref.Static(true)})
	p.Handle(context.Background(), messaging.Message{Action: messaging.CheckSystemTheme})
	if stylesheet(t, p) != "" {
		t.Error("page should be untouched when not following the system theme")
	}
}
