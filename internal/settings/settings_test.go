package settings

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jmylchreest/moodify/internal/colour"
	"github.com/jmylchreest/moodify/internal/mood"
)

func TestDefaults(t *testing.T) {
	s := Defaults()

	if !s.Enabled || s.Mood != mood.Calm || s.Saturation != 50 || s.Brightness != 50 {
		t.Errorf("unexpected core defaults: %+v", s)
	}
	if !s.TextReadability || s.ApplyToImages || s.FollowSystemTheme {
		t.Errorf("unexpected flag defaults: %+v", s)
	}
	if s.TimeBased.Enabled || s.TimeBased.DayMood != mood.Focused || s.TimeBased.NightMood != mood.Calm {
		t.Errorf("unexpected timeBased defaults: %+v", s.TimeBased)
	}
	want := CustomColors{BackgroundColor: "#ffffff", TextColor: "#000000", LinkColor: "#0066cc"}
	if diff := cmp.Diff(want, s.CustomColors); diff != "" {
		t.Errorf("customColors mismatch (-want +got):\n%s", diff)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestDefaultsWireNames(t *testing.T) {
	data, err := json.Marshal(Defaults())
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{
		"enabled", "mood", "saturation", "brightness", "applyToImages", "textReadability",
		"followSystemTheme", "siteSpecific", "timeBased", "customColors", "excludedDomains",
	} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing JSON field %q", key)
		}
	}
}

func TestPercentUnmarshal(t *testing.T) {
	tests := []struct {
		input   string
		want    Percent
		wantErr bool
	}{
		{input: `50`, want: 50},
		{input: `"75"`, want: 75},
		{input: `33.9`, want: 33},
		{input: `"abc"`, wantErr: true},
		{input: `"NaN"`, wantErr: true},
		{input: `"Inf"`, wantErr: true},
		{input: `"-Infinity"`, wantErr: true},
		{input: `1e300`, want: 100},
		{input: `"-5"`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var p Percent
			err := json.Unmarshal([]byte(tt.input), &p)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Unmarshal(%s) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal(%s) unexpected error: %v", tt.input, err)
			}
			if p != tt.want {
				t.Errorf("Unmarshal(%s) = %d, want %d", tt.input, p, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	s := Defaults()
	s.Saturation = 140
	s.Brightness = -5
	s.TimeBased.DayMood = ""
	s.CustomColors.LinkColor = ""
	s.ExcludedDomains = []string{"a.com", "b.com", "a.com", ""}
	s.SiteSpecific.Sites["x.org"] = SiteOverride{Saturation: Percent(300).Ptr()}

	n := s.Normalize()

	if n.Saturation != 100 || n.Brightness != 0 {
		t.Errorf("intensities not clamped: sat=%d bright=%d", n.Saturation, n.Brightness)
	}
	if n.TimeBased.DayMood != mood.Focused {
		t.Errorf("dayMood = %s, want focused", n.TimeBased.DayMood)
	}
	if n.CustomColors.LinkColor != mood.DefaultCustomLink {
		t.Errorf("linkColor = %s", n.CustomColors.LinkColor)
	}
	if diff := cmp.Diff([]string{"a.com", "b.com"}, n.ExcludedDomains); diff != "" {
		t.Errorf("excludedDomains mismatch (-want +got):\n%s", diff)
	}
	if got := *n.SiteSpecific.Sites["x.org"].Saturation; got != 100 {
		t.Errorf("site saturation = %d, want 100", got)
	}
	if *s.SiteSpecific.Sites["x.org"].Saturation != 300 {
		t.Error("Normalize modified its receiver")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := Defaults()
	s.ExcludedDomains = []string{"a.com"}
	s.SiteSpecific.Sites["x.org"] = SiteOverride{Mood: mood.Happy, Brightness: Percent(10).Ptr()}

	c := s.Clone()
	c.ExcludedDomains[0] = "changed"
	*c.SiteSpecific.Sites["x.org"].Brightness = 99
	c.SiteSpecific.Sites["y.org"] = SiteOverride{}

	if s.ExcludedDomains[0] != "a.com" {
		t.Error("clone shares excludedDomains")
	}
	if *s.SiteSpecific.Sites["x.org"].Brightness != 10 {
		t.Error("clone shares override pointers")
	}
	if _, ok := s.SiteSpecific.Sites["y.org"]; ok {
		t.Error("clone shares sites map")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr error
	}{
		{name: "defaults", mutate: func(*Settings) {}},
		{name: "unknown mood", mutate: func(s *Settings) { s.Mood = "grumpy" }, wantErr: mood.ErrUnknownMood},
		{name: "custom without colours", mutate: func(s *Settings) { s.Mood = mood.Custom }, wantErr: mood.ErrUnknownMood},
		{name: "custom with colours", mutate: func(s *Settings) {
			s.Mood = mood.Custom
			s.CustomColors.Enabled = true
		}},
		{name: "bad night mood", mutate: func(s *Settings) { s.TimeBased.NightMood = "sleepy" }, wantErr: mood.ErrUnknownMood},
		{name: "bad site mood", mutate: func(s *Settings) {
			s.SiteSpecific.Sites["x.org"] = SiteOverride{Mood: "loud"}
		}, wantErr: mood.ErrUnknownMood},
		{name: "bad custom colour", mutate: func(s *Settings) { s.CustomColors.TextColor = "#12345" }, wantErr: colour.ErrInvalidColorFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCustomColorsPalette(t *testing.T) {
	c := CustomColors{BackgroundColor: "#101010", TextColor: "#fafafa", LinkColor: "#ff0088"}
	want := mood.Palette{Background: "#101010", Text: "#fafafa", Link: "#ff0088", Accent: "#ff0088"}
	if diff := cmp.Diff(want, c.Palette()); diff != "" {
		t.Errorf("Palette() mismatch (-want +got):\n%s", diff)
	}
}
