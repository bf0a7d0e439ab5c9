package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"), env(nil))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	_, dataDir, _ := DefaultPaths()
	if diff := cmp.Diff(Default(dataDir), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
dataDir: /srv/moodify
logLevel: warn
colorScheme: Light
tickInterval: 5m
autoApply: false
viewport:
  width: 800
  height: 600
`)

	cfg, err := Load(path, env(map[string]string{
		EnvLogLevel:     "debug",
		EnvTickInterval: "30m",
	}))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.DataDir != "/srv/moodify" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("environment should override file log level, got %s", cfg.LogLevel)
	}
	if cfg.ColorScheme != SchemeLight {
		t.Errorf("ColorScheme = %s, want normalised light", cfg.ColorScheme)
	}
	if cfg.TickInterval != 30*time.Minute {
		t.Errorf("TickInterval = %s", cfg.TickInterval)
	}
	if cfg.AutoApply {
		t.Error("AutoApply should be false from file")
	}
	if opts := cfg.PageOptions(); opts.ViewportWidth != 800 || opts.ViewportHeight != 600 {
		t.Errorf("PageOptions() = %+v", opts)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		env     map[string]string
		wantErr string
	}{
		{name: "unknown field", body: "colour: red\n", wantErr: "field colour not found"},
		{name: "bad scheme", body: "colorScheme: sepia\n", wantErr: "colorScheme"},
		{name: "short tick", body: "tickInterval: 10s\n", wantErr: "tickInterval"},
		{name: "bad contrast", body: "minContrast: 30\n", wantErr: "minContrast"},
		{name: "bad env duration", env: map[string]string{EnvTickInterval: "soon"}, wantErr: EnvTickInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.body)
			_, err := Load(path, env(tt.env))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	want := Default("/var/lib/moodify")
	want.ColorScheme = SchemeDark

	if err := Save(path, want); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	got, err := Load(path, env(nil))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
