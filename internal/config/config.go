// Package config loads the moodify application configuration: built-in defaults,
// overlaid by an optional YAML file, overlaid by MOODIFY_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/moodify/internal/applicator"
	"github.com/jmylchreest/moodify/internal/colour"
	"github.com/jmylchreest/moodify/internal/scheduler"
)

// Environment variables read by Load.
const (
	EnvDataDir      = "MOODIFY_DATA_DIR"
	EnvLogLevel     = "MOODIFY_LOG_LEVEL"
	EnvColorScheme  = "MOODIFY_COLOR_SCHEME"
	EnvTickInterval = "MOODIFY_TICK_INTERVAL"
)

// Colour scheme sources.
const (
	SchemeAuto  = "auto"
	SchemeDark  = "dark"
	SchemeLight = "light"
)

// Config is the application configuration. It is distinct from the user settings record.
type Config struct {
	DataDir  string `yaml:"dataDir"`
	LogLevel string `yaml:"logLevel"`
	// ColorScheme forces the dark preference. Auto asks the desktop.
	ColorScheme  string        `yaml:"colorScheme"`
	TickInterval time.Duration `yaml:"tickInterval"`
	AutoApply    bool          `yaml:"autoApply"`
	// WatchDebounce coalesces storage change notifications. Zero disables watching.
	WatchDebounce time.Duration `yaml:"watchDebounce"`
	MinContrast   float64       `yaml:"minContrast"`
	Viewport      Viewport      `yaml:"viewport"`
}

// Viewport is the assumed page size for elements that declare none.
type Viewport struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// DefaultPaths returns the default config file and data directory.
func DefaultPaths() (configPath, dataDir string, err error) {
	cfgRoot, err := os.UserConfigDir()
	if err != nil {
		return "", "", fmt.Errorf("resolve user config dir: %w", err)
	}
	dataRoot := cfgRoot
	if runtime.GOOS != "windows" {
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			dataRoot = xdg
		} else if home, herr := os.UserHomeDir(); herr == nil {
			dataRoot = filepath.Join(home, ".local", "share")
		}
	}
	return filepath.Join(cfgRoot, "moodify", "config.yml"), filepath.Join(dataRoot, "moodify"), nil
}

// Default returns the built-in configuration.
func Default(dataDir string) Config {
	opts := applicator.DefaultOptions()
	return Config{
		DataDir:       dataDir,
		LogLevel:      "info",
		ColorScheme:   SchemeAuto,
		TickInterval:  scheduler.DefaultInterval,
		AutoApply:     true,
		WatchDebounce: 250 * time.Millisecond,
		MinContrast:   colour.DefaultMinContrast,
		Viewport:      Viewport{Width: opts.ViewportWidth, Height: opts.ViewportHeight},
	}
}

// Load builds the configuration from path and the environment. An empty path uses the default
// location; a missing file is not an error. getenv may be nil to use os.Getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	defaultPath, defaultData, err := DefaultPaths()
	if err != nil {
		return Config{}, err
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if path == "" {
		path = defaultPath
	}

	cfg := Default(defaultData)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvColorScheme); v != "" {
		c.ColorScheme = v
	}
	if v := getenv(EnvTickInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTickInterval, err)
		}
		c.TickInterval = d
	}
	return nil
}

// Validate checks field ranges and normalises enumerations.
func (c *Config) Validate() error {
	c.ColorScheme = strings.ToLower(strings.TrimSpace(c.ColorScheme))
	switch c.ColorScheme {
	case "":
		c.ColorScheme = SchemeAuto
	case SchemeAuto, SchemeDark, SchemeLight:
	default:
		return fmt.Errorf("colorScheme must be auto, dark or light, got %q", c.ColorScheme)
	}
	if c.DataDir == "" {
		return errors.New("dataDir must not be empty")
	}
	if c.TickInterval < time.Minute {
		return fmt.Errorf("tickInterval must be at least 1m, got %s", c.TickInterval)
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("watchDebounce must not be negative, got %s", c.WatchDebounce)
	}
	if c.MinContrast < 1 || c.MinContrast > 21 {
		return fmt.Errorf("minContrast must be within [1,21], got %v", c.MinContrast)
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return fmt.Errorf("viewport must be positive, got %vx%v", c.Viewport.Width, c.Viewport.Height)
	}
	return nil
}

// PageOptions converts the config into applicator options.
func (c Config) PageOptions() applicator.Options {
	return applicator.Options{
		ViewportWidth:  c.Viewport.Width,
		ViewportHeight: c.Viewport.Height,
		MinContrast:    c.MinContrast,
	}
}

// Save writes c as YAML to path, creating its directory.
func Save(path string, c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
