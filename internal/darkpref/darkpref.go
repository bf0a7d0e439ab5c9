// Package darkpref detects whether the operating system prefers a dark colour scheme.
package darkpref

import (
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/rymdport/portal/settings/appearance"
)

// EnvColorScheme overrides every other detector when set to "dark" or "light".
const EnvColorScheme = "MOODIFY_COLOR_SCHEME"

// Detector reports a colour scheme preference from one source.
// Higher priorities are consulted first.
type Detector interface {
	Name() string
	Priority() int
	// Detect returns the preference and whether this source had an answer.
	Detect() (prefersDark bool, ok bool)
}

// Preference is a resolved colour scheme preference.
type Preference struct {
	PrefersDark bool
	// Source names the detector that answered. Empty means no detector did.
	Source string
}

// Chain consults detectors by descending priority. The first detector with an answer wins;
// with no answer the preference is light.
type Chain struct {
	mu        sync.RWMutex
	detectors []Detector
	logger    hclog.Logger
}

// NewChain creates a chain over detectors.
func NewChain(logger hclog.Logger, detectors ...Detector) *Chain {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	c := &Chain{logger: logger}
	for _, d := range detectors {
		c.Register(d)
	}
	return c
}

// Default returns the chain used outside tests: the environment first, then the desktop portal.
func Default(logger hclog.Logger) *Chain {
	return NewChain(logger, NewEnv(os.Getenv), Portal{})
}

// Register adds a detector.
func (c *Chain) Register(d Detector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detectors = append(c.detectors, d)
	slices.SortStableFunc(c.detectors, func(a, b Detector) int {
		return b.Priority() - a.Priority()
	})
}

// Resolve returns the current preference.
func (c *Chain) Resolve() Preference {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.detectors {
		dark, ok := d.Detect()
		if !ok {
			continue
		}
		c.logger.Trace("colour scheme detected", "source", d.Name(), "dark", dark)
		return Preference{PrefersDark: dark, Source: d.Name()}
	}
	return Preference{}
}

// PrefersDark reports whether the resolved preference is dark.
func (c *Chain) PrefersDark() bool {
	return c.Resolve().PrefersDark
}

// Static always answers with a fixed preference.
type Static bool

func (s Static) Name() string { return "static" }

func (s Static) Priority() int { return 1000 }

func (s Static) Detect() (bool, bool) { return bool(s), true }

// PrefersDark lets a Static be used directly wherever a preference source is expected.
func (s Static) PrefersDark() bool { return bool(s) }

// Env reads MOODIFY_COLOR_SCHEME, falling back to a ":dark" or "-dark" GTK_THEME suffix.
type Env struct {
	getenv func(string) string
}

// NewEnv creates an environment detector. getenv is normally os.Getenv.
func NewEnv(getenv func(string) string) Env {
	return Env{getenv: getenv}
}

func (e Env) Name() string { return "env" }

func (e Env) Priority() int { return 200 }

func (e Env) Detect() (bool, bool) {
	if e.getenv == nil {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(e.getenv(EnvColorScheme))) {
	case "dark":
		return true, true
	case "light":
		return false, true
	}
	theme := strings.ToLower(e.getenv("GTK_THEME"))
	if strings.HasSuffix(theme, ":dark") || strings.HasSuffix(theme, "-dark") {
		return true, true
	}
	return false, false
}

// Portal asks the XDG desktop portal for the org.freedesktop.appearance color-scheme setting.
type Portal struct{}

func (Portal) Name() string { return "xdg-desktop-portal" }

func (Portal) Priority() int { return 100 }

func (Portal) Detect() (bool, bool) {
	scheme, err := appearance.GetColorScheme()
	if err != nil {
		return false, false
	}
	switch scheme {
	case appearance.Dark:
		return true, true
	case appearance.Light:
		return false, true
	default:
		return false, false
	}
}
