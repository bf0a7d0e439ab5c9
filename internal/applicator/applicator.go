// Package applicator renders an effective configuration into a page: one injected stylesheet
// plus per-element background and text colours, with an exact restore path.
package applicator

import (
	"bytes"
	"embed"
	"fmt"
	"maps"
	"strings"
	"text/template"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/moodify/internal/colour"
	"github.com/jmylchreest/moodify/internal/dom"
	"github.com/jmylchreest/moodify/internal/mood"
	"github.com/jmylchreest/moodify/internal/resolver"
)

//go:embed *.tmpl
var templates embed.FS

// Injected node ids.
const (
	StylesheetID = "moodify-styles"
	FiltersID    = "moodify-color-filters"
)

const (
	// MinElementSize is the smallest width and height, in pixels, of a container that gets recoloured.
	MinElementSize = 50
	// DefaultDarkModeIntensity is the invert percentage used when none is given.
	DefaultDarkModeIntensity = 80
)

// ContainerTags are the elements whose backgrounds are blended toward the palette.
var ContainerTags = []string{"div", "section", "article", "header", "footer", "main", "aside", "nav"}

// mediaTags mark containers whose backgrounds are left alone unless images are included.
var mediaTags = []string{"img", "video", "canvas", "picture", "svg"}

// Mode is the kind of effect currently applied to a page.
type Mode string

// Applied modes.
const (
	ModeNone        Mode = ""
	ModeMood        Mode = "mood"
	ModeDarkMode    Mode = "darkMode"
	ModeColorFilter Mode = "colorFilter"
)

// OriginalStyle is an element's inline style before it was modified.
type OriginalStyle struct {
	BackgroundColor string
	Color           string
	BorderColor     string

	raw     string
	present bool
}

// AppliedStyleState records what an apply changed, so it can be reverted.
type AppliedStyleState struct {
	Mode       Mode
	Originals  map[dom.Element]OriginalStyle
	Stylesheet dom.Element
	// Modified counts the elements whose inline colours were changed.
	Modified int
}

// Options tune how a page is measured and how much contrast text must have.
type Options struct {
	// Viewport dimensions stand in for element sizes the markup does not declare.
	ViewportWidth  float64
	ViewportHeight float64
	MinContrast    float64
}

// DefaultOptions returns a 1280x800 viewport with WCAG AA contrast.
func DefaultOptions() Options {
	return Options{
		ViewportWidth:  1280,
		ViewportHeight: 800,
		MinContrast:    colour.DefaultMinContrast,
	}
}

// Applicator owns the applied-style state of one page. It is not safe for concurrent use;
// a page context drives it from a single goroutine.
type Applicator struct {
	doc     *dom.Document
	catalog *mood.Catalog
	logger  hclog.Logger
	opts    Options
	state   AppliedStyleState
}

// New creates an applicator for doc.
func New(doc *dom.Document, catalog *mood.Catalog, logger hclog.Logger, opts Options) *Applicator {
	if catalog == nil {
		catalog = mood.NewCatalog()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.MinContrast <= 0 {
		opts.MinContrast = colour.DefaultMinContrast
	}
	return &Applicator{
		doc:     doc,
		catalog: catalog,
		logger:  logger,
		opts:    opts,
		state:   AppliedStyleState{Originals: map[dom.Element]OriginalStyle{}},
	}
}

// State returns a copy of the current applied-style state.
func (a *Applicator) State() AppliedStyleState {
	s := a.state
	s.Originals = maps.Clone(a.state.Originals)
	return s
}

// Mode returns the effect currently applied.
func (a *Applicator) Mode() Mode {
	return a.state.Mode
}

// HasCustomStyles reports whether the page carries an injected stylesheet.
func (a *Applicator) HasCustomStyles() bool {
	_, ok := a.doc.ElementByID(StylesheetID)
	return ok
}

type moodStyle struct {
	Background string
	Text       string
	Link       string
	Accent     string
	Saturate   string
	Brightness string
}

// Apply recolours the page for cfg. Any previous effect is restored first, so repeated
// applies of the same config produce the same document.
func (a *Applicator) Apply(cfg resolver.EffectiveConfig) (AppliedStyleState, error) {
	a.Restore()

	palette := cfg.Palette
	if palette.Background == "" {
		_, palette = a.catalog.LookupOrDefault(cfg.Mood)
	}
	bg, err := colour.ParseHex(palette.Background)
	if err != nil {
		return a.State(), fmt.Errorf("palette background: %w", err)
	}

	text, link := palette.Text, palette.Link
	if cfg.TextReadability {
		if text, err = colour.ReadableTextColor(palette.Background, palette.Text, a.opts.MinContrast); err != nil {
			return a.State(), fmt.Errorf("palette text: %w", err)
		}
		if link, err = colour.ReadableTextColor(palette.Background, palette.Link, a.opts.MinContrast); err != nil {
			return a.State(), fmt.Errorf("palette link: %w", err)
		}
	}

	brightness := cfg.BrightnessFactor * 100
	if cfg.BrightnessFactor > 0.5 {
		brightness = cfg.BrightnessFactor * 150
	}

	css, err := render("mood.css.tmpl", moodStyle{
		Background: palette.Background,
		Text:       text,
		Link:       link,
		Accent:     palette.Accent,
		Saturate:   colour.FormatNumber(cfg.SaturationFactor * 100),
		Brightness: colour.FormatNumber(brightness),
	})
	if err != nil {
		return a.State(), err
	}
	a.injectStylesheet(css)
	a.state.Mode = ModeMood

	intensity := cfg.Intensity()
	fill := colour.RGBA{RGB: bg, A: intensity}

	for _, el := range a.doc.QueryAll(ContainerTags...) {
		if w, h := el.Size(a.opts.ViewportWidth, a.opts.ViewportHeight); w < MinElementSize || h < MinElementSize {
			continue
		}
		if !cfg.ApplyToImages && el.HasDescendant(mediaTags...) {
			continue
		}

		a.save(el)

		current := computedBackground(el)
		if current.Transparent() {
			continue
		}
		el.SetStyle("background-color", fill.String())
		a.state.Modified++

		if !cfg.TextReadability || strings.TrimSpace(el.Text()) == "" {
			continue
		}
		composite := colour.Blend(current.RGB, bg, intensity)
		adjusted, err := colour.ReadableTextColor(composite.Hex(), computedColor(el).Hex(), a.opts.MinContrast)
		if err != nil {
			a.logger.Debug("skipping text contrast", "tag", el.Tag(), "error", err)
			continue
		}
		el.SetStyle("color", adjusted)
	}

	a.logger.Debug("mood applied", "mood", cfg.Mood, "tracked", len(a.state.Originals), "modified", a.state.Modified)
	return a.State(), nil
}

// ApplyDarkMode inverts the page, re-inverting media so images keep their colours.
// A non-positive intensity uses DefaultDarkModeIntensity.
func (a *Applicator) ApplyDarkMode(enabled bool, intensity int) error {
	a.Restore()
	if !enabled {
		return nil
	}
	if intensity <= 0 {
		intensity = DefaultDarkModeIntensity
	}
	intensity = min(intensity, 100)

	css, err := render("darkmode.css.tmpl", struct{ Intensity int }{intensity})
	if err != nil {
		return err
	}
	a.injectStylesheet(css)
	a.state.Mode = ModeDarkMode
	return nil
}

// ApplyColorFilter applies a colour-blindness simulation or the enhance filter.
func (a *Applicator) ApplyColorFilter(t FilterType) error {
	a.Restore()
	if t == "" || t == FilterNone {
		return nil
	}

	filter, err := t.cssFilter()
	if err != nil {
		return err
	}

	if t.needsSVG() {
		if _, ok := a.doc.ElementByID(FiltersID); !ok {
			markup, err := render("filters.svg.tmpl", struct {
				ID       string
				Matrices []colorMatrix
			}{FiltersID, simulationMatrices})
			if err != nil {
				return err
			}
			if _, err := a.doc.AppendFragment(a.doc.Body(), strings.TrimSpace(markup)); err != nil {
				return fmt.Errorf("inject colour filters: %w", err)
			}
		}
	}

	css, err := render("colorfilter.css.tmpl", struct{ Filter string }{filter})
	if err != nil {
		return err
	}
	a.injectStylesheet(css)
	a.state.Mode = ModeColorFilter
	return nil
}

// Restore reverts every tracked element, removes injected nodes and clears the state.
// It is a no-op when nothing has been applied.
func (a *Applicator) Restore() {
	for el, orig := range a.state.Originals {
		el.SetStyleAttr(orig.raw, orig.present)
	}

	if a.state.Stylesheet.Valid() {
		a.state.Stylesheet.Remove()
	}
	for _, id := range []string{StylesheetID, FiltersID} {
		for {
			el, ok := a.doc.ElementByID(id)
			if !ok {
				break
			}
			el.Remove()
		}
	}

	a.state = AppliedStyleState{Originals: map[dom.Element]OriginalStyle{}}
}

func (a *Applicator) save(el dom.Element) {
	if _, ok := a.state.Originals[el]; ok {
		return
	}
	raw, present := el.StyleAttr()
	a.state.Originals[el] = OriginalStyle{
		BackgroundColor: el.Style("background-color"),
		Color:           el.Style("color"),
		BorderColor:     el.Style("border-color"),
		raw:             raw,
		present:         present,
	}
}

func (a *Applicator) injectStylesheet(css string) {
	style := a.doc.CreateElement("style")
	style.SetAttr("id", StylesheetID)
	style.SetText(css)
	a.doc.Head().AppendChild(style)
	a.state.Stylesheet = style
}

func render(name string, data any) (string, error) {
	tmplContent, err := templates.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s template: %w", name, err)
	}

	tmpl, err := template.New(name).Parse(string(tmplContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", name, err)
	}
	return buf.String(), nil
}
