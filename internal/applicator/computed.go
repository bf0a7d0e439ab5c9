package applicator

import (
	"strings"

	"github.com/jmylchreest/moodify/internal/colour"
	"github.com/jmylchreest/moodify/internal/dom"
)

// defaultTextColor is the initial value of the color property.
var defaultTextColor = colour.RGBA{RGB: colour.Black, A: 1}

// computedBackground approximates the computed background-color of el from its inline style
// and legacy bgcolor attribute. Of background-color and the background shorthand, the one declared
// last wins. Backgrounds are not inherited; anything unparseable counts as transparent.
func computedBackground(el dom.Element) colour.RGBA {
	if prop, v, ok := el.LastStyle("background-color", "background"); ok {
		v = stripImportant(v)
		if prop == "background-color" {
			if c, err := colour.ParseCSSColor(v); err == nil {
				return c
			}
			return colour.RGBA{}
		}
		for _, token := range cssTokens(v) {
			if c, err := colour.ParseCSSColor(token); err == nil {
				return c
			}
		}
		return colour.RGBA{}
	}
	if v, ok := el.Attr("bgcolor"); ok {
		if c, err := colour.ParseCSSColor(v); err == nil {
			return c
		}
	}
	return colour.RGBA{}
}

// computedColor resolves the inherited text colour of el.
func computedColor(el dom.Element) colour.RGBA {
	for e := el; e.Valid(); e = e.Parent() {
		if v := e.Style("color"); v != "" {
			if c, err := colour.ParseCSSColor(stripImportant(v)); err == nil && !c.Transparent() {
				return c
			}
		}
	}
	return defaultTextColor
}

func stripImportant(v string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "!important"))
}

// cssTokens splits a shorthand value on whitespace outside parentheses.
func cssTokens(v string) []string {
	var tokens []string
	depth, start := 0, -1
	for i, r := range v {
		switch {
		case r == '(':
			depth++
		case r == ')':
			depth--
		case (r == ' ' || r == '\t' || r == '\n') && depth == 0:
			if start >= 0 {
				tokens = append(tokens, v[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, v[start:])
	}
	return tokens
}
