package dom

import (
	"strings"

	"github.com/gorilla/css/scanner"
)

// shorthands maps a longhand property to the shorthand that also sets it.
var shorthands = map[string]string{
	"background-color": "background",
	"border-color":     "border",
}

// declaration is one property: value pair of an inline style attribute.
type declaration struct {
	prop  string
	value string
}

// parseStyle splits an inline style into declarations. Semicolons inside strings, url()
// and other functions belong to the value. Comments are dropped, and so is a trailing
// declaration the tokenizer cannot read.
func parseStyle(s string) []declaration {
	var (
		out   []declaration
		buf   strings.Builder
		depth int
	)
	flush := func() {
		prop, value, ok := strings.Cut(buf.String(), ":")
		buf.Reset()
		if !ok {
			return
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if prop == "" {
			return
		}
		out = append(out, declaration{prop: prop, value: value})
	}

	sc := scanner.New(s)
	for {
		tok := sc.Next()
		switch tok.Type {
		case scanner.TokenEOF:
			flush()
			return out
		case scanner.TokenError:
			return out
		case scanner.TokenComment:
			continue
		case scanner.TokenFunction:
			depth++
		case scanner.TokenChar:
			switch tok.Value {
			case "(":
				depth++
			case ")":
				if depth > 0 {
					depth--
				}
			case ";":
				if depth == 0 {
					flush()
					continue
				}
			}
		}
		buf.WriteString(tok.Value)
	}
}

func formatStyle(decls []declaration) string {
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.prop + ": " + d.value + ";"
	}
	return strings.Join(parts, " ")
}

// StyleAttr returns the raw style attribute and whether it is present.
func (e Element) StyleAttr() (string, bool) {
	return e.Attr("style")
}

// SetStyleAttr restores a raw style attribute. When present is false the attribute is removed.
func (e Element) SetStyleAttr(raw string, present bool) {
	if !present {
		e.RemoveAttr("style")
		return
	}
	e.SetAttr("style", raw)
}

// Style returns the inline value of a CSS property, or "" when unset.
// The last declaration of a property wins.
func (e Element) Style(prop string) string {
	raw, ok := e.StyleAttr()
	if !ok {
		return ""
	}
	prop = strings.ToLower(prop)
	value := ""
	for _, d := range parseStyle(raw) {
		if d.prop == prop {
			value = d.value
		}
	}
	return value
}

// LastStyle returns whichever of props is declared last, with its value.
// ok is false when none of them is set.
func (e Element) LastStyle(props ...string) (prop, value string, ok bool) {
	raw, present := e.StyleAttr()
	if !present {
		return "", "", false
	}
	for _, d := range parseStyle(raw) {
		for _, p := range props {
			if d.prop == strings.ToLower(p) {
				prop, value, ok = d.prop, d.value, true
			}
		}
	}
	return prop, value, ok
}

// SetStyle sets an inline CSS property in place, appending it if absent. When a later
// shorthand would override the property, it is moved after the shorthand instead.
// An empty value removes the property; the attribute is dropped once no declarations remain.
func (e Element) SetStyle(prop, value string) {
	raw, _ := e.StyleAttr()
	prop = strings.ToLower(prop)
	decls := parseStyle(raw)
	inPlace := !shadowed(decls, prop)

	out := decls[:0]
	replaced := false
	for _, d := range decls {
		if d.prop != prop {
			out = append(out, d)
			continue
		}
		if value != "" && inPlace && !replaced {
			out = append(out, declaration{prop: prop, value: value})
			replaced = true
		}
	}
	if value != "" && !replaced {
		out = append(out, declaration{prop: prop, value: value})
	}

	if len(out) == 0 {
		e.RemoveAttr("style")
		return
	}
	e.SetAttr("style", formatStyle(out))
}

// shadowed reports whether the shorthand of prop is declared after prop's first declaration.
func shadowed(decls []declaration, prop string) bool {
	short, ok := shorthands[prop]
	if !ok {
		return false
	}
	seen := false
	for _, d := range decls {
		switch d.prop {
		case prop:
			seen = true
		case short:
			if seen {
				return true
			}
		}
	}
	return false
}
