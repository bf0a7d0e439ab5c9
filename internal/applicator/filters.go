package applicator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFilter is returned for colour filter types with no definition.
var ErrUnknownFilter = errors.New("unknown colour filter")

// FilterType names a page-wide colour filter.
type FilterType string

// Supported colour filters.
const (
	FilterNone         FilterType = "none"
	FilterProtanopia   FilterType = "protanopia"
	FilterDeuteranopia FilterType = "deuteranopia"
	FilterTritanopia   FilterType = "tritanopia"
	FilterEnhance      FilterType = "enhance"
)

// colorMatrix is a static 4x5 feColorMatrix, row major.
type colorMatrix struct {
	Name   FilterType
	Values string
}

// Colour-blindness simulation matrices.
var simulationMatrices = []colorMatrix{
	{Name: FilterProtanopia, Values: "0.567 0.433 0 0 0 0.558 0.442 0 0 0 0 0.242 0.758 0 0 0 0 0 1 0"},
	{Name: FilterDeuteranopia, Values: "0.625 0.375 0 0 0 0.7 0.3 0 0 0 0 0.3 0.7 0 0 0 0 0 1 0"},
	{Name: FilterTritanopia, Values: "0.95 0.05 0 0 0 0 0.433 0.567 0 0 0 0.475 0.525 0 0 0 0 0 1 0"},
}

// FilterTypes lists the supported filters in display order.
func FilterTypes() []FilterType {
	return []FilterType{FilterNone, FilterProtanopia, FilterDeuteranopia, FilterTritanopia, FilterEnhance}
}

// ParseFilterType converts a name to a FilterType. The empty string means none.
func ParseFilterType(name string) (FilterType, error) {
	t := FilterType(strings.ToLower(strings.TrimSpace(name)))
	if t == "" {
		return FilterNone, nil
	}
	if _, err := t.cssFilter(); err != nil {
		return "", err
	}
	return t, nil
}

// needsSVG reports whether the filter references the injected SVG matrices.
func (t FilterType) needsSVG() bool {
	return t == FilterProtanopia || t == FilterDeuteranopia || t == FilterTritanopia
}

// cssFilter returns the value of the html filter property for t.
func (t FilterType) cssFilter() (string, error) {
	switch {
	case t == FilterNone:
		return "none", nil
	case t == FilterEnhance:
		return "saturate(150%) contrast(110%)", nil
	case t.needsSVG():
		return fmt.Sprintf("url(\"#%s-filter\")", t), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFilter, string(t))
	}
}

// String implements fmt.Stringer.
func (t FilterType) String() string {
	return string(t)
}
