package colour

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// rgbFuncRegex matches rgb()/rgba() values with comma or space separated channels.
var rgbFuncRegex = regexp.MustCompile(`^rgba?\(\s*([0-9.]+)\s*,?\s*([0-9.]+)\s*,?\s*([0-9.]+)\s*(?:[,/]\s*([0-9.]+%?)\s*)?\)$`)

// RGBA is an RGB colour with an alpha channel in [0,1], as browsers report computed styles.
type RGBA struct {
	RGB
	A float64
}

// Transparent reports whether the colour is fully transparent.
func (c RGBA) Transparent() bool {
	return c.A <= 0
}

// String formats the colour the way a computed style does: rgb() when opaque, rgba() otherwise.
func (c RGBA) String() string {
	if c.A >= 1 {
		return c.RGB.String()
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, FormatNumber(c.A))
}

// ParseCSSColor parses the colour forms that appear in computed and inline styles:
// hex, rgb(), rgba(), named colours and the transparent keyword.
func ParseCSSColor(value string) (RGBA, error) {
	v := strings.ToLower(strings.TrimSpace(value))

	switch {
	case v == "transparent":
		return RGBA{}, nil
	case strings.HasPrefix(v, "#"):
		rgb, err := ParseHex(v)
		if err != nil {
			return RGBA{}, err
		}
		return RGBA{RGB: rgb, A: 1}, nil
	}
	if named, ok := colornames.Map[v]; ok {
		return RGBA{RGB: RGB{R: named.R, G: named.G, B: named.B}, A: 1}, nil
	}

	matches := rgbFuncRegex.FindStringSubmatch(v)
	if matches == nil {
		return RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColorFormat, value)
	}

	var channels [3]uint8
	for i := range channels {
		f, err := strconv.ParseFloat(matches[i+1], 64)
		if err != nil {
			return RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColorFormat, value)
		}
		channels[i] = uint8(math.Round(math.Max(0, math.Min(255, f))))
	}

	alpha := 1.0
	if raw := matches[4]; raw != "" {
		percent := strings.HasSuffix(raw, "%")
		f, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
		if err != nil {
			return RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColorFormat, value)
		}
		if percent {
			f /= 100
		}
		alpha = math.Max(0, math.Min(1, f))
	}

	return RGBA{RGB: RGB{R: channels[0], G: channels[1], B: channels[2]}, A: alpha}, nil
}

// FormatNumber renders a float for CSS output: at most two decimals, no trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
