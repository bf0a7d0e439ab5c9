package colour

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultMinContrast is the WCAG AA contrast requirement for normal text.
const DefaultMinContrast = 4.5

// darkBackgroundThreshold splits backgrounds that need white text from those that need black.
const darkBackgroundThreshold = 0.5

// RelativeLuminance calculates the relative luminance of a colour according to WCAG 2.0.
// Returns a value between 0 (darkest) and 1 (lightest).
// https://www.w3.org/TR/WCAG20/#relativeluminancedef.
func RelativeLuminance(rgb RGB) float64 {
	r := gammaCorrect(float64(rgb.R) / 255.0)
	g := gammaCorrect(float64(rgb.G) / 255.0)
	b := gammaCorrect(float64(rgb.B) / 255.0)

	return 0.2126*r + 0.7152*g + 0.0722*b
}

// gammaCorrect applies sRGB gamma correction to a colour component.
func gammaCorrect(v float64) float64 {
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// ContrastRatio calculates the contrast ratio between two colours according to WCAG 2.0.
// Returns a value between 1 and 21, where 21 is maximum contrast (black vs white).
// https://www.w3.org/TR/WCAG20/#contrast-ratiodef.
func ContrastRatio(c1, c2 RGB) float64 {
	l1 := RelativeLuminance(c1)
	l2 := RelativeLuminance(c2)

	// Ensure l1 is the lighter colour.
	if l1 < l2 {
		l1, l2 = l2, l1
	}

	return (l1 + 0.05) / (l2 + 0.05)
}

// ContrastRatioHex is ContrastRatio for hex strings.
func ContrastRatioHex(hexA, hexB string) (float64, error) {
	a, err := ParseHex(hexA)
	if err != nil {
		return 0, err
	}
	b, err := ParseHex(hexB)
	if err != nil {
		return 0, err
	}
	return ContrastRatio(a, b), nil
}

// ReadableTextColor returns fg unchanged when it already reaches minContrast against bg.
// Otherwise it falls back to pure white on dark backgrounds and pure black on light ones.
// The hue of fg is not preserved.
func ReadableTextColor(bgHex, fgHex string, minContrast float64) (string, error) {
	bg, err := ParseHex(bgHex)
	if err != nil {
		return "", err
	}
	fg, err := ParseHex(fgHex)
	if err != nil {
		return "", err
	}

	if ContrastRatio(bg, fg) >= minContrast {
		return fgHex, nil
	}

	if RelativeLuminance(bg) < darkBackgroundThreshold {
		return White.Hex(), nil
	}
	return Black.Hex(), nil
}

// Blend mixes base towards target by t (0 keeps base, 1 yields target) in RGB space.
// This mirrors how a translucent background composites over the colour beneath it.
func Blend(base, target RGB, t float64) RGB {
	t = math.Max(0, math.Min(1, t))
	from := colorful.Color{R: float64(base.R) / 255, G: float64(base.G) / 255, B: float64(base.B) / 255}
	to := colorful.Color{R: float64(target.R) / 255, G: float64(target.G) / 255, B: float64(target.B) / 255}

	r, g, b := from.BlendRgb(to, t).Clamped().RGB255()
	return RGB{R: r, G: g, B: b}
}
