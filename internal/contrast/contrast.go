// Package contrast decides whether text drawn on a background colour should
// be black or white. It follows the WCAG 2.0 relative luminance and contrast
// ratio model and is used wherever the UI paints a station colour behind
// text (station cards, badges, the settings colour preview).
//
// All functions are pure and safe for concurrent use.
package contrast

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidColorFormat is returned when a colour string does not decompose
// into three two-digit hexadecimal channels.
var ErrInvalidColorFormat = errors.New("invalid color format")

// colorLen is the length of a "#rrggbb" colour string.
const colorLen = 7

// Threshold is the WCAG AA minimum contrast ratio for normal text. A ratio
// at or below it means the background is light enough for black text.
const Threshold = 4.5

// WCAG offsets applied to both luminances before taking their ratio. 1.05 is
// the offset luminance of pure white.
const (
	luminanceOffset = 0.05
	whiteOffset     = 1.05
)

// Result is the recommended text colour.
type Result int

const (
	// Black text is recommended on light backgrounds.
	Black Result = iota
	// White text is recommended on dark backgrounds.
	White
)

// String returns the CSS keyword for the result: "black" or "white".
func (r Result) String() string {
	if r == White {
		return "white"
	}
	return "black"
}

// MarshalText encodes the result as its CSS keyword so it can be used
// directly in JSON responses.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// RGB holds the three 8-bit channels of a parsed colour.
type RGB struct {
	R, G, B uint8
}

// Hex formats the colour as a lower-case "#rrggbb" string.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Parse decodes a "#rrggbb" string. The leading marker byte is skipped
// without inspection; only the length and the six hex digits are checked.
func Parse(color string) (RGB, error) {
	if len(color) != colorLen {
		return RGB{}, fmt.Errorf("%w: %q: want 7 characters, got %d", ErrInvalidColorFormat, color, len(color))
	}

	var channels [3]uint8
	for i := range channels {
		part := color[1+2*i : 3+2*i]
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return RGB{}, fmt.Errorf("%w: %q: channel %q is not hexadecimal", ErrInvalidColorFormat, color, part)
		}
		channels[i] = uint8(v)
	}

	return RGB{R: channels[0], G: channels[1], B: channels[2]}, nil
}

// linearize applies the sRGB transfer function to a channel in [0,1].
func linearize(v float64) float64 {
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// RelativeLuminance returns the WCAG relative luminance of c in [0,1].
func RelativeLuminance(c RGB) float64 {
	r := linearize(float64(c.R) / 255)
	g := linearize(float64(c.G) / 255)
	b := linearize(float64(c.B) / 255)
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// Ratio returns the contrast ratio between c and pure white, in [1,21].
// Because black has an offset luminance of 0.05, the same figure is used to
// decide between black and white text.
func Ratio(c RGB) float64 {
	l := RelativeLuminance(c) + luminanceOffset
	low := math.Min(whiteOffset, l)
	high := math.Max(whiteOffset, l)
	return high / low
}

// ForRGB returns the text colour recommendation for an already parsed colour.
func ForRGB(c RGB) Result {
	if Ratio(c) <= Threshold {
		return Black
	}
	return White
}

// Decide returns the text colour that stays legible on the given "#rrggbb"
// background. Malformed input yields ErrInvalidColorFormat; callers choose
// their own fallback.
func Decide(color string) (Result, error) {
	c, err := Parse(color)
	if err != nil {
		return Black, err
	}
	return ForRGB(c), nil
}
