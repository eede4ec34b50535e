package annotate

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/novvoo/go-pdfdesk/pkg/pdf"
)

// Color is an 8-bit RGB colour.
type Color struct {
	R, G, B uint8
}

// Colours used by the media kinds and the tool defaults.
var (
	ColorRed    = Color{R: 0xff}
	ColorBlue   = Color{B: 0xff}
	ColorYellow = Color{R: 0xff, G: 0xeb, B: 0x3b}
)

// ParseColor parses "#rrggbb" or the short form "#rgb". The leading '#' is
// optional.
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("%w: colour %q", ErrInvalidInput, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: colour %q", ErrInvalidInput, s)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// MustParseColor is ParseColor for constants; it panics on bad input.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats the colour as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) String() string {
	return c.Hex()
}

// RGB converts to the [0,1] components used in content streams.
func (c Color) RGB() pdf.RGB {
	return pdf.RGB{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// NRGBA returns the colour with the given opacity in [0,1].
func (c Color) NRGBA(alpha float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(alpha*255 + 0.5)}
}
