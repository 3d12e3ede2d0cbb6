package core

import (
	"fmt"
	"image/color"
)

// Color is a 24-bit RGB cell color. The zero value is the terminal default.
type Color uint32

const colorSet Color = 1 << 24

// ColorDefault leaves the terminal's own color in place.
const ColorDefault Color = 0

// Predefined colors used by the player chrome.
var (
	ColorBlack     = RGB(0x00, 0x00, 0x00)
	ColorWhite     = RGB(0xe5, 0xe7, 0xeb)
	ColorGray      = RGB(0x9a, 0xa4, 0xaf)
	ColorDimGray   = RGB(0x37, 0x41, 0x51)
	ColorGreen     = RGB(0x4a, 0xde, 0x80)
	ColorRed       = RGB(0xf8, 0x71, 0x71)
	ColorYellow    = RGB(0xfa, 0xcc, 0x15)
	ColorBlue      = RGB(0x60, 0xa5, 0xfa)
	ColorHighlight = RGB(0xf5, 0x9e, 0x0b)
)

// RGB builds a color from its components.
func RGB(r, g, b uint8) Color {
	return colorSet | Color(r)<<16 | Color(g)<<8 | Color(b)
}

// FromRGBA converts a standard library color, dropping alpha.
func FromRGBA(c color.RGBA) Color {
	return RGB(c.R, c.G, c.B)
}

// IsDefault reports whether the color defers to the terminal.
func (c Color) IsDefault() bool {
	return c&colorSet == 0
}

// Components returns the red, green and blue channels.
func (c Color) Components() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Hex returns the color as "#rrggbb", or "" for the default color.
func (c Color) Hex() string {
	if c.IsDefault() {
		return ""
	}
	r, g, b := c.Components()
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
