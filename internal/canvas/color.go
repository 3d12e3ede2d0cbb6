package canvas

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/vovakirdan/tui-player/internal/core"
)

var namedColors = map[string]color.RGBA{
	"black":       {0x00, 0x00, 0x00, 0xff},
	"white":       {0xff, 0xff, 0xff, 0xff},
	"red":         {0xff, 0x00, 0x00, 0xff},
	"green":       {0x00, 0x80, 0x00, 0xff},
	"lime":        {0x00, 0xff, 0x00, 0xff},
	"blue":        {0x00, 0x00, 0xff, 0xff},
	"yellow":      {0xff, 0xff, 0x00, 0xff},
	"orange":      {0xff, 0xa5, 0x00, 0xff},
	"purple":      {0x80, 0x00, 0x80, 0xff},
	"magenta":     {0xff, 0x00, 0xff, 0xff},
	"fuchsia":     {0xff, 0x00, 0xff, 0xff},
	"cyan":        {0x00, 0xff, 0xff, 0xff},
	"aqua":        {0x00, 0xff, 0xff, 0xff},
	"gray":        {0x80, 0x80, 0x80, 0xff},
	"grey":        {0x80, 0x80, 0x80, 0xff},
	"silver":      {0xc0, 0xc0, 0xc0, 0xff},
	"maroon":      {0x80, 0x00, 0x00, 0xff},
	"navy":        {0x00, 0x00, 0x80, 0xff},
	"teal":        {0x00, 0x80, 0x80, 0xff},
	"olive":       {0x80, 0x80, 0x00, 0xff},
	"pink":        {0xff, 0xc0, 0xcb, 0xff},
	"brown":       {0xa5, 0x2a, 0x2a, 0xff},
	"gold":        {0xff, 0xd7, 0x00, 0xff},
	"transparent": {0x00, 0x00, 0x00, 0x00},
}

// ParseColor parses the CSS color forms scripts commonly use:
// #rgb, #rrggbb, #rrggbbaa, rgb(r,g,b), rgba(r,g,b,a) and basic names.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}

	switch {
	case strings.HasPrefix(s, "#") && len(s) == 9:
		base, err := colorful.Hex(s[:7])
		if err != nil {
			return color.RGBA{}, fmt.Errorf("canvas: bad color %q: %w", s, err)
		}
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("canvas: bad color %q: %w", s, err)
		}
		r, g, b := base.RGB255()
		return color.RGBA{R: r, G: g, B: b, A: uint8(a)}, nil

	case strings.HasPrefix(s, "#"):
		c, err := colorful.Hex(s)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("canvas: bad color %q: %w", s, err)
		}
		r, g, b := c.RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil

	case strings.HasPrefix(s, "rgb(") || strings.HasPrefix(s, "rgba("):
		return parseRGBFunc(s)
	}

	return color.RGBA{}, fmt.Errorf("canvas: unsupported color %q", s)
}

func parseRGBFunc(s string) (color.RGBA, error) {
	open := strings.IndexByte(s, '(')
	if !strings.HasSuffix(s, ")") || open < 0 {
		return color.RGBA{}, fmt.Errorf("canvas: bad color %q", s)
	}
	parts := strings.Split(s[open+1:len(s)-1], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.RGBA{}, fmt.Errorf("canvas: bad color %q", s)
	}

	var ch [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("canvas: bad color %q: %w", s, err)
		}
		ch[i] = uint8(core.ClampF(v, 0, 255))
	}

	alpha := 1.0
	if len(parts) == 4 {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("canvas: bad color %q: %w", s, err)
		}
		alpha = core.ClampF(v, 0, 1)
	}
	return color.RGBA{R: ch[0], G: ch[1], B: ch[2], A: uint8(alpha*255 + 0.5)}, nil
}

// premultiply converts a straight-alpha color to the premultiplied form
// image.RGBA stores, scaled by an extra global alpha.
func premultiply(c color.RGBA, globalAlpha float64) color.RGBA {
	a := float64(c.A) / 255 * core.ClampF(globalAlpha, 0, 1)
	return color.RGBA{
		R: uint8(float64(c.R)*a + 0.5),
		G: uint8(float64(c.G)*a + 0.5),
		B: uint8(float64(c.B)*a + 0.5),
		A: uint8(255*a + 0.5),
	}
}
