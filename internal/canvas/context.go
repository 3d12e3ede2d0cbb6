package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/vovakirdan/tui-player/internal/core"
)

// Context is the 2D drawing context. Exported fields mirror the browser
// properties scripts assign (ctx.fillStyle = '#000').
type Context struct {
	Canvas      *Canvas
	FillStyle   string
	StrokeStyle string
	LineWidth   float64
	Font        string
	TextAlign   string
	GlobalAlpha float64

	path  path
	stack []drawState
	z     vector.Rasterizer
}

type drawState struct {
	fillStyle   string
	strokeStyle string
	lineWidth   float64
	font        string
	textAlign   string
	globalAlpha float64
}

// TextMetrics is returned by MeasureText.
type TextMetrics struct {
	Width float64
}

// textAdvance is the nominal width of one overlay character in canvas
// pixels, used by MeasureText and text alignment.
const textAdvance = 7.0

func newContext(c *Canvas) *Context {
	return &Context{
		Canvas:      c,
		FillStyle:   "#000000",
		StrokeStyle: "#000000",
		LineWidth:   1,
		Font:        "10px sans-serif",
		TextAlign:   "start",
		GlobalAlpha: 1,
	}
}

func (ctx *Context) fillColor() (color.RGBA, bool) {
	return ctx.resolve(ctx.FillStyle)
}

func (ctx *Context) strokeColor() (color.RGBA, bool) {
	return ctx.resolve(ctx.StrokeStyle)
}

// resolve parses a style; unparsable styles paint nothing, matching the
// browser behavior of ignoring invalid assignments.
func (ctx *Context) resolve(style string) (color.RGBA, bool) {
	c, err := ParseColor(style)
	if err != nil {
		return color.RGBA{}, false
	}
	return c, true
}

func rectOf(x, y, w, h float64) image.Rectangle {
	if w < 0 {
		x, w = x+w, -w
	}
	if h < 0 {
		y, h = y+h, -h
	}
	return image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+w)), int(math.Round(y+h)),
	)
}

// FillRect paints a rectangle with the fill style.
func (ctx *Context) FillRect(x, y, w, h float64) {
	img := ctx.Canvas.sync()
	c, ok := ctx.fillColor()
	if !ok {
		return
	}
	r := rectOf(x, y, w, h).Intersect(img.Rect)
	draw.Draw(img, r, image.NewUniform(premultiply(c, ctx.GlobalAlpha)), image.Point{}, draw.Over)
	if c.A == 0xff && ctx.GlobalAlpha >= 1 {
		ctx.Canvas.dropTextsIn(r)
	}
}

// ClearRect makes a rectangle fully transparent.
func (ctx *Context) ClearRect(x, y, w, h float64) {
	img := ctx.Canvas.sync()
	r := rectOf(x, y, w, h).Intersect(img.Rect)
	draw.Draw(img, r, image.Transparent, image.Point{}, draw.Src)
	ctx.Canvas.dropTextsIn(r)
}

// StrokeRect outlines a rectangle with the stroke style.
func (ctx *Context) StrokeRect(x, y, w, h float64) {
	var p path
	p.moveTo(x, y)
	p.lineTo(x+w, y)
	p.lineTo(x+w, y+h)
	p.lineTo(x, y+h)
	p.close()
	ctx.strokePath(&p)
}

// BeginPath discards the current path.
func (ctx *Context) BeginPath() {
	ctx.path.reset()
}

// ClosePath closes the current subpath.
func (ctx *Context) ClosePath() {
	ctx.path.close()
}

// MoveTo starts a new subpath.
func (ctx *Context) MoveTo(x, y float64) {
	ctx.path.moveTo(x, y)
}

// LineTo adds a straight segment.
func (ctx *Context) LineTo(x, y float64) {
	ctx.path.lineTo(x, y)
}

// Rect adds a closed rectangular subpath.
func (ctx *Context) Rect(x, y, w, h float64) {
	ctx.path.moveTo(x, y)
	ctx.path.lineTo(x+w, y)
	ctx.path.lineTo(x+w, y+h)
	ctx.path.lineTo(x, y+h)
	ctx.path.close()
}

// Arc adds a circular arc centered at (x, y). Angles are in radians,
// clockwise unless counterclockwise is true.
func (ctx *Context) Arc(x, y, radius, start, end float64, counterclockwise ...bool) {
	ccw := len(counterclockwise) > 0 && counterclockwise[0]
	ctx.path.arc(x, y, math.Abs(radius), start, end, ccw)
}

// Fill fills the current path with the fill style (nonzero winding).
func (ctx *Context) Fill() {
	c, ok := ctx.fillColor()
	if !ok {
		return
	}
	ctx.paint(ctx.path.fillPolygons(), c)
}

// Stroke outlines the current path with the stroke style and line width.
func (ctx *Context) Stroke() {
	ctx.strokePath(&ctx.path)
}

func (ctx *Context) strokePath(p *path) {
	c, ok := ctx.strokeColor()
	if !ok {
		return
	}
	width := ctx.LineWidth
	if width <= 0 {
		width = 1
	}
	ctx.paint(p.strokePolygons(width), c)
}

// paint rasterizes polys in c. The rasterizer covers only the pixels the
// polygons can touch.
func (ctx *Context) paint(polys []polygon, c color.RGBA) {
	img := ctx.Canvas.sync()
	polys, r := coverage(polys, img.Rect)
	if r.Empty() {
		return
	}
	ctx.z.Reset(r.Dx(), r.Dy())
	rasterize(&ctx.z, polys, r.Min)
	ctx.z.Draw(img, r, image.NewUniform(premultiply(c, ctx.GlobalAlpha)), image.Point{})
}

// FillText paints text at (x, y) with the fill style. The optional
// maxWidth truncates to the characters that fit.
func (ctx *Context) FillText(text string, x, y float64, maxWidth ...float64) {
	c, ok := ctx.fillColor()
	if !ok || text == "" {
		return
	}
	if len(maxWidth) > 0 && maxWidth[0] >= 0 {
		fit := int(maxWidth[0] / textAdvance)
		if runes := []rune(text); len(runes) > fit {
			text = string(runes[:fit])
		}
	}
	ctx.Canvas.sync()
	ctx.Canvas.texts = append(ctx.Canvas.texts, Text{
		X:     x,
		Y:     y,
		S:     text,
		Color: c,
		Align: ctx.TextAlign,
	})
}

// MeasureText reports the nominal width of text.
func (ctx *Context) MeasureText(text string) TextMetrics {
	return TextMetrics{Width: float64(len([]rune(text))) * textAdvance}
}

// DrawImage paints img at (x, y), scaled to (w, h) when given.
func (ctx *Context) DrawImage(img *Image, x, y float64, size ...float64) {
	if img == nil || img.img == nil {
		return
	}
	w, h := float64(img.Width), float64(img.Height)
	if len(size) >= 2 {
		w, h = size[0], size[1]
	}
	dst := ctx.Canvas.sync()
	r := rectOf(x, y, w, h)
	if r.Empty() {
		return
	}
	var opts *xdraw.Options
	if ctx.GlobalAlpha < 1 {
		a := alphaByte(ctx.GlobalAlpha)
		opts = &xdraw.Options{DstMask: image.NewUniform(color.Alpha{A: a})}
	}
	xdraw.NearestNeighbor.Scale(dst, r, img.img, img.img.Bounds(), xdraw.Over, opts)
}

// Save pushes the style state.
func (ctx *Context) Save() {
	ctx.stack = append(ctx.stack, drawState{
		fillStyle:   ctx.FillStyle,
		strokeStyle: ctx.StrokeStyle,
		lineWidth:   ctx.LineWidth,
		font:        ctx.Font,
		textAlign:   ctx.TextAlign,
		globalAlpha: ctx.GlobalAlpha,
	})
}

// Restore pops the style state. Restore without Save is a no-op.
func (ctx *Context) Restore() {
	if len(ctx.stack) == 0 {
		return
	}
	s := ctx.stack[len(ctx.stack)-1]
	ctx.stack = ctx.stack[:len(ctx.stack)-1]
	ctx.FillStyle = s.fillStyle
	ctx.StrokeStyle = s.strokeStyle
	ctx.LineWidth = s.lineWidth
	ctx.Font = s.font
	ctx.TextAlign = s.textAlign
	ctx.GlobalAlpha = s.globalAlpha
}

// AlignOffset returns how far left of its anchor a text starts.
func AlignOffset(t Text) float64 {
	width := float64(len([]rune(t.S))) * textAdvance
	switch strings.ToLower(t.Align) {
	case "center":
		return width / 2
	case "right", "end":
		return width
	default:
		return 0
	}
}

func alphaByte(a float64) uint8 {
	return uint8(core.ClampF(a, 0, 1)*255 + 0.5)
}
