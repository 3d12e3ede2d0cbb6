// Package canvas implements the 2D drawing surface handed to game modules:
// an RGBA raster with a small text overlay, modelled on the browser canvas
// API subset the player supports. Drawing state lives in Context; Canvas
// owns the pixels and produces immutable Frames for presentation.
package canvas

import (
	"image"
	"image/color"
)

// Canvas is a drawable surface. Width and Height are exported so scripts
// can read and assign canvas.width/canvas.height; assigning a new size
// reallocates and clears the surface on the next drawing call.
type Canvas struct {
	Width  int
	Height int

	img   *image.RGBA
	texts []Text
	ctx   *Context
}

// Text is a string painted by fillText. Terminal output cannot rasterize
// glyphs at canvas resolution, so text is kept as an overlay anchored at
// canvas coordinates.
type Text struct {
	X, Y  float64
	S     string
	Color color.RGBA
	Align string
}

// New creates a transparent canvas of the given size.
func New(width, height int) *Canvas {
	c := &Canvas{Width: max(width, 1), Height: max(height, 1)}
	c.sync()
	c.ctx = newContext(c)
	return c
}

// Size implements game.Surface.
func (c *Canvas) Size() (int, int) {
	return min(max(c.Width, 1), MaxSide), min(max(c.Height, 1), MaxSide)
}

// GetContext returns the 2D context. Any other kind yields nil, as in
// browsers for unsupported context types.
func (c *Canvas) GetContext(kind string) *Context {
	if kind != "2d" {
		return nil
	}
	return c.ctx
}

// Context returns the 2D context.
func (c *Canvas) Context() *Context {
	return c.ctx
}

// MaxSide bounds canvas.width and canvas.height. Larger sizes assigned by
// a script are clamped.
const MaxSide = 2048

// sync reallocates the raster if the script resized the canvas.
func (c *Canvas) sync() *image.RGBA {
	c.Width = min(max(c.Width, 1), MaxSide)
	c.Height = min(max(c.Height, 1), MaxSide)
	if c.img == nil || c.img.Rect.Dx() != c.Width || c.img.Rect.Dy() != c.Height {
		c.img = image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
		c.texts = nil
	}
	return c.img
}

// dropTextsIn removes overlay text anchored inside r, which a fill or clear
// of r would have painted over.
func (c *Canvas) dropTextsIn(r image.Rectangle) {
	kept := c.texts[:0]
	for _, t := range c.texts {
		if !image.Pt(int(t.X), int(t.Y)).In(r) {
			kept = append(kept, t)
		}
	}
	c.texts = kept
}

// Snapshot copies the current surface into a Frame.
func (c *Canvas) Snapshot() *Frame {
	img := c.sync()
	f := &Frame{
		Width:  c.Width,
		Height: c.Height,
		Pix:    make([]uint8, len(img.Pix)),
		Texts:  append([]Text(nil), c.texts...),
	}
	copy(f.Pix, img.Pix)
	return f
}

// Frame is an immutable presented image of a canvas.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8 // RGBA, row-major, 4 bytes per pixel
	Texts  []Text
}

// At returns the pixel at (x, y), transparent when out of bounds.
func (f *Frame) At(x, y int) color.RGBA {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return color.RGBA{}
	}
	i := (y*f.Width + x) * 4
	return color.RGBA{R: f.Pix[i], G: f.Pix[i+1], B: f.Pix[i+2], A: f.Pix[i+3]}
}

// Average returns the mean color of the pixels in [x0,x1)×[y0,y1).
// Transparent pixels count as black so partially covered blocks darken.
func (f *Frame) Average(x0, y0, x1, y1 int) color.RGBA {
	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, f.Width), min(y1, f.Height)
	if x1 <= x0 || y1 <= y0 {
		return color.RGBA{}
	}

	var r, g, b, a, n uint32
	for y := y0; y < y1; y++ {
		i := (y*f.Width + x0) * 4
		for x := x0; x < x1; x++ {
			// Pix is alpha-premultiplied.
			r += uint32(f.Pix[i])
			g += uint32(f.Pix[i+1])
			b += uint32(f.Pix[i+2])
			a += uint32(f.Pix[i+3])
			n++
			i += 4
		}
	}
	return color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n), A: uint8(a / n)}
}

// NonEmpty reports whether anything has been painted.
func (f *Frame) NonEmpty() bool {
	if len(f.Texts) > 0 {
		return true
	}
	for i := 3; i < len(f.Pix); i += 4 {
		if f.Pix[i] != 0 {
			return true
		}
	}
	return false
}
