// Package core provides fundamental types and utilities for the player:
// the shared key vocabulary, the per-sandbox InputState, a colored cell
// screen buffer and small geometry helpers.
// It contains no external dependencies (especially no Bubble Tea) so the
// sandbox and the controller logic stay pure and testable.
package core

// Rect is a cell-space rectangle. The right and bottom edges are exclusive.
type Rect struct {
	X, Y int
	W, H int
}

func NewRect(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// Right is the first column past the rectangle.
func (r Rect) Right() int { return r.X + r.W }

// Bottom is the first row past the rectangle.
func (r Rect) Bottom() int { return r.Y + r.H }

// Contains reports whether cell (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

// Empty reports whether r covers no cells.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// ClampF limits v to [lo, hi].
func ClampF(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
