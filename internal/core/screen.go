package core

import (
	"strings"
)

// Cell is a single character position with foreground and background colors.
type Cell struct {
	Rune rune
	FG   Color
	BG   Color
}

var blankCell = Cell{Rune: ' '}

// Screen is a 2D cell buffer the platform composes each frame into:
// the presented canvas, the virtual controller and the status line.
// Writes outside the buffer are clipped.
type Screen struct {
	width  int
	height int
	cells  [][]Cell
}

// NewScreen creates a blank screen of the given size.
func NewScreen(width, height int) *Screen {
	s := &Screen{
		width:  max(width, 0),
		height: max(height, 0),
	}
	s.cells = make([][]Cell, s.height)
	for y := range s.cells {
		row := make([]Cell, s.width)
		for x := range row {
			row[x] = blankCell
		}
		s.cells[y] = row
	}
	return s
}

// Width returns the screen width in cells.
func (s *Screen) Width() int {
	return s.width
}

// Height returns the screen height in cells.
func (s *Screen) Height() int {
	return s.height
}

func (s *Screen) inBounds(x, y int) bool {
	return x >= 0 && x < s.width && y >= 0 && y < s.height
}

// SetCell replaces the cell at the given position.
func (s *Screen) SetCell(x, y int, c Cell) {
	if s.inBounds(x, y) {
		s.cells[y][x] = c
	}
}

// GetCell returns the cell at the given position, or a blank cell outside
// the buffer.
func (s *Screen) GetCell(x, y int) Cell {
	if !s.inBounds(x, y) {
		return blankCell
	}
	return s.cells[y][x]
}

// DrawTextColored writes text one rune per cell starting at (x, y).
func (s *Screen) DrawTextColored(x, y int, text string, fg, bg Color) {
	i := 0
	for _, r := range text {
		s.SetCell(x+i, y, Cell{Rune: r, FG: fg, BG: bg})
		i++
	}
}

// DrawRect fills a rectangular area with the given cell.
func (s *Screen) DrawRect(r Rect, fill Cell) {
	for y := r.Y; y < r.Bottom(); y++ {
		for x := r.X; x < r.Right(); x++ {
			s.SetCell(x, y, fill)
		}
	}
}

// DrawBox outlines r with box-drawing characters in fg, keeping the
// background already under each edge.
func (s *Screen) DrawBox(r Rect, fg Color) {
	if r.W < 2 || r.H < 2 {
		return
	}
	edge := func(x, y int, ch rune) {
		s.SetCell(x, y, Cell{Rune: ch, FG: fg, BG: s.GetCell(x, y).BG})
	}

	edge(r.X, r.Y, '┌')
	edge(r.Right()-1, r.Y, '┐')
	edge(r.X, r.Bottom()-1, '└')
	edge(r.Right()-1, r.Bottom()-1, '┘')

	for x := r.X + 1; x < r.Right()-1; x++ {
		edge(x, r.Y, '─')
		edge(x, r.Bottom()-1, '─')
	}
	for y := r.Y + 1; y < r.Bottom()-1; y++ {
		edge(r.X, y, '│')
		edge(r.Right()-1, y, '│')
	}
}

// String returns the screen as plain text, one line per row.
func (s *Screen) String() string {
	rows := make([]string, s.height)
	for y := range rows {
		rows[y] = s.Row(y)
	}
	return strings.Join(rows, "\n")
}

// Row returns the runes of row y, or blanks outside the buffer.
func (s *Screen) Row(y int) string {
	if y < 0 || y >= s.height {
		return strings.Repeat(" ", s.width)
	}
	runes := make([]rune, s.width)
	for x, c := range s.cells[y] {
		runes[x] = c.Rune
	}
	return string(runes)
}
