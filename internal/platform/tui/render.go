package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/tui-player/internal/canvas"
	"github.com/vovakirdan/tui-player/internal/core"
)

// halfBlock paints the top half of a cell in FG and the bottom half in BG,
// giving two square-ish pixels per cell.
const halfBlock = '▀'

// fit places a canvas of W×H pixels inside a cell area, keeping its aspect
// ratio. Scale is the number of canvas pixels per half-cell.
type fit struct {
	Area   core.Rect // cells actually covered
	Scale  float64
	Width  int
	Height int
}

func fitFrame(width, height int, area core.Rect) fit {
	f := fit{Width: width, Height: height}
	if area.Empty() || width <= 0 || height <= 0 {
		return f
	}
	f.Scale = math.Max(float64(width)/float64(area.W), float64(height)/float64(2*area.H))
	cols := min(area.W, int(math.Ceil(float64(width)/f.Scale)))
	rows := min(area.H, int(math.Ceil(float64(height)/(2*f.Scale))))
	f.Area = core.NewRect(area.X+(area.W-cols)/2, area.Y+(area.H-rows)/2, cols, rows)
	return f
}

// ToCanvas maps a terminal cell to the canvas coordinates of its center.
func (f fit) ToCanvas(x, y int) (cx, cy float64, ok bool) {
	if !f.Area.Contains(x, y) {
		return 0, 0, false
	}
	cx = (float64(x-f.Area.X) + 0.5) * f.Scale
	cy = (float64(y-f.Area.Y) + 0.5) * 2 * f.Scale
	return cx, cy, true
}

func (f fit) span(i int) (int, int) {
	a := int(float64(i) * f.Scale)
	b := int(float64(i+1) * f.Scale)
	return a, max(b, a+1)
}

// DrawFrame rasterizes fr into s within area using half blocks and then
// overlays the frame's text.
func DrawFrame(s *core.Screen, fr *canvas.Frame, area core.Rect) fit {
	f := fitFrame(fr.Width, fr.Height, area)
	if f.Scale == 0 {
		return f
	}

	for row := 0; row < f.Area.H; row++ {
		topY0, topY1 := f.span(2 * row)
		botY0, botY1 := f.span(2*row + 1)
		for col := 0; col < f.Area.W; col++ {
			x0, x1 := f.span(col)
			top := fr.Average(x0, topY0, x1, topY1)
			bot := fr.Average(x0, botY0, x1, botY1)
			s.SetCell(f.Area.X+col, f.Area.Y+row, core.Cell{
				Rune: halfBlock,
				FG:   core.RGB(top.R, top.G, top.B),
				BG:   core.RGB(bot.R, bot.G, bot.B),
			})
		}
	}

	for _, t := range fr.Texts {
		runes := []rune(t.S)
		x := f.Area.X + int(t.X/f.Scale)
		y := f.Area.Y + int(t.Y/(2*f.Scale))
		switch t.Align {
		case "center":
			x -= len(runes) / 2
		case "right", "end":
			x -= len(runes)
		}
		fg := core.FromRGBA(t.Color)
		for i, r := range runes {
			cx := x + i
			if !f.Area.Contains(cx, y) {
				continue
			}
			under := s.GetCell(cx, y)
			s.SetCell(cx, y, core.Cell{Rune: r, FG: fg, BG: under.BG})
		}
	}
	return f
}

type colorPair struct{ fg, bg core.Color }

// Painter converts Screen buffers to styled strings for one terminal.
type Painter struct {
	renderer *lipgloss.Renderer
	styles   map[colorPair]lipgloss.Style
}

// NewPainter creates a painter bound to r, or to the default renderer.
func NewPainter(r *lipgloss.Renderer) *Painter {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return &Painter{renderer: r, styles: make(map[colorPair]lipgloss.Style)}
}

// Style returns a style for the given colors.
func (p *Painter) Style(fg, bg core.Color) lipgloss.Style {
	key := colorPair{fg, bg}
	if st, ok := p.styles[key]; ok {
		return st
	}
	st := p.renderer.NewStyle()
	if !fg.IsDefault() {
		st = st.Foreground(lipgloss.Color(fg.Hex()))
	}
	if !bg.IsDefault() {
		st = st.Background(lipgloss.Color(bg.Hex()))
	}
	p.styles[key] = st
	return st
}

// RenderScreen converts a Screen buffer to a styled string for display.
// Groups adjacent cells with the same colors to minimize ANSI escape sequences.
func (p *Painter) RenderScreen(s *core.Screen) string {
	var sb strings.Builder
	sb.Grow(s.Width()*s.Height()*2 + s.Height())

	for y := range s.Height() {
		if y > 0 {
			sb.WriteRune('\n')
		}

		x := 0
		for x < s.Width() {
			start := s.GetCell(x, y)
			var run strings.Builder
			for x < s.Width() {
				cell := s.GetCell(x, y)
				if cell.FG != start.FG || cell.BG != start.BG {
					break
				}
				run.WriteRune(cell.Rune)
				x++
			}
			sb.WriteString(p.Style(start.FG, start.BG).Render(run.String()))
		}
	}
	return sb.String()
}
