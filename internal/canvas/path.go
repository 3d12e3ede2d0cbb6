package canvas

import (
	"image"
	"math"

	"golang.org/x/image/vector"

	"github.com/vovakirdan/tui-player/internal/core"
)

type point struct{ x, y float64 }

type subpath struct {
	pts    []point
	closed bool
}

// path is a sequence of polyline subpaths. Arcs are flattened on entry.
type path struct {
	subs []subpath
}

func (p *path) reset() {
	p.subs = p.subs[:0]
}

func (p *path) current() *subpath {
	if len(p.subs) == 0 {
		return nil
	}
	return &p.subs[len(p.subs)-1]
}

func (p *path) moveTo(x, y float64) {
	p.subs = append(p.subs, subpath{pts: []point{{x, y}}})
}

func (p *path) lineTo(x, y float64) {
	cur := p.current()
	if cur == nil || cur.closed {
		start := point{x, y}
		if cur != nil && len(cur.pts) > 0 {
			start = cur.pts[0]
		}
		p.subs = append(p.subs, subpath{pts: []point{start}})
		cur = p.current()
	}
	cur.pts = append(cur.pts, point{x, y})
}

func (p *path) close() {
	if cur := p.current(); cur != nil && len(cur.pts) > 0 {
		cur.closed = true
	}
}

// arcSegments bounds the flattening resolution of a full circle.
const (
	minArcSegments = 12
	maxArcSegments = 96
)

func (p *path) arc(cx, cy, r, start, end float64, ccw bool) {
	sweep := end - start
	const full = 2 * math.Pi
	if !ccw {
		if sweep >= full {
			sweep = full
		} else {
			for sweep < 0 {
				sweep += full
			}
		}
	} else {
		if sweep <= -full {
			sweep = -full
		} else {
			for sweep > 0 {
				sweep -= full
			}
		}
	}

	n := max(minArcSegments, int(math.Ceil(math.Abs(sweep)/full*maxArcSegments)))

	first := point{cx + r*math.Cos(start), cy + r*math.Sin(start)}
	if cur := p.current(); cur == nil || cur.closed {
		p.moveTo(first.x, first.y)
	} else {
		p.lineTo(first.x, first.y)
	}
	for i := 1; i <= n; i++ {
		a := start + sweep*float64(i)/float64(n)
		p.lineTo(cx+r*math.Cos(a), cy+r*math.Sin(a))
	}
}

// polygon is a closed outline in canvas coordinates.
type polygon []point

// fillPolygons returns every subpath with at least three points as a
// closed polygon.
func (p *path) fillPolygons() []polygon {
	var out []polygon
	for _, s := range p.subs {
		if len(s.pts) >= 3 {
			out = append(out, polygon(s.pts))
		}
	}
	return out
}

// strokePolygons returns a quad of the given width around every segment.
// All quads share one orientation so overlaps accumulate instead of cancel.
func (p *path) strokePolygons(width float64) []polygon {
	var out []polygon
	hw := width / 2
	segment := func(a, b point) {
		dx, dy := b.x-a.x, b.y-a.y
		l := math.Hypot(dx, dy)
		if l == 0 {
			return
		}
		// Extend each end by half the width so joints meet without gaps.
		ux, uy := dx/l*hw, dy/l*hw
		nx, ny := -uy, ux
		a = point{a.x - ux, a.y - uy}
		b = point{b.x + ux, b.y + uy}
		out = append(out, polygon{
			{a.x + nx, a.y + ny},
			{b.x + nx, b.y + ny},
			{b.x - nx, b.y - ny},
			{a.x - nx, a.y - ny},
		})
	}

	for _, s := range p.subs {
		for i := 1; i < len(s.pts); i++ {
			segment(s.pts[i-1], s.pts[i])
		}
		if s.closed && len(s.pts) > 2 {
			segment(s.pts[len(s.pts)-1], s.pts[0])
		}
	}
	return out
}

// finite reports whether v survives the rasterizer's float32 conversion.
func finite(v float64) bool {
	f := float64(float32(v))
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// coverage returns the pixel bounds of polys clipped to clip, dropping
// polygons with non-finite coordinates.
func coverage(polys []polygon, clip image.Rectangle) ([]polygon, image.Rectangle) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	kept := polys[:0]
	for _, poly := range polys {
		ok := true
		for _, pt := range poly {
			if !finite(pt.x) || !finite(pt.y) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for _, pt := range poly {
			minX, maxX = min(minX, pt.x), max(maxX, pt.x)
			minY, maxY = min(minY, pt.y), max(maxY, pt.y)
		}
		kept = append(kept, poly)
	}
	if len(kept) == 0 {
		return nil, image.Rectangle{}
	}
	clampX := func(v float64) int { return int(core.ClampF(v, float64(clip.Min.X), float64(clip.Max.X))) }
	clampY := func(v float64) int { return int(core.ClampF(v, float64(clip.Min.Y), float64(clip.Max.Y))) }
	r := image.Rect(
		clampX(math.Floor(minX)), clampY(math.Floor(minY)),
		clampX(math.Ceil(maxX)), clampY(math.Ceil(maxY)),
	)
	return kept, r
}

// rasterize adds polys to z, whose origin sits at canvas point origin.
func rasterize(z *vector.Rasterizer, polys []polygon, origin image.Point) {
	ox, oy := float64(origin.X), float64(origin.Y)
	for _, poly := range polys {
		z.MoveTo(float32(poly[0].x-ox), float32(poly[0].y-oy))
		for _, pt := range poly[1:] {
			z.LineTo(float32(pt.x-ox), float32(pt.y-oy))
		}
		z.ClosePath()
	}
}
