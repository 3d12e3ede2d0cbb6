package canvas

import (
	"image"
	"image/color"
	"math"
	"testing"
)

var green = color.RGBA{0x4a, 0xde, 0x80, 0xff}

func TestFillRect(t *testing.T) {
	c := New(20, 10)
	ctx := c.GetContext("2d")
	ctx.FillStyle = "#4ade80"
	ctx.FillRect(2, 2, 4, 3)

	f := c.Snapshot()
	if got := f.At(3, 3); got != green {
		t.Errorf("At(3, 3) = %v, expected %v", got, green)
	}
	if got := f.At(6, 3); got.A != 0 {
		t.Errorf("At(6, 3) should be outside the rect, got %v", got)
	}
}

func TestClearRect(t *testing.T) {
	c := New(10, 10)
	ctx := c.Context()
	ctx.FillStyle = "white"
	ctx.FillRect(0, 0, 10, 10)
	ctx.ClearRect(0, 0, 5, 10)

	f := c.Snapshot()
	if f.At(2, 2).A != 0 {
		t.Error("cleared pixel should be transparent")
	}
	if f.At(7, 2).A != 0xff {
		t.Error("uncleared pixel should stay opaque")
	}
}

func TestArcFill(t *testing.T) {
	c := New(100, 100)
	ctx := c.Context()
	ctx.BeginPath()
	ctx.Arc(50, 50, 10, 0, math.Pi*2)
	ctx.FillStyle = "#4ade80"
	ctx.Fill()

	f := c.Snapshot()
	if got := f.At(50, 50); got != green {
		t.Errorf("center = %v, expected %v", got, green)
	}
	if got := f.At(50, 65); got.A != 0 {
		t.Errorf("pixel outside radius = %v, expected transparent", got)
	}
}

func TestStrokeLine(t *testing.T) {
	c := New(40, 40)
	ctx := c.Context()
	ctx.StrokeStyle = "#ff0000"
	ctx.LineWidth = 2
	ctx.BeginPath()
	ctx.MoveTo(10, 20)
	ctx.LineTo(30, 20)
	ctx.Stroke()

	f := c.Snapshot()
	if got := f.At(20, 20); got.R != 0xff || got.A != 0xff {
		t.Errorf("stroked pixel = %v, expected opaque red", got)
	}
	if got := f.At(20, 30); got.A != 0 {
		t.Errorf("pixel away from line = %v, expected transparent", got)
	}
}

func TestFillAcrossCanvasEdge(t *testing.T) {
	c := New(40, 40)
	ctx := c.Context()
	ctx.FillStyle = "#4ade80"

	ctx.BeginPath()
	ctx.Arc(0, 20, 8, 0, math.Pi*2)
	ctx.Fill()

	ctx.BeginPath()
	ctx.Arc(-50, -50, 8, 0, math.Pi*2)
	ctx.Fill()

	f := c.Snapshot()
	if got := f.At(2, 20); got != green {
		t.Errorf("At(2, 20) = %v, expected %v", got, green)
	}
	if got := f.At(12, 20); got.A != 0 {
		t.Errorf("At(12, 20) = %v, expected transparent", got)
	}
	if got := f.At(0, 0); got.A != 0 {
		t.Errorf("off-canvas arc leaked into At(0, 0) = %v", got)
	}
}

func TestSuccessivePathsStayIndependent(t *testing.T) {
	c := New(40, 40)
	ctx := c.Context()

	ctx.StrokeStyle = "#ff0000"
	ctx.LineWidth = 2
	ctx.BeginPath()
	ctx.MoveTo(0, 5)
	ctx.LineTo(20, 5)
	ctx.Stroke()

	ctx.FillStyle = "#4ade80"
	ctx.BeginPath()
	ctx.Rect(30, 30, 10, 10)
	ctx.Fill()

	f := c.Snapshot()
	tests := []struct {
		x, y int
		want color.RGBA
	}{
		{10, 5, color.RGBA{0xff, 0, 0, 0xff}},
		{35, 35, green},
		{10, 35, color.RGBA{}},
		{35, 5, color.RGBA{}},
	}
	for _, tt := range tests {
		if got := f.At(tt.x, tt.y); got != tt.want {
			t.Errorf("At(%d, %d) = %v, expected %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestNonFinitePathIgnored(t *testing.T) {
	c := New(20, 20)
	ctx := c.Context()
	ctx.StrokeStyle = "white"
	ctx.FillStyle = "white"
	ctx.BeginPath()
	ctx.MoveTo(math.NaN(), 0)
	ctx.LineTo(10, math.Inf(1))
	ctx.LineTo(5, 5)
	ctx.Stroke()
	ctx.Fill()

	if c.Snapshot().NonEmpty() {
		t.Error("non-finite path should paint nothing")
	}
}

// BenchmarkGridFrame draws the bundled sample's background grid.
func BenchmarkGridFrame(b *testing.B) {
	c := New(480, 360)
	ctx := c.Context()
	for b.Loop() {
		ctx.FillStyle = "#000"
		ctx.FillRect(0, 0, 480, 360)
		ctx.StrokeStyle = "#1f2937"
		for x := 0.0; x < 480; x += 16 {
			ctx.BeginPath()
			ctx.MoveTo(x, 0)
			ctx.LineTo(x, 360)
			ctx.Stroke()
		}
		for y := 0.0; y < 360; y += 16 {
			ctx.BeginPath()
			ctx.MoveTo(0, y)
			ctx.LineTo(480, y)
			ctx.Stroke()
		}
		c.Snapshot()
	}
}

func TestBeginPathDiscards(t *testing.T) {
	c := New(20, 20)
	ctx := c.Context()
	ctx.Rect(0, 0, 5, 5)
	ctx.BeginPath()
	ctx.FillStyle = "white"
	ctx.Fill()

	if c.Snapshot().NonEmpty() {
		t.Error("Fill after BeginPath should paint nothing")
	}
}

func TestFillTextOverlay(t *testing.T) {
	c := New(100, 50)
	ctx := c.Context()
	ctx.FillStyle = "#9aa4af"
	ctx.FillText("Score: 3", 8, 32)

	f := c.Snapshot()
	if len(f.Texts) != 1 || f.Texts[0].S != "Score: 3" {
		t.Fatalf("Texts = %+v", f.Texts)
	}
	if !f.NonEmpty() {
		t.Error("frame with text should be non-empty")
	}

	// An opaque full-surface fill paints over the text.
	ctx.FillStyle = "#000"
	ctx.FillRect(0, 0, 100, 50)
	if n := len(c.Snapshot().Texts); n != 0 {
		t.Errorf("Texts after covering fill = %d, expected 0", n)
	}
}

func TestFillTextMaxWidth(t *testing.T) {
	c := New(100, 50)
	ctx := c.Context()
	ctx.FillText("abcdefgh", 0, 10, textAdvance*3)

	if got := c.Snapshot().Texts[0].S; got != "abc" {
		t.Errorf("truncated text = %q, expected %q", got, "abc")
	}
}

func TestInvalidStyleIgnored(t *testing.T) {
	c := New(10, 10)
	ctx := c.Context()
	ctx.FillStyle = "not-a-color"
	ctx.FillRect(0, 0, 10, 10)

	if c.Snapshot().NonEmpty() {
		t.Error("invalid fill style should paint nothing")
	}
}

func TestResizeClears(t *testing.T) {
	c := New(10, 10)
	ctx := c.Context()
	ctx.FillStyle = "white"
	ctx.FillRect(0, 0, 10, 10)

	c.Width = 20
	f := c.Snapshot()
	if f.Width != 20 || f.Height != 10 {
		t.Errorf("frame size = %dx%d, expected 20x10", f.Width, f.Height)
	}
	if f.NonEmpty() {
		t.Error("resized canvas should be cleared")
	}
}

func TestResizeClamped(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"huge", 1_000_000_000_000, 10, MaxSide, 10},
		{"both huge", 1 << 40, 1 << 40, MaxSide, MaxSide},
		{"negative", -5, 0, 1, 1},
		{"at limit", MaxSide, MaxSide, MaxSide, MaxSide},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(10, 10)
			c.Width, c.Height = tt.width, tt.height
			if w, h := c.Size(); w != tt.wantW || h != tt.wantH {
				t.Errorf("Size() = %dx%d, expected %dx%d", w, h, tt.wantW, tt.wantH)
			}
			c.Context().FillRect(0, 0, 1, 1)
			f := c.Snapshot()
			if f.Width != tt.wantW || f.Height != tt.wantH {
				t.Errorf("frame size = %dx%d, expected %dx%d", f.Width, f.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestSaveRestore(t *testing.T) {
	c := New(10, 10)
	ctx := c.Context()
	ctx.FillStyle = "red"
	ctx.Save()
	ctx.FillStyle = "blue"
	ctx.GlobalAlpha = 0.5
	ctx.Restore()

	if ctx.FillStyle != "red" || ctx.GlobalAlpha != 1 {
		t.Errorf("after Restore: fillStyle=%q globalAlpha=%v", ctx.FillStyle, ctx.GlobalAlpha)
	}
	ctx.Restore() // unbalanced restore is a no-op
}

func TestGetContextKind(t *testing.T) {
	c := New(10, 10)
	if c.GetContext("webgl") != nil {
		t.Error("unsupported context kind should be nil")
	}
	if c.GetContext("2d") != c.Context() {
		t.Error("2d context should be stable")
	}
}

func TestFrameAverage(t *testing.T) {
	c := New(4, 2)
	ctx := c.Context()
	ctx.FillStyle = "#ffffff"
	ctx.FillRect(0, 0, 2, 2)

	f := c.Snapshot()
	avg := f.Average(0, 0, 4, 2)
	if avg.R < 120 || avg.R > 135 {
		t.Errorf("Average().R = %d, expected about half intensity", avg.R)
	}
	if got := f.Average(5, 5, 9, 9); got.A != 0 {
		t.Errorf("out-of-range Average = %v, expected transparent", got)
	}
}

func TestDrawImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	img := NewImage("mem", src)

	c := New(10, 10)
	c.Context().DrawImage(img, 4, 4, 4, 4)

	f := c.Snapshot()
	if got := f.At(6, 6); got.A != 0xff || got.R != 0xff {
		t.Errorf("scaled image pixel = %v, expected opaque white", got)
	}
	if got := f.At(2, 2); got.A != 0 {
		t.Errorf("pixel outside image = %v, expected transparent", got)
	}
}

func TestAlignOffset(t *testing.T) {
	tests := []struct {
		align string
		want  float64
	}{
		{"start", 0},
		{"left", 0},
		{"center", 2 * textAdvance / 2},
		{"right", 2 * textAdvance},
		{"end", 2 * textAdvance},
	}
	for _, tc := range tests {
		if got := AlignOffset(Text{S: "ab", Align: tc.align}); got != tc.want {
			t.Errorf("AlignOffset(%q) = %v, expected %v", tc.align, got, tc.want)
		}
	}
}
