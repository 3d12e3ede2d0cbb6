// Package vcontroller implements the on-screen virtual gamepad. Each button
// maps to a fixed key identifier and reports its transitions as vkey
// messages; the sandbox merges them with physical keys.
package vcontroller

import (
	"sync"

	"github.com/vovakirdan/tui-player/internal/core"
)

// Sender delivers virtual key transitions to the sandbox.
type Sender interface {
	SendVKey(key string, down bool)
}

// Button names.
const (
	Up     = "up"
	Down   = "down"
	Left   = "left"
	Right  = "right"
	A      = "a"
	B      = "b"
	L      = "l"
	R      = "r"
	Start  = "start"
	Select = "select"
)

// Mapping is the fixed button to key identifier table.
var Mapping = map[string]string{
	Up:     core.KeyUp,
	Down:   core.KeyDown,
	Left:   core.KeyLeft,
	Right:  core.KeyRight,
	A:      core.KeyA,
	B:      core.KeyB,
	L:      core.KeyL,
	R:      core.KeyR,
	Start:  core.KeyStart,
	Select: core.KeySelect,
}

// layout order and labels; "" inserts a gap.
var layout = []struct{ name, label string }{
	{Left, "←"}, {Up, "↑"}, {Down, "↓"}, {Right, "→"},
	{"", ""},
	{A, "A"}, {B, "B"}, {L, "L"}, {R, "R"},
	{"", ""},
	{Start, "START"}, {Select, "SELECT"},
}

const (
	buttonHeight = 3
	gapWidth     = 2
)

// Button is one on-screen element.
type Button struct {
	Name    string
	Key     string
	Label   string
	Rect    core.Rect // relative to the controller origin
	Pressed bool      // mirrors the last value sent
	Dimmed  bool      // not used by the current game
}

// Controller holds the buttons and the pointer capture. Safe for
// concurrent use.
type Controller struct {
	mu      sync.Mutex
	sender  Sender
	buttons []*Button
	held    *Button
	width   int
}

// New lays out all buttons in one row.
func New(sender Sender) *Controller {
	c := &Controller{sender: sender}
	x := 0
	for _, item := range layout {
		if item.name == "" {
			x += gapWidth
			continue
		}
		w := len([]rune(item.label)) + 4
		c.buttons = append(c.buttons, &Button{
			Name:  item.name,
			Key:   Mapping[item.name],
			Label: item.label,
			Rect:  core.NewRect(x, 0, w, buttonHeight),
		})
		x += w
	}
	c.width = x
	return c
}

// Size returns the controller's footprint in cells.
func (c *Controller) Size() (width, height int) {
	return c.width, buttonHeight
}

// SetSender replaces the target of key transitions, e.g. after a reboot.
func (c *Controller) SetSender(s Sender) {
	c.mu.Lock()
	c.sender = s
	c.mu.Unlock()
}

func (c *Controller) find(name string) *Button {
	for _, b := range c.buttons {
		if b.Name == name {
			return b
		}
	}
	return nil
}

func (c *Controller) hit(x, y int) *Button {
	for _, b := range c.buttons {
		if b.Rect.Contains(x, y) {
			return b
		}
	}
	return nil
}

// send must be called with mu held.
func (c *Controller) send(b *Button, down bool) {
	b.Pressed = down
	if c.sender != nil {
		c.sender.SendVKey(b.Key, down)
	}
}

// Press handles a down event on the named button.
func (c *Controller) Press(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b := c.find(name); b != nil {
		c.send(b, true)
	}
}

// Release handles an up, cancel or leave event on the named button.
func (c *Controller) Release(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b := c.find(name); b != nil {
		c.send(b, false)
		if c.held == b {
			c.held = nil
		}
	}
}

// MouseDown presses the button under (x, y) and captures the pointer.
func (c *Controller) MouseDown(x, y int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.hit(x, y)
	if b == nil {
		return false
	}
	if c.held != nil && c.held != b {
		c.send(c.held, false)
	}
	c.held = b
	c.send(b, true)
	return true
}

// MouseMotion releases the captured button once the pointer leaves it.
func (c *Controller) MouseMotion(x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held != nil && !c.held.Rect.Contains(x, y) {
		c.send(c.held, false)
		c.held = nil
	}
}

// MouseUp releases the captured button wherever the pointer is.
func (c *Controller) MouseUp(x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held != nil {
		c.send(c.held, false)
		c.held = nil
	}
}

// Blur cancels every pressed button, as on focus loss.
func (c *Controller) Blur() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.buttons {
		if b.Pressed {
			c.send(b, false)
		}
	}
	c.held = nil
}

// SetButtons foregrounds the named buttons and dims the rest. Unknown
// names are ignored; no known name restores all buttons.
func (c *Controller) SetButtons(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := Mapping[n]; ok {
			want[n] = true
		}
	}
	for _, b := range c.buttons {
		b.Dimmed = len(want) > 0 && !want[b.Name]
	}
}

// Buttons returns a snapshot of the buttons.
func (c *Controller) Buttons() []Button {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Button, len(c.buttons))
	for i, b := range c.buttons {
		out[i] = *b
	}
	return out
}

// Draw paints the buttons onto s with their top-left corner at (ox, oy).
func (c *Controller) Draw(s *core.Screen, ox, oy int) {
	for _, b := range c.Buttons() {
		r := b.Rect
		r.X += ox
		r.Y += oy

		fg, bg := core.ColorWhite, core.ColorDefault
		switch {
		case b.Pressed:
			fg, bg = core.ColorBlack, core.ColorHighlight
		case b.Dimmed:
			fg = core.ColorDimGray
		}
		if !bg.IsDefault() {
			s.DrawRect(r, core.Cell{Rune: ' ', FG: fg, BG: bg})
		}
		s.DrawBox(r, fg)
		s.DrawTextColored(r.X+2, r.Y+1, b.Label, fg, bg)
	}
}
