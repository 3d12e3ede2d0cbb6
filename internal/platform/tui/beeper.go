package tui

import (
	"io"
	"sync"
)

// Bell rings the terminal bell. It implements sandbox.Beeper.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBell creates a bell writing to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

// Beep writes a single BEL byte.
func (b *Bell) Beep() {
	b.mu.Lock()
	defer b.mu.Unlock()
	//nolint:errcheck // a lost beep is harmless
	b.w.Write([]byte{'\a'})
}
