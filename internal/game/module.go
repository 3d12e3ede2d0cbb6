// Package game defines the contract a loaded game module satisfies and the
// capabilities the sandbox hands to it.
//
// Every capability is optional: a module implements any subset of
// Initializer, Updater and Renderer, and a missing phase is a no-op.
package game

import (
	"github.com/vovakirdan/tui-player/internal/core"
)

// Module is a loaded game. It carries no required methods; the sandbox
// checks it for the optional capability interfaces below.
type Module interface{}

// Initializer runs once, before the first Update. It may start asynchronous
// setup by returning a non-nil Pending; the frame loop waits for it.
type Initializer interface {
	Init(api *API) (Pending, error)
}

// Updater advances the game by dt seconds since the previous frame.
type Updater interface {
	Update(dt float64, input *core.InputState) error
}

// Renderer paints the entire frame. The surface is already sized to the
// viewport and is not cleared beforehand.
type Renderer interface {
	Render(surface Surface) error
}

// Pending is an initialization still in flight. Settle registers the
// callback to run once, on the sandbox goroutine, when it completes.
type Pending interface {
	Settle(func(err error))
}

// Capability names reported in logs.
const (
	CapInit   = "init"
	CapUpdate = "update"
	CapRender = "render"
)

// Capabilities lists the phases a module implements, in lifecycle order.
func Capabilities(m Module) []string {
	var caps []string
	if _, ok := m.(Initializer); ok {
		caps = append(caps, CapInit)
	}
	if _, ok := m.(Updater); ok {
		caps = append(caps, CapUpdate)
	}
	if _, ok := m.(Renderer); ok {
		caps = append(caps, CapRender)
	}
	return caps
}
