package host

import (
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-player/internal/bridge"
	"github.com/vovakirdan/tui-player/internal/sandbox"
)

// SandboxBooter boots in-process sandbox runtimes.
type SandboxBooter struct {
	Options sandbox.Options

	// OnBoot is called with every new runtime, before it is used, so the
	// platform can attach its display and input devices.
	OnBoot func(rt *sandbox.Runtime)
}

// Boot implements Booter.
func (b *SandboxBooter) Boot(endpoint bridge.Endpoint, sessionID string) (Sandbox, error) {
	opts := b.Options
	if opts.Logger != nil {
		opts.Logger = opts.Logger.With("session", sessionID)
	} else {
		opts.Logger = log.Default().With("session", sessionID)
	}
	rt := sandbox.New(endpoint, opts)
	if b.OnBoot != nil {
		b.OnBoot(rt)
	}
	return rt, nil
}
