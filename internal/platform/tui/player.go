package tui

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-player/internal/config"
	"github.com/vovakirdan/tui-player/internal/host"
	"github.com/vovakirdan/tui-player/internal/registry"
	"github.com/vovakirdan/tui-player/internal/sandbox"
	"github.com/vovakirdan/tui-player/internal/storage"
	"github.com/vovakirdan/tui-player/internal/vcontroller"
)

// Source selects what a player runs. The zero value is the bundled sample.
type Source struct {
	File string
	URL  string
}

// Deps are the services shared by every player session of a process.
type Deps struct {
	Config config.Config
	Store  *storage.Store // nil disables run history
	Logger *log.Logger
}

// Player wires one host controller, its sandboxes, the virtual controller
// and the log panel together for a single terminal.
type Player struct {
	UI      *host.UIState
	Buttons *vcontroller.Controller

	ctrl    *host.Controller
	runtime atomic.Pointer[sandbox.Runtime]
	refresh chan struct{}
	canvasW int
	canvasH int

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewPlayer creates a player. bell receives BEL bytes for beeps and may be
// nil. secure forces the mixed-content rule regardless of the configured
// origin.
func NewPlayer(deps Deps, bell io.Writer, secure bool) *Player {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}

	p := &Player{
		UI:      host.NewUIState(logger),
		refresh: make(chan struct{}, 1),
		canvasW: cfg.Sandbox.CanvasWidth,
		canvasH: cfg.Sandbox.CanvasHeight,
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.UI.OnChange(p.notify)

	logger.Debug("player configured",
		"fps", cfg.Sandbox.FPS,
		"canvas", fmt.Sprintf("%dx%d", p.canvasW, p.canvasH),
		"ready_timeout", cfg.Host.ReadyTimeout(),
		"secure", secure,
	)

	fetcher := host.NewHTTPFetcher(cfg.Host.FetchTimeout)

	sbOpts := sandbox.OptionsFromConfig(cfg.Sandbox)
	sbOpts.Images = fetcher
	sbOpts.Logger = logger
	if bell != nil {
		sbOpts.Beeper = NewBell(bell)
	}

	opts := host.OptionsFromConfig(cfg.Host)
	opts.Booter = &host.SandboxBooter{Options: sbOpts, OnBoot: p.attach}
	opts.Fetcher = fetcher
	opts.Sink = p.UI
	opts.Status = p.UI
	opts.Logger = logger
	opts.Secure = opts.Secure || secure
	opts.SampleFS = registry.FS()
	if deps.Store != nil {
		opts.Recorder = deps.Store
	}

	p.Buttons = vcontroller.New(nil)
	opts.OnButtons = func(names []string) {
		p.Buttons.SetButtons(names)
		p.notify()
	}
	p.ctrl = host.NewController(opts)
	p.Buttons.SetSender(p.ctrl)
	return p
}

func (p *Player) attach(rt *sandbox.Runtime) {
	rt.Display().OnPresent(p.notify)
	p.runtime.Store(rt)
	p.notify()
}

func (p *Player) notify() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Refresh signals new frames and log lines.
func (p *Player) Refresh() <-chan struct{} {
	return p.refresh
}

// Runtime returns the live sandbox, or nil before the first boot.
func (p *Player) Runtime() *sandbox.Runtime {
	return p.runtime.Load()
}

// CanvasSize is the configured canvas size, used before the first frame.
func (p *Player) CanvasSize() (int, int) {
	return p.canvasW, p.canvasH
}

// Run loads src in a fresh sandbox in the background.
func (p *Player) Run(src Source) {
	switch {
	case src.File != "":
		p.RunFile(src.File)
	case src.URL != "":
		p.RunURL(src.URL)
	default:
		p.RunSample()
	}
}

// RunFile runs a local script. An empty path reports that no file is
// selected.
func (p *Player) RunFile(path string) {
	path = strings.TrimSpace(path)
	if path != "" {
		p.UI.SetFile(filepath.Base(path))
	}
	p.ctrl.Go(func() error {
		return p.ctrl.RunLocal(p.ctx, host.LocalFile(path))
	})
}

// RunURL fetches and runs a remote script.
func (p *Player) RunURL(url string) {
	p.ctrl.Go(func() error {
		return p.ctrl.RunURL(p.ctx, url)
	})
}

// RunSample runs the bundled sample game.
func (p *Player) RunSample() {
	p.ctrl.Go(func() error {
		return p.ctrl.RunSample(p.ctx)
	})
}

// Restart reboots the sandbox without loading a game.
func (p *Player) Restart() {
	p.ctrl.Go(p.ctrl.Restart)
}

// Close stops the sandbox and waits for background runs.
func (p *Player) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		p.ctrl.Close()
	})
}
