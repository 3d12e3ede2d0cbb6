// Package sandbox runs one loaded game module in an isolated JS runtime.
//
// A Runtime owns a goja VM, a canvas and an InputState, all touched only by
// the Runtime's own goroutine. The outside world reaches it through a
// bridge endpoint (runCode, vkey), the Devices port (physical keys, mouse)
// and the Display it presents frames to.
package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dop251/goja"
	"golang.org/x/time/rate"

	"github.com/vovakirdan/tui-player/internal/bridge"
	"github.com/vovakirdan/tui-player/internal/canvas"
	"github.com/vovakirdan/tui-player/internal/config"
	"github.com/vovakirdan/tui-player/internal/core"
	"github.com/vovakirdan/tui-player/internal/game"
)

// State is the lifecycle state of a Runtime.
type State int32

const (
	StateBooting State = iota
	StateReady
	StateLoading // ready, waiting for init to settle
	StateRunning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateBooting:
		return "booting"
	case StateReady:
		return "ready"
	case StateLoading:
		return "loading"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Beeper plays a short tone.
type Beeper interface {
	Beep()
}

// BeeperFunc adapts a function to Beeper.
type BeeperFunc func()

func (f BeeperFunc) Beep() { f() }

// Fetcher retrieves the raw bytes of a resource.
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Options configures a Runtime.
type Options struct {
	FPS            int
	MaxDT          float64
	CanvasWidth    int
	CanvasHeight   int
	KeyHold        time.Duration
	BeepsPerSecond float64
	ImageTimeout   time.Duration

	Beeper  Beeper
	Images  Fetcher
	Display *Display
	Logger  *log.Logger

	// Ticks replaces the frame ticker, for tests.
	Ticks <-chan time.Time
	// Now is the clock used for key holds. Defaults to time.Now.
	Now func() time.Time
}

// OptionsFromConfig maps the sandbox config section onto Options.
func OptionsFromConfig(cfg config.SandboxConfig) Options {
	return Options{
		FPS:            cfg.FPS,
		MaxDT:          cfg.MaxDT,
		CanvasWidth:    cfg.CanvasWidth,
		CanvasHeight:   cfg.CanvasHeight,
		KeyHold:        cfg.KeyHold,
		BeepsPerSecond: cfg.BeepsPerSecond,
		ImageTimeout:   cfg.ImageTimeout,
	}
}

func (o *Options) applyDefaults() {
	def := OptionsFromConfig(config.Default().Sandbox)
	if o.FPS <= 0 {
		o.FPS = def.FPS
	}
	if o.MaxDT <= 0 {
		o.MaxDT = def.MaxDT
	}
	if o.CanvasWidth <= 0 || o.CanvasHeight <= 0 {
		o.CanvasWidth, o.CanvasHeight = def.CanvasWidth, def.CanvasHeight
	}
	if o.KeyHold <= 0 {
		o.KeyHold = def.KeyHold
	}
	if o.BeepsPerSecond <= 0 {
		o.BeepsPerSecond = def.BeepsPerSecond
	}
	if o.ImageTimeout <= 0 {
		o.ImageTimeout = def.ImageTimeout
	}
	if o.Display == nil {
		o.Display = NewDisplay()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type deviceEvent struct {
	key   string
	mouse *core.Mouse
}

// Runtime is one sandbox session.
type Runtime struct {
	opts     Options
	endpoint bridge.Endpoint
	logger   *log.Logger
	devices  *Devices

	inbox chan bridge.Message
	async chan func()
	done  chan struct{}

	closeOnce sync.Once
	exited    chan struct{}
	state     atomic.Int32
	current   atomic.Pointer[goja.Runtime]

	// Owned by the loop goroutine.
	vm       *goja.Runtime
	canvas   *canvas.Canvas
	input    *core.InputState
	virtual  core.KeySet
	physical map[string]time.Time
	module   game.Module
	api      *game.API
	gen      uint64
	running  bool
	last     time.Time
	cancel   context.CancelFunc
	beeps    *rate.Limiter
}

// New builds a runtime on the sandbox side of a bridge, starts its loop and
// announces readiness.
func New(endpoint bridge.Endpoint, opts Options) *Runtime {
	opts.applyDefaults()
	r := &Runtime{
		opts:     opts,
		endpoint: endpoint,
		logger:   opts.Logger,
		inbox:    make(chan bridge.Message),
		async:    make(chan func()),
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
		canvas:   canvas.New(opts.CanvasWidth, opts.CanvasHeight),
		input:    core.NewInputState(),
		virtual:  core.KeySet{},
		physical: map[string]time.Time{},
		beeps:    rate.NewLimiter(rate.Limit(opts.BeepsPerSecond), 1),
	}
	r.devices = &Devices{events: make(chan deviceEvent, 64), done: r.done}
	r.state.Store(int32(StateBooting))

	endpoint.Listen(func(m bridge.Message) {
		select {
		case r.inbox <- m:
		case <-r.done:
		}
	})

	go r.loop()

	r.state.Store(int32(StateReady))
	r.send(bridge.Ready())
	return r
}

// State returns the current lifecycle state. Safe for concurrent use.
func (r *Runtime) State() State {
	return State(r.state.Load())
}

// Keyboard returns the port for physical input devices.
func (r *Runtime) Keyboard() *Devices {
	return r.devices
}

// Display returns the frame slot the runtime presents to.
func (r *Runtime) Display() *Display {
	return r.opts.Display
}

// Close stops the loop and the bridge. A script still executing is
// interrupted and in-flight async work is discarded.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
		if vm := r.current.Load(); vm != nil {
			vm.Interrupt("sandbox closed")
		}
		r.endpoint.Close()
	})
	<-r.exited
}

func (r *Runtime) send(m bridge.Message) {
	r.endpoint.Send(m)
}

func (r *Runtime) report(level bridge.Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	switch level {
	case bridge.LevelError:
		r.logger.Error(msg)
	case bridge.LevelWarn:
		r.logger.Warn(msg)
	default:
		r.logger.Debug(msg)
	}
	r.send(bridge.Log(msg, level))
}

func (r *Runtime) loop() {
	defer close(r.exited)

	ticks := r.opts.Ticks
	if ticks == nil {
		t := time.NewTicker(time.Second / time.Duration(r.opts.FPS))
		defer t.Stop()
		ticks = t.C
	}

	for {
		select {
		case <-r.done:
			r.teardown()
			return
		case m := <-r.inbox:
			r.handle(m)
		case ev := <-r.devices.events:
			r.applyDevice(ev)
		case fn := <-r.async:
			r.runAsync(fn)
		case now := <-ticks:
			r.tick(now)
		}
	}
}

// runAsync delivers an async completion back into the VM. Promise jobs run
// during delivery, so host bindings can panic here too.
func (r *Runtime) runAsync(fn func()) {
	defer func() {
		if x := recover(); x != nil {
			r.report(bridge.LevelError, "async error: sandbox: host panic: %v", x)
		}
	}()
	fn()
}

func (r *Runtime) teardown() {
	r.running = false
	r.gen++
	if r.cancel != nil {
		r.cancel()
	}
	r.state.Store(int32(StateClosed))
}

func (r *Runtime) handle(m bridge.Message) {
	switch m.Type {
	case bridge.TypeRunCode:
		r.load(m.Code)
	case bridge.TypeVKey:
		if m.Down {
			r.virtual.Add(m.Key)
		} else {
			r.virtual.Remove(m.Key)
		}
		r.syncKeys()
	}
}

// load replaces the active module with code.
func (r *Runtime) load(code string) {
	r.running = false
	r.gen++
	gen := r.gen
	r.module = nil
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.state.Store(int32(StateLoading))

	r.vm = newVM(r.send)
	r.current.Store(r.vm)
	obj, err := evaluate(r.vm, code)
	if err != nil {
		r.report(bridge.LevelError, "module error: %s", describe(err))
		r.state.Store(int32(StateReady))
		return
	}

	mod := newJSModule(r.vm, obj, r.spawner(ctx, gen)).module()
	caps := game.Capabilities(mod)
	r.logger.Debug("module loaded", "generation", gen, "capabilities", strings.Join(caps, ","))

	initer, ok := mod.(game.Initializer)
	if !ok {
		r.start(mod)
		return
	}
	pending, err := initer.Init(r.gameAPI())
	if err != nil {
		r.report(bridge.LevelError, "init error: %s", describe(err))
		r.state.Store(int32(StateReady))
		return
	}
	if pending == nil {
		r.start(mod)
		return
	}
	pending.Settle(func(err error) {
		if gen != r.gen {
			return
		}
		if err != nil {
			r.report(bridge.LevelError, "init error: %s", describe(err))
			r.state.Store(int32(StateReady))
			return
		}
		r.start(mod)
	})
}

func (r *Runtime) start(mod game.Module) {
	r.module = mod
	r.running = true
	r.last = time.Time{}
	r.state.Store(int32(StateRunning))
}

func (r *Runtime) gameAPI() *game.API {
	if r.api == nil {
		r.api = &game.API{
			Surface:    r.canvas,
			LoadImage:  r.loadImage,
			PlayBeep:   r.beep,
			SetButtons: r.setButtons,
		}
	}
	return r.api
}

func (r *Runtime) loadImage(ctx context.Context, url string) (game.Image, error) {
	if r.opts.Images == nil {
		return nil, fmt.Errorf("sandbox: no image fetcher for %s", url)
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.ImageTimeout)
	defer cancel()
	data, err := r.opts.Images.FetchBytes(ctx, url)
	if err != nil {
		return nil, err
	}
	return canvas.DecodeImage(url, data)
}

func (r *Runtime) beep() {
	if r.opts.Beeper == nil || !r.beeps.Allow() {
		return
	}
	r.opts.Beeper.Beep()
}

func (r *Runtime) setButtons(names []string) {
	r.send(bridge.Buttons(names))
}

// spawner returns the async helper for one module generation.
func (r *Runtime) spawner(ctx context.Context, gen uint64) spawner {
	return func(work func(context.Context) (any, error), done func(any, error)) {
		go func() {
			v, err := work(ctx)
			deliver := func() {
				if gen != r.gen {
					return
				}
				done(v, err)
			}
			select {
			case r.async <- deliver:
			case <-r.done:
			}
		}()
	}
}

func (r *Runtime) applyDevice(ev deviceEvent) {
	if ev.mouse != nil {
		r.input.Mouse = *ev.mouse
		return
	}
	r.physical[ev.key] = r.opts.Now().Add(r.opts.KeyHold)
	r.syncKeys()
}

// expireKeys releases physical keys whose hold has lapsed.
func (r *Runtime) expireKeys(now time.Time) {
	changed := false
	for k, until := range r.physical {
		if !now.Before(until) {
			delete(r.physical, k)
			changed = true
		}
	}
	if changed {
		r.syncKeys()
	}
}

// syncKeys rebuilds the merged key set from virtual and physical sources.
func (r *Runtime) syncKeys() {
	for k := range r.input.Keys {
		if !r.virtual.Has(k) {
			if _, held := r.physical[k]; !held {
				r.input.Keys.Remove(k)
			}
		}
	}
	for k := range r.virtual {
		r.input.Keys.Add(k)
	}
	for k := range r.physical {
		r.input.Keys.Add(k)
	}
}

func (r *Runtime) tick(now time.Time) {
	r.expireKeys(r.opts.Now())
	if !r.running {
		return
	}

	dt := 0.0
	if !r.last.IsZero() {
		dt = now.Sub(r.last).Seconds()
	}
	r.last = now
	if dt < 0 {
		dt = 0
	}
	if dt > r.opts.MaxDT {
		dt = r.opts.MaxDT
	}

	if u, ok := r.module.(game.Updater); ok {
		if err := u.Update(dt, r.input); err != nil {
			r.report(bridge.LevelError, "update error: %s", describe(err))
		}
	}
	if rd, ok := r.module.(game.Renderer); ok {
		if err := rd.Render(r.canvas); err != nil {
			r.report(bridge.LevelError, "render error: %s", describe(err))
		}
	}
	r.opts.Display.Present(r.canvas.Snapshot())
}

// Devices feeds physical input into a Runtime. Terminals report key
// presses but not releases, so each press holds its key for the
// configured hold time; auto-repeat keeps it held.
type Devices struct {
	events chan deviceEvent
	done   <-chan struct{}
}

// Press reports a physical key press. Events are dropped when the runtime
// is closed or falling behind.
func (d *Devices) Press(key string) {
	d.push(deviceEvent{key: key})
}

// Pointer reports the mouse position in canvas coordinates.
func (d *Devices) Pointer(x, y float64, down bool) {
	d.push(deviceEvent{mouse: &core.Mouse{X: x, Y: y, Down: down}})
}

func (d *Devices) push(ev deviceEvent) {
	select {
	case <-d.done:
		return
	default:
	}
	select {
	case d.events <- ev:
	case <-d.done:
	default:
	}
}

// Display is the latest presented frame. It is written by the runtime and
// read by the UI.
type Display struct {
	mu     sync.Mutex
	frame  *canvas.Frame
	seq    uint64
	notify func()
}

// NewDisplay returns an empty display.
func NewDisplay() *Display {
	return &Display{}
}

// OnPresent registers a callback run after each new frame.
func (d *Display) OnPresent(fn func()) {
	d.mu.Lock()
	d.notify = fn
	d.mu.Unlock()
}

// Present stores f as the latest frame.
func (d *Display) Present(f *canvas.Frame) {
	d.mu.Lock()
	d.frame = f
	d.seq++
	notify := d.notify
	d.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Frame returns the latest frame and its sequence number; nil before the
// first present.
func (d *Display) Frame() (*canvas.Frame, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame, d.seq
}
