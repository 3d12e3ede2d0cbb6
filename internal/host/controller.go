// Package host drives sandbox sessions: it boots a fresh sandbox for every
// run, waits for its readiness handshake, injects the game source and
// relays logs, status and input across the bridge.
package host

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/tui-player/internal/bridge"
	"github.com/vovakirdan/tui-player/internal/config"
	"github.com/vovakirdan/tui-player/internal/storage"
)

var (
	// ErrNotReady is returned when the sandbox does not signal ready in time.
	ErrNotReady = errors.New("host: sandbox not ready")
	// ErrNotJS is returned for local files without a .js extension.
	ErrNotJS = errors.New("host: not a .js file")
	// ErrMixedContent is returned for plain-HTTP URLs on a secure host.
	ErrMixedContent = errors.New("host: mixed content")
	// ErrNoSource is returned when no file or URL was provided.
	ErrNoSource = errors.New("host: no source selected")
)

var reExportDefault = regexp.MustCompile(`export\s+default\s+`)

// Normalize appends a default export of the conventional `game` binding
// when text has no default export of its own.
func Normalize(text string) string {
	if reExportDefault.MatchString(text) {
		return text
	}
	return text + "\nexport default game;"
}

// Sandbox is a running sandbox session as seen by the host.
type Sandbox interface {
	Close()
}

// Booter starts a sandbox attached to the sandbox side of a bridge.
type Booter interface {
	Boot(endpoint bridge.Endpoint, sessionID string) (Sandbox, error)
}

// FileSource is a locally selected script.
type FileSource interface {
	// Name is the file name; empty when nothing is selected.
	Name() string
	ReadText() (string, error)
}

// RunRecorder persists run attempts.
type RunRecorder interface {
	SaveRun(ctx context.Context, run storage.Run) (int64, error)
}

// Options configures a Controller.
type Options struct {
	Booter   Booter
	Fetcher  Fetcher
	Sink     LogSink
	Status   StatusDisplay
	Recorder RunRecorder // optional
	Logger   *log.Logger

	ReadyAttempts int
	ReadyPoll     time.Duration
	// Secure forbids plain-HTTP script URLs.
	Secure bool

	SampleFS   fs.FS
	SamplePath string

	// OnButtons receives the loaded game's button hint. May be nil.
	OnButtons func(names []string)
}

// OptionsFromConfig maps the host config section onto Options.
func OptionsFromConfig(cfg config.HostConfig) Options {
	return Options{
		ReadyAttempts: cfg.ReadyAttempts,
		ReadyPoll:     cfg.ReadyPoll,
		Secure:        cfg.Secure(),
		SamplePath:    cfg.SamplePath,
	}
}

type session struct {
	id       string
	endpoint bridge.Endpoint
	sandbox  Sandbox
}

// Controller owns at most one live sandbox session.
type Controller struct {
	opts   Options
	logger *log.Logger

	mu      sync.Mutex
	current *session
	ready   atomic.Bool
	wg      sync.WaitGroup
}

// NewController creates a controller. Call Boot to start the first session.
func NewController(opts Options) *Controller {
	def := OptionsFromConfig(config.Default().Host)
	if opts.ReadyAttempts <= 0 {
		opts.ReadyAttempts = def.ReadyAttempts
	}
	if opts.ReadyPoll <= 0 {
		opts.ReadyPoll = def.ReadyPoll
	}
	if opts.SamplePath == "" {
		opts.SamplePath = def.SamplePath
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Controller{opts: opts, logger: opts.Logger}
}

func (c *Controller) log(msg string, level bridge.Level) {
	if c.opts.Sink != nil {
		c.opts.Sink.Log(msg, level)
	}
}

func (c *Controller) setStatus(s Status) {
	if c.opts.Status != nil {
		c.opts.Status.SetStatus(s)
	}
}

// Ready reports whether the current session has signalled ready.
func (c *Controller) Ready() bool {
	return c.ready.Load()
}

// SessionID returns the current session id, or "" before the first boot.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.id
}

// Boot discards the current sandbox and starts a fresh one.
func (c *Controller) Boot() error {
	c.mu.Lock()
	old := c.current
	c.current = nil
	c.ready.Store(false)
	c.mu.Unlock()

	if old != nil {
		old.endpoint.Close()
		if old.sandbox != nil {
			old.sandbox.Close()
		}
	}

	c.setStatus(StatusBooting)

	s := &session{id: uuid.NewString()}
	hostEnd, sandboxEnd := bridge.Pipe()
	s.endpoint = hostEnd
	hostEnd.Listen(func(m bridge.Message) { c.receive(s, m) })

	c.mu.Lock()
	c.current = s
	c.mu.Unlock()

	c.log("sandbox boot → sandbox://"+s.id, bridge.LevelInfo)
	c.logger.Debug("booting sandbox", "session", s.id)

	sb, err := c.opts.Booter.Boot(sandboxEnd, s.id)
	if err != nil {
		c.setStatus(StatusError)
		c.log("sandbox boot failed: "+err.Error(), bridge.LevelError)
		return fmt.Errorf("host: boot: %w", err)
	}

	c.mu.Lock()
	if c.current == s {
		s.sandbox = sb
		sb = nil
	}
	c.mu.Unlock()
	if sb != nil {
		// Superseded by a concurrent boot.
		sb.Close()
	}
	return nil
}

func (c *Controller) receive(s *session, m bridge.Message) {
	// Liveness and the ready flag are read and set under c.mu, as Boot
	// resets them.
	c.mu.Lock()
	live := c.current == s
	if live && m.Type == bridge.TypeReady {
		c.ready.Store(true)
	}
	c.mu.Unlock()
	if !live {
		return
	}

	switch m.Type {
	case bridge.TypeReady:
		c.setStatus(StatusReady)
		c.log("sandbox ready", bridge.LevelInfo)
	case bridge.TypeLog:
		c.log(m.Msg, m.EffectiveLevel())
	case bridge.TypeButtons:
		if c.opts.OnButtons != nil {
			c.opts.OnButtons(m.Names)
		}
	}
}

// Close shuts down the current session and waits for Go routines.
func (c *Controller) Close() {
	c.mu.Lock()
	old := c.current
	c.current = nil
	c.ready.Store(false)
	c.mu.Unlock()
	if old != nil {
		old.endpoint.Close()
		if old.sandbox != nil {
			old.sandbox.Close()
		}
	}
	c.wg.Wait()
}

// SendVKey forwards a virtual key transition to the current sandbox.
func (c *Controller) SendVKey(key string, down bool) {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()
	if s != nil {
		s.endpoint.Send(bridge.VKey(key, down))
	}
}

// RunCodeWhenReady waits for the sandbox handshake and then injects code.
// It never sends while the sandbox is unready.
func (c *Controller) RunCodeWhenReady(ctx context.Context, code string) error {
	for i := 0; i < c.opts.ReadyAttempts && !c.ready.Load(); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.opts.ReadyPoll):
		}
	}

	c.mu.Lock()
	s := c.current
	ready := c.ready.Load()
	c.mu.Unlock()
	if !ready || s == nil {
		c.log("sandbox not ready", bridge.LevelError)
		c.setStatus(StatusTimeout)
		return ErrNotReady
	}

	s.endpoint.Send(bridge.RunCode(code))
	c.setStatus(StatusRunning)
	return nil
}

// RunLocal runs a locally selected file.
func (c *Controller) RunLocal(ctx context.Context, src FileSource) error {
	name := ""
	if src != nil {
		name = src.Name()
	}
	if name == "" {
		c.log("no file selected", bridge.LevelWarn)
		return c.handled(ErrNoSource)
	}
	if !strings.HasSuffix(name, ".js") {
		c.log("choose a .js file", bridge.LevelWarn)
		c.record(ctx, storage.OriginLocal, name, storage.OutcomeRejected, ErrNotJS)
		return c.handled(ErrNotJS)
	}

	text, err := src.ReadText()
	if err != nil {
		c.log("file read failed: "+err.Error(), bridge.LevelError)
		c.record(ctx, storage.OriginLocal, name, storage.OutcomeFailed, err)
		return c.handled(fmt.Errorf("host: read %s: %w", name, err))
	}

	if err := c.Boot(); err != nil {
		return c.handled(err)
	}
	if err := c.RunCodeWhenReady(ctx, Normalize(text)); err != nil {
		c.record(ctx, storage.OriginLocal, name, storage.OutcomeTimeout, err)
		return c.handled(err)
	}
	c.log("run started (local): "+name, bridge.LevelInfo)
	c.record(ctx, storage.OriginLocal, name, storage.OutcomeStarted, nil)
	return nil
}

// RunURL fetches and runs a script from rawURL.
func (c *Controller) RunURL(ctx context.Context, rawURL string) error {
	url := strings.TrimSpace(rawURL)
	if url == "" {
		c.log("enter a URL", bridge.LevelWarn)
		return c.handled(ErrNoSource)
	}
	if c.opts.Secure && strings.HasPrefix(url, "http:") {
		c.log("mixed content: http is not allowed from a secure origin", bridge.LevelError)
		c.record(ctx, storage.OriginURL, url, storage.OutcomeRejected, ErrMixedContent)
		return c.handled(ErrMixedContent)
	}

	if err := c.Boot(); err != nil {
		return c.handled(err)
	}

	c.log("fetch: "+url, bridge.LevelInfo)
	resp, err := c.opts.Fetcher.Fetch(ctx, url)
	if err != nil {
		c.log("URL load failed: "+err.Error(), bridge.LevelError)
		c.record(ctx, storage.OriginURL, url, storage.OutcomeFailed, err)
		return c.handled(err)
	}
	if !resp.OK() {
		err := fmt.Errorf("HTTP %d %s", resp.StatusCode, resp.StatusText)
		c.log(err.Error(), bridge.LevelError)
		c.record(ctx, storage.OriginURL, url, storage.OutcomeFailed, err)
		return c.handled(err)
	}

	if err := c.RunCodeWhenReady(ctx, Normalize(resp.Body)); err != nil {
		c.record(ctx, storage.OriginURL, url, storage.OutcomeTimeout, err)
		return c.handled(err)
	}
	c.log("run started (URL): "+url, bridge.LevelInfo)
	c.record(ctx, storage.OriginURL, url, storage.OutcomeStarted, nil)
	return nil
}

// RunSample runs the bundled sample game.
func (c *Controller) RunSample(ctx context.Context) error {
	if err := c.Boot(); err != nil {
		return c.handled(err)
	}

	samplePath := c.opts.SamplePath
	text, err := c.readSample(samplePath)
	if err == nil {
		err = c.RunCodeWhenReady(ctx, text)
	}
	if err != nil {
		c.log("sample fetch failed: "+err.Error(), bridge.LevelError)
		outcome := storage.OutcomeFailed
		if errors.Is(err, ErrNotReady) {
			outcome = storage.OutcomeTimeout
		}
		c.record(ctx, storage.OriginSample, samplePath, outcome, err)
		return c.handled(err)
	}
	c.log("run started: "+path.Base(samplePath), bridge.LevelInfo)
	c.record(ctx, storage.OriginSample, samplePath, storage.OutcomeStarted, nil)
	return nil
}

func (c *Controller) readSample(name string) (string, error) {
	if c.opts.SampleFS == nil {
		return "", fmt.Errorf("no sample source for %s", name)
	}
	data, err := fs.ReadFile(c.opts.SampleFS, name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Restart reboots the sandbox without loading anything.
func (c *Controller) Restart() error {
	err := c.Boot()
	c.setStatus(StatusIdle)
	c.log("restart", bridge.LevelInfo)
	return err
}

func (c *Controller) record(ctx context.Context, origin, source, outcome string, cause error) {
	if c.opts.Recorder == nil {
		return
	}
	run := storage.Run{
		SessionID: c.SessionID(),
		Origin:    origin,
		Source:    source,
		Outcome:   outcome,
	}
	if cause != nil {
		run.Detail = cause.Error()
	}
	if _, err := c.opts.Recorder.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		c.logger.Warn("cannot record run", "err", err)
	}
}

// reportedError marks an error already shown in the log sink.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func (c *Controller) handled(err error) error {
	return reportedError{err}
}

// Go runs fn on its own goroutine. Panics and errors not yet shown to the
// user are reported to the log sink instead of crashing the caller.
func (c *Controller) Go(fn func() error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				c.log(fmt.Sprintf("GO PANIC: %v", r), bridge.LevelError)
				c.logger.Error("panic in host task", "panic", r, "stack", string(debug.Stack()))
			}
		}()
		if err := fn(); err != nil {
			var reported reportedError
			if errors.As(err, &reported) || errors.Is(err, context.Canceled) {
				return
			}
			c.log("ASYNC ERROR: "+err.Error(), bridge.LevelError)
		}
	}()
}

// LocalFile is a FileSource for a path on disk.
type LocalFile string

// Name returns the base name, or "" for an empty path.
func (f LocalFile) Name() string {
	if f == "" {
		return ""
	}
	return filepath.Base(string(f))
}

// ReadText reads the whole file.
func (f LocalFile) ReadText() (string, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
