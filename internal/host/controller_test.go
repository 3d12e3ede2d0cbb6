package host

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-player/internal/bridge"
	"github.com/vovakirdan/tui-player/internal/registry"
	"github.com/vovakirdan/tui-player/internal/sandbox"
	"github.com/vovakirdan/tui-player/internal/storage"
)

// fakeSandbox records what the host sends and optionally answers ready.
type fakeSandbox struct {
	ep bridge.Endpoint

	mu   sync.Mutex
	got  []bridge.Message
	shut bool
}

func (s *fakeSandbox) record(m bridge.Message) {
	s.mu.Lock()
	s.got = append(s.got, m)
	s.mu.Unlock()
}

func (s *fakeSandbox) received() []bridge.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bridge.Message(nil), s.got...)
}

func (s *fakeSandbox) Close() {
	s.mu.Lock()
	s.shut = true
	s.mu.Unlock()
	s.ep.Close()
}

type fakeBooter struct {
	mu        sync.Mutex
	sendReady bool
	boots     []*fakeSandbox
}

func (b *fakeBooter) Boot(ep bridge.Endpoint, sessionID string) (Sandbox, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &fakeSandbox{ep: ep}
	ep.Listen(s.record)
	if b.sendReady {
		ep.Send(bridge.Ready())
	}
	b.boots = append(b.boots, s)
	return s, nil
}

func (b *fakeBooter) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.boots)
}

func (b *fakeBooter) last() *fakeSandbox {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.boots[len(b.boots)-1]
}

type countingFetcher struct {
	mu    sync.Mutex
	calls int
	inner Fetcher
}

func (f *countingFetcher) Fetch(ctx context.Context, url string) (Response, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.inner == nil {
		return Response{}, errors.New("no network")
	}
	return f.inner.Fetch(ctx, url)
}

type memRecorder struct {
	mu   sync.Mutex
	runs []storage.Run
}

func (r *memRecorder) SaveRun(_ context.Context, run storage.Run) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return int64(len(r.runs)), nil
}

func newTestController(t *testing.T, booter Booter, mutate func(*Options)) (*Controller, *UIState) {
	t.Helper()
	ui := NewUIState(nil)
	opts := Options{
		Booter:        booter,
		Fetcher:       &countingFetcher{},
		Sink:          ui,
		Status:        ui,
		Logger:        log.New(io.Discard),
		ReadyAttempts: 40,
		ReadyPoll:     5 * time.Millisecond,
		SampleFS:      registry.FS(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	c := NewController(opts)
	t.Cleanup(c.Close)
	return c, ui
}

func hasLine(ui *UIState, level bridge.Level, substr string) bool {
	prefix := strings.ToUpper(string(level)) + ": "
	for _, l := range ui.Lines() {
		if strings.Contains(l, prefix) && strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"appends", "const game = {};", "const game = {};\nexport default game;"},
		{"keeps existing", "export default { update() {} };", "export default { update() {} };"},
		{"keeps multiline default", "const game = {};\nexport   default\tgame;", "const game = {};\nexport   default\tgame;"},
		{"named export only", "export const game = {};", "export const game = {};\nexport default game;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if got != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
			if again := Normalize(got); again != got {
				t.Errorf("Normalize not idempotent: %q", again)
			}
			if n := len(reExportDefault.FindAllStringIndex(got, -1)); n != 1 {
				t.Errorf("got %d default exports, want 1", n)
			}
		})
	}
}

func TestBootResetsReadiness(t *testing.T) {
	booter := &fakeBooter{sendReady: true}
	c, ui := newTestController(t, booter, nil)

	if err := c.Boot(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, c.Ready)
	if ui.Status() != StatusReady {
		t.Errorf("status = %s, want ready", ui.Status())
	}
	first := c.SessionID()

	booter.mu.Lock()
	booter.sendReady = false
	booter.mu.Unlock()
	if err := c.Boot(); err != nil {
		t.Fatal(err)
	}
	if c.Ready() {
		t.Fatal("ready not reset by reboot")
	}
	if c.SessionID() == first {
		t.Error("session id not renewed")
	}
	if !booter.boots[0].shut {
		t.Error("previous sandbox not closed")
	}
	if !hasLine(ui, bridge.LevelInfo, "sandbox boot → sandbox://"+c.SessionID()) {
		t.Errorf("boot line missing: %v", ui.Lines())
	}
}

func TestStaleReadyIgnored(t *testing.T) {
	c, _ := newTestController(t, &fakeBooter{}, nil)

	if err := c.Boot(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		c.mu.Lock()
		prev := c.current
		c.mu.Unlock()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := c.Boot(); err != nil {
				t.Error(err)
			}
		}()
		go func() {
			defer wg.Done()
			c.receive(prev, bridge.Ready())
		}()
		wg.Wait()

		if c.Ready() {
			t.Fatalf("round %d: new session marked ready by its predecessor", i)
		}
	}

	c.mu.Lock()
	live := c.current
	c.mu.Unlock()
	c.receive(live, bridge.Ready())
	if !c.Ready() {
		t.Error("live session ready not recorded")
	}
}

func TestRunCodeWhenReadyTimesOut(t *testing.T) {
	booter := &fakeBooter{sendReady: false}
	c, ui := newTestController(t, booter, func(o *Options) {
		o.ReadyAttempts = 3
		o.ReadyPoll = time.Millisecond
	})

	if err := c.Boot(); err != nil {
		t.Fatal(err)
	}
	err := c.RunCodeWhenReady(context.Background(), "export default {};")
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
	if ui.Status() != StatusTimeout {
		t.Errorf("status = %s, want timeout", ui.Status())
	}
	if !hasLine(ui, bridge.LevelError, "sandbox not ready") {
		t.Errorf("missing error line: %v", ui.Lines())
	}
	time.Sleep(10 * time.Millisecond)
	for _, m := range booter.last().received() {
		if m.Type == bridge.TypeRunCode {
			t.Fatal("runCode sent to unready sandbox")
		}
	}
}

func TestRunLocalRejectsNonJS(t *testing.T) {
	booter := &fakeBooter{sendReady: true}
	rec := &memRecorder{}
	c, ui := newTestController(t, booter, func(o *Options) { o.Recorder = rec })

	path := filepath.Join(t.TempDir(), "game.txt")
	os.WriteFile(path, []byte("const game = {};"), 0o644)

	err := c.RunLocal(context.Background(), LocalFile(path))
	if !errors.Is(err, ErrNotJS) {
		t.Fatalf("err = %v, want ErrNotJS", err)
	}
	if booter.count() != 0 {
		t.Error("sandbox booted for rejected file")
	}
	if !hasLine(ui, bridge.LevelWarn, ".js") {
		t.Errorf("missing warning: %v", ui.Lines())
	}
	if len(rec.runs) != 1 || rec.runs[0].Outcome != storage.OutcomeRejected {
		t.Errorf("recorded runs = %+v", rec.runs)
	}
}

func TestRunLocalNoFile(t *testing.T) {
	booter := &fakeBooter{sendReady: true}
	c, ui := newTestController(t, booter, nil)

	if err := c.RunLocal(context.Background(), LocalFile("")); !errors.Is(err, ErrNoSource) {
		t.Fatalf("err = %v, want ErrNoSource", err)
	}
	if booter.count() != 0 || !hasLine(ui, bridge.LevelWarn, "no file selected") {
		t.Errorf("unexpected boot or missing warning: %v", ui.Lines())
	}
}

func TestRunLocalSendsNormalizedCode(t *testing.T) {
	booter := &fakeBooter{sendReady: true}
	c, ui := newTestController(t, booter, nil)

	path := filepath.Join(t.TempDir(), "game.js")
	os.WriteFile(path, []byte("const game = {};"), 0o644)

	if err := c.RunLocal(context.Background(), LocalFile(path)); err != nil {
		t.Fatalf("RunLocal: %v", err)
	}
	waitFor(t, func() bool { return len(booter.last().received()) == 1 })
	m := booter.last().received()[0]
	if m.Type != bridge.TypeRunCode || m.Code != "const game = {};\nexport default game;" {
		t.Errorf("sent %+v", m)
	}
	if ui.Status() != StatusRunning {
		t.Errorf("status = %s, want running", ui.Status())
	}
	if !hasLine(ui, bridge.LevelInfo, "run started (local): game.js") {
		t.Errorf("missing start line: %v", ui.Lines())
	}
}

func TestRunURLMixedContent(t *testing.T) {
	booter := &fakeBooter{sendReady: true}
	fetcher := &countingFetcher{}
	c, ui := newTestController(t, booter, func(o *Options) {
		o.Secure = true
		o.Fetcher = fetcher
	})

	err := c.RunURL(context.Background(), "  http://example.com/game.js ")
	if !errors.Is(err, ErrMixedContent) {
		t.Fatalf("err = %v, want ErrMixedContent", err)
	}
	if fetcher.calls != 0 || booter.count() != 0 {
		t.Errorf("fetch calls = %d, boots = %d, want none", fetcher.calls, booter.count())
	}
	if !hasLine(ui, bridge.LevelError, "mixed content") {
		t.Errorf("missing error line: %v", ui.Lines())
	}
}

func TestRunURLEmpty(t *testing.T) {
	booter := &fakeBooter{sendReady: true}
	c, ui := newTestController(t, booter, nil)

	if err := c.RunURL(context.Background(), "   "); !errors.Is(err, ErrNoSource) {
		t.Fatalf("err = %v, want ErrNoSource", err)
	}
	if !hasLine(ui, bridge.LevelWarn, "enter a URL") {
		t.Errorf("missing warning: %v", ui.Lines())
	}
}

func TestRunURLHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	booter := &fakeBooter{sendReady: true}
	c, ui := newTestController(t, booter, func(o *Options) { o.Fetcher = NewHTTPFetcher(time.Second) })

	err := c.RunURL(context.Background(), srv.URL+"/missing.js")
	if err == nil || !strings.Contains(err.Error(), "HTTP 404 Not Found") {
		t.Fatalf("err = %v, want HTTP 404", err)
	}
	if !hasLine(ui, bridge.LevelError, "HTTP 404 Not Found") {
		t.Errorf("missing error line: %v", ui.Lines())
	}
	time.Sleep(10 * time.Millisecond)
	for _, m := range booter.last().received() {
		if m.Type == bridge.TypeRunCode {
			t.Fatal("runCode sent after HTTP error")
		}
	}
}

func TestRunURLSuccess(t *testing.T) {
	var cacheControl string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cacheControl = r.Header.Get("Cache-Control")
		io.WriteString(w, "const game = { update() {} };")
	}))
	defer srv.Close()

	booter := &fakeBooter{sendReady: true}
	c, ui := newTestController(t, booter, func(o *Options) { o.Fetcher = NewHTTPFetcher(time.Second) })

	url := srv.URL + "/g.js"
	if err := c.RunURL(context.Background(), url); err != nil {
		t.Fatalf("RunURL: %v", err)
	}
	if cacheControl != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", cacheControl)
	}
	waitFor(t, func() bool { return len(booter.last().received()) == 1 })
	if code := booter.last().received()[0].Code; !strings.HasSuffix(code, "\nexport default game;") {
		t.Errorf("code not normalized: %q", code)
	}
	if !hasLine(ui, bridge.LevelInfo, "fetch: "+url) || !hasLine(ui, bridge.LevelInfo, "run started (URL): "+url) {
		t.Errorf("missing lines: %v", ui.Lines())
	}
}

func TestRunSampleMissing(t *testing.T) {
	booter := &fakeBooter{sendReady: true}
	c, ui := newTestController(t, booter, func(o *Options) { o.SampleFS = fstest.MapFS{} })

	if err := c.RunSample(context.Background()); err == nil {
		t.Fatal("expected error for missing sample")
	}
	if !hasLine(ui, bridge.LevelError, "sample fetch failed") {
		t.Errorf("missing error line: %v", ui.Lines())
	}
}

func TestRunSampleEndToEnd(t *testing.T) {
	display := sandbox.NewDisplay()
	var mu sync.Mutex
	var buttons []string
	booter := &SandboxBooter{Options: sandbox.Options{Display: display, Logger: log.New(io.Discard)}}
	c, ui := newTestController(t, booter, func(o *Options) {
		o.OnButtons = func(names []string) {
			mu.Lock()
			buttons = names
			mu.Unlock()
		}
	})

	if err := c.RunSample(context.Background()); err != nil {
		t.Fatalf("RunSample: %v (log %v)", err, ui.Lines())
	}
	waitFor(t, func() bool {
		frame, _ := display.Frame()
		return frame != nil && frame.NonEmpty()
	})
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return strings.Join(buttons, ",") == "left,right,a,start"
	})
	if !hasLine(ui, bridge.LevelInfo, "run started: sample-game.js") {
		t.Errorf("missing start line: %v", ui.Lines())
	}
	for _, l := range ui.Lines() {
		if strings.Contains(l, "ERROR:") {
			t.Errorf("unexpected error: %s", l)
		}
	}
}

func TestRestart(t *testing.T) {
	booter := &fakeBooter{sendReady: true}
	c, ui := newTestController(t, booter, nil)

	if err := c.Restart(); err != nil {
		t.Fatal(err)
	}
	if ui.Status() != StatusIdle && ui.Status() != StatusReady {
		t.Errorf("status = %s", ui.Status())
	}
	if !hasLine(ui, bridge.LevelInfo, "restart") || booter.count() != 1 {
		t.Errorf("restart not logged or not booted: %v", ui.Lines())
	}
}

func TestGoReportsPanicsAndErrors(t *testing.T) {
	c, ui := newTestController(t, &fakeBooter{}, nil)

	c.Go(func() error { panic("boom") })
	c.Go(func() error { return errors.New("unexpected") })
	c.Go(func() error { return c.handled(errors.New("already shown")) })
	c.wg.Wait()

	if !hasLine(ui, bridge.LevelError, "GO PANIC: boom") {
		t.Errorf("panic not reported: %v", ui.Lines())
	}
	if !hasLine(ui, bridge.LevelError, "unexpected") {
		t.Errorf("error not reported: %v", ui.Lines())
	}
	if hasLine(ui, bridge.LevelError, "already shown") {
		t.Error("reported error logged twice")
	}
}

func TestSandboxLogsRelayed(t *testing.T) {
	booter := &fakeBooter{sendReady: true}
	c, ui := newTestController(t, booter, nil)
	if err := c.Boot(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, c.Ready)

	booter.last().ep.Send(bridge.Log("hello", ""))
	booter.last().ep.Send(bridge.Log("oops", bridge.LevelError))
	waitFor(t, func() bool { return hasLine(ui, bridge.LevelError, "oops") })
	if !hasLine(ui, bridge.LevelInfo, "hello") {
		t.Errorf("level default not applied: %v", ui.Lines())
	}
}

func TestSendVKey(t *testing.T) {
	booter := &fakeBooter{sendReady: true}
	c, _ := newTestController(t, booter, nil)
	c.SendVKey("z", true) // no session yet, dropped

	if err := c.Boot(); err != nil {
		t.Fatal(err)
	}
	c.SendVKey("z", true)
	waitFor(t, func() bool { return len(booter.last().received()) == 1 })
	if m := booter.last().received()[0]; m.Type != bridge.TypeVKey || m.Key != "z" || !m.Down {
		t.Errorf("sent %+v", m)
	}
}

func TestUIState(t *testing.T) {
	ui := NewUIState(nil)
	ui.now = func() time.Time { return time.Date(2024, 1, 1, 9, 5, 7, 0, time.UTC) }

	if ui.File() != NoFile {
		t.Errorf("File() = %q, want %q", ui.File(), NoFile)
	}
	ui.SetFile("game.js")
	if ui.File() != "game.js" {
		t.Errorf("File() = %q", ui.File())
	}

	var changes int
	ui.OnChange(func() { changes++ })
	ui.Log("hello", bridge.LevelWarn)
	if got := ui.Lines(); len(got) != 1 || got[0] != "[09:05:07] WARN: hello" {
		t.Errorf("Lines() = %v", got)
	}
	if changes != 1 {
		t.Errorf("changes = %d, want 1", changes)
	}

	for i := 0; i < maxLogLines+10; i++ {
		ui.Log("x", bridge.LevelInfo)
	}
	if n := len(ui.Lines()); n != maxLogLines {
		t.Errorf("log lines = %d, want capped at %d", n, maxLogLines)
	}
}
