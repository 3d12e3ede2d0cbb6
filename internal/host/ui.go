package host

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-player/internal/bridge"
)

// Status is the host's coarse state label.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusBooting Status = "booting"
	StatusReady   Status = "ready"
	StatusRunning Status = "running"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
)

// LogSink receives user-facing log lines.
type LogSink interface {
	Log(msg string, level bridge.Level)
}

// StatusDisplay shows the current status label.
type StatusDisplay interface {
	SetStatus(Status)
}

// NoFile is shown when no local file is selected.
const NoFile = "(none)"

const maxLogLines = 500

// UIState is the host-side state shown to the user: the log panel, the
// status label and the selected file name. It is safe for concurrent use.
type UIState struct {
	mu       sync.Mutex
	lines    []string
	status   Status
	file     string
	logger   *log.Logger
	now      func() time.Time
	onChange func()
}

// NewUIState creates an idle UI state. Every log line is mirrored to logger
// when it is non-nil.
func NewUIState(logger *log.Logger) *UIState {
	return &UIState{status: StatusIdle, logger: logger, now: time.Now}
}

// OnChange registers a callback run after every mutation.
func (u *UIState) OnChange(fn func()) {
	u.mu.Lock()
	u.onChange = fn
	u.mu.Unlock()
}

func (u *UIState) changed() {
	u.mu.Lock()
	fn := u.onChange
	u.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// FormatLine renders a log line as "[15:04:05] LEVEL: msg".
func FormatLine(at time.Time, level bridge.Level, msg string) string {
	if level == "" {
		level = bridge.LevelInfo
	}
	return fmt.Sprintf("[%s] %s: %s", at.Format("15:04:05"), strings.ToUpper(string(level)), msg)
}

// Log implements LogSink.
func (u *UIState) Log(msg string, level bridge.Level) {
	u.mu.Lock()
	u.lines = append(u.lines, FormatLine(u.now(), level, msg))
	if len(u.lines) > maxLogLines {
		u.lines = append([]string(nil), u.lines[len(u.lines)-maxLogLines:]...)
	}
	u.mu.Unlock()

	if u.logger != nil {
		switch level {
		case bridge.LevelError:
			u.logger.Error(msg)
		case bridge.LevelWarn:
			u.logger.Warn(msg)
		default:
			u.logger.Info(msg)
		}
	}
	u.changed()
}

// SetStatus implements StatusDisplay.
func (u *UIState) SetStatus(s Status) {
	u.mu.Lock()
	u.status = s
	u.mu.Unlock()
	u.changed()
}

// SetFile records the selected local file name.
func (u *UIState) SetFile(name string) {
	u.mu.Lock()
	u.file = name
	u.mu.Unlock()
	u.changed()
}

// Status returns the current status label.
func (u *UIState) Status() Status {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status
}

// File returns the selected file name, or NoFile.
func (u *UIState) File() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.file == "" {
		return NoFile
	}
	return u.file
}

// Lines returns a copy of the log panel.
func (u *UIState) Lines() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.lines...)
}
