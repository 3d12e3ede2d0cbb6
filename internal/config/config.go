// Package config provides YAML-based configuration for the player, with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config is the complete player configuration.
type Config struct {
	Sandbox SandboxConfig `yaml:"sandbox"`
	Host    HostConfig    `yaml:"host"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	SSH     SSHConfig     `yaml:"ssh"`
}

// SandboxConfig tunes the isolated runtime.
type SandboxConfig struct {
	FPS            int           `yaml:"fps" envconfig:"FPS"`
	MaxDT          float64       `yaml:"max_dt" envconfig:"MAX_DT"`                   // dt clamp in seconds
	CanvasWidth    int           `yaml:"canvas_width" envconfig:"CANVAS_WIDTH"`       // logical pixels
	CanvasHeight   int           `yaml:"canvas_height" envconfig:"CANVAS_HEIGHT"`     // logical pixels
	KeyHold        time.Duration `yaml:"key_hold" envconfig:"KEY_HOLD"`               // physical key hold after a press
	BeepsPerSecond float64       `yaml:"beeps_per_second" envconfig:"BEEPS_PER_SECOND"`
	ImageTimeout   time.Duration `yaml:"image_timeout" envconfig:"IMAGE_TIMEOUT"`
}

// HostConfig tunes the host controller.
type HostConfig struct {
	ReadyAttempts int           `yaml:"ready_attempts" envconfig:"READY_ATTEMPTS"`
	ReadyPoll     time.Duration `yaml:"ready_poll" envconfig:"READY_POLL"`
	Origin        string        `yaml:"origin" envconfig:"ORIGIN"` // the host's own address, for the mixed-content rule
	FetchTimeout  time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT"`
	SamplePath    string        `yaml:"sample_path" envconfig:"SAMPLE_PATH"`
}

// StorageConfig locates the run history database.
type StorageConfig struct {
	DBPath string `yaml:"db_path" envconfig:"DB_PATH"`
}

// LogConfig configures operational logging.
type LogConfig struct {
	Level string `yaml:"level" envconfig:"LEVEL"`
	File  string `yaml:"file" envconfig:"FILE"`
}

// SSHConfig configures the SSH server.
type SSHConfig struct {
	Address     string        `yaml:"address" envconfig:"ADDRESS"`
	HostKey     string        `yaml:"host_key" envconfig:"HOST_KEY"`
	IdleTimeout time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
}

// ReadyTimeout is the total readiness wait implied by attempts × poll.
func (h HostConfig) ReadyTimeout() time.Duration {
	return time.Duration(h.ReadyAttempts) * h.ReadyPoll
}

// Secure reports whether the host origin uses a secure transport, which
// forbids loading plain-HTTP scripts.
func (h HostConfig) Secure() bool {
	u, err := url.Parse(h.Origin)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "https", "ssh":
		return true
	}
	return false
}

// Validate rejects configurations the runtime cannot honor.
func (c Config) Validate() error {
	var errs []error
	if c.Sandbox.FPS <= 0 || c.Sandbox.FPS > 240 {
		errs = append(errs, fmt.Errorf("sandbox.fps must be in 1..240, got %d", c.Sandbox.FPS))
	}
	if c.Sandbox.MaxDT <= 0 {
		errs = append(errs, fmt.Errorf("sandbox.max_dt must be positive, got %v", c.Sandbox.MaxDT))
	}
	if c.Sandbox.CanvasWidth <= 0 || c.Sandbox.CanvasHeight <= 0 {
		errs = append(errs, fmt.Errorf("sandbox canvas size must be positive, got %dx%d",
			c.Sandbox.CanvasWidth, c.Sandbox.CanvasHeight))
	}
	if c.Sandbox.KeyHold <= 0 {
		errs = append(errs, errors.New("sandbox.key_hold must be positive"))
	}
	if c.Host.ReadyAttempts <= 0 {
		errs = append(errs, fmt.Errorf("host.ready_attempts must be positive, got %d", c.Host.ReadyAttempts))
	}
	if c.Host.ReadyPoll <= 0 {
		errs = append(errs, errors.New("host.ready_poll must be positive"))
	}
	if c.Host.SamplePath == "" {
		errs = append(errs, errors.New("host.sample_path must be set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}
