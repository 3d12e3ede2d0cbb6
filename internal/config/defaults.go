package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/player.yaml
var defaultPlayerYAML []byte

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Sandbox: SandboxConfig{
			FPS:            60,
			MaxDT:          0.1,
			CanvasWidth:    480,
			CanvasHeight:   360,
			KeyHold:        150 * time.Millisecond,
			BeepsPerSecond: 8,
			ImageTimeout:   10 * time.Second,
		},
		Host: HostConfig{
			ReadyAttempts: 40,
			ReadyPoll:     50 * time.Millisecond,
			Origin:        "file://localhost",
			FetchTimeout:  15 * time.Second,
			SamplePath:    "samples/sample-game.js",
		},
		Storage: StorageConfig{
			DBPath: "~/.player/history.db",
		},
		Log: LogConfig{
			Level: "info",
			File:  "~/.player/player.log",
		},
		SSH: SSHConfig{
			Address:     ":23235",
			IdleTimeout: 30 * time.Minute,
		},
	}
}
