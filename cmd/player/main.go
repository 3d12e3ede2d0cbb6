// player runs sandboxed JavaScript game scripts in the terminal.
//
// Usage:
//
//	player play [--file path | --url URL | --sample]  - Run a game script
//	player samples [id]                               - List bundled samples or print one
//	player serve --ssh :23235                         - Serve players over SSH
//	player history [--limit N]                        - Show recent run attempts
//
// Global flags:
//
//	--config <path>     - Config file (default search: ~/.player/player.yaml, ./configs/player.yaml)
//	--db <path>         - Run history database
//	--fps <rate>        - Sandbox frame rate
//	--log-file <path>   - Operational log file for terminal sessions
//	--log-level <level> - debug, info, warn or error
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-player/internal/config"
	"github.com/vovakirdan/tui-player/internal/storage"
)

var (
	flagConfig   string
	flagDBPath   string
	flagFPS      int
	flagLogFile  string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "player",
	Short: "TUI Player - run sandboxed game scripts in your terminal",
	Long: `TUI Player loads small JavaScript games (ES modules with a default
export providing init/update/render) into an isolated runtime and shows
them in the terminal, with a mouse-driven virtual gamepad.

Available commands:
  play     - Run a local file, a URL or the bundled sample
  samples  - List bundled sample games
  serve    - Start SSH server for remote play
  history  - View recent run attempts

Examples:
  player play
  player play --file ./game.js
  player play --url https://example.com/game.js
  player serve --ssh :2222
  player history --limit 20`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config YAML")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to run history database")
	rootCmd.PersistentFlags().IntVar(&flagFPS, "fps", 0, "Sandbox frame rate (frames per second)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Operational log file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(samplesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("fps") {
		cfg.Sandbox.FPS = flagFPS
	}
	if flags.Changed("db") {
		cfg.Storage.DBPath = flagDBPath
	}
	if flags.Changed("log-file") {
		cfg.Log.File = flagLogFile
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = flagLogLevel
	}
	return cfg, cfg.Validate()
}

// newLogger builds the operational logger. Terminal sessions log to the
// configured file so output never lands on the alternate screen.
func newLogger(cfg config.LogConfig, prefix string, toFile bool) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}

	var w io.Writer = os.Stderr
	cleanup := func() {}
	if toFile {
		path, err := config.ExpandHome(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("cannot create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open log file: %w", err)
		}
		w = f
		cleanup = func() { f.Close() }
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
		Level:           level,
	})
	return logger, cleanup, nil
}

// openStore opens the run history, or returns nil so the player still works.
func openStore(cfg config.StorageConfig, logger *log.Logger) *storage.Store {
	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Warn("could not open run history", "error", err)
		return nil
	}
	return store
}
