package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/tui-player/internal/platform/tui"
)

var (
	flagFile   string
	flagURL    string
	flagSample bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Run a game script",
	Long: `Run a game script in an isolated sandbox. Without a source flag the
bundled sample game runs.

Controls:
  Arrows, z x q w, Enter   - Game keys (Shift+key also holds Shift)
  Mouse                    - Virtual gamepad and canvas pointer
  Ctrl+O                   - Open a local .js file
  Ctrl+U                   - Load a script from a URL
  Ctrl+S                   - Run the sample game
  Ctrl+R                   - Restart the sandbox
  Ctrl+C                   - Quit

Examples:
  player play
  player play --file ./game.js
  player play --url https://example.com/game.js`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&flagFile, "file", "", "Local .js file to run")
	playCmd.Flags().StringVar(&flagURL, "url", "", "URL of a script to run")
	playCmd.Flags().BoolVar(&flagSample, "sample", false, "Run the bundled sample game")
	playCmd.MarkFlagsMutuallyExclusive("file", "url", "sample")
}

func runPlay(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("play needs an interactive terminal")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, cleanup, err := newLogger(cfg.Log, "player", true)
	if err != nil {
		return err
	}
	defer cleanup()

	store := openStore(cfg.Storage, logger)
	if store != nil {
		defer store.Close()
	}

	width, height := 80, 24
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width, height = w, h
	}

	src := tui.Source{File: flagFile, URL: flagURL}
	deps := tui.Deps{Config: cfg, Store: store, Logger: logger}
	if err := tui.Run(deps, src, width, height); err != nil {
		return fmt.Errorf("running player: %w", err)
	}
	return nil
}
