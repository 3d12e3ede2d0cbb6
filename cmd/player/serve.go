package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-player/internal/platform/tui"
)

var (
	flagSSHAddr     string
	flagHostKey     string
	flagIdleTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the player SSH server",
	Long: `Start an SSH server that gives every connection its own player
session: a separate host controller and sandbox, starting with the sample
game. Script URLs must use https in SSH sessions.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.player/host_key

Examples:
  player serve                           # Listen on the configured address
  player serve --ssh :2222               # Listen on port 2222
  player serve --host-key ./my_host_key  # Use specific host key

Users can connect with:
  ssh localhost -p 23235`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "SSH server address (host:port)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (auto-generated if not specified)")
	serveCmd.Flags().DurationVar(&flagIdleTimeout, "idle-timeout", 0, "Idle timeout before disconnecting")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("ssh") {
		cfg.SSH.Address = flagSSHAddr
	}
	if flags.Changed("host-key") {
		cfg.SSH.HostKey = flagHostKey
	}
	if flags.Changed("idle-timeout") {
		cfg.SSH.IdleTimeout = flagIdleTimeout
	}

	logger, cleanup, err := newLogger(cfg.Log, "player-ssh", false)
	if err != nil {
		return err
	}
	defer cleanup()

	store := openStore(cfg.Storage, logger)
	if store != nil {
		defer store.Close()
	}

	server, err := tui.NewSSHServer(cfg.SSH, tui.Deps{Config: cfg, Store: store, Logger: logger})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	fmt.Printf("Starting player SSH server on %s\n", server.Addr())
	fmt.Println("Press Ctrl+C to stop")

	return server.ListenAndServe()
}
