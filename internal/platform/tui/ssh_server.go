package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/tui-player/internal/config"
)

// SSHServer serves one player per SSH session through Wish. Every session
// gets its own host controller and sandbox.
type SSHServer struct {
	config config.SSHConfig
	deps   Deps
	server *ssh.Server
	logger *log.Logger
}

// NewSSHServer creates a new SSH server. deps.Store is shared by all
// sessions and stays owned by the caller.
func NewSSHServer(cfg config.SSHConfig, deps Deps) (*SSHServer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "player-ssh",
		})
		deps.Logger = logger
	}

	srv := &SSHServer{
		config: cfg,
		deps:   deps,
		logger: logger,
	}

	hostKeyPath, err := resolveHostKey(cfg.HostKey)
	if err != nil {
		return nil, err
	}

	server, err := wish.NewServer(
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// resolveHostKey expands path, defaulting to ~/.player/host_key, and makes
// sure its directory exists. Wish generates the key on first start.
func resolveHostKey(path string) (string, error) {
	if path == "" {
		path = "~/.player/host_key"
	}
	path, err := config.ExpandHome(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("cannot create host key directory: %w", err)
	}
	return path, nil
}

// teaHandler creates a player and its Bubble Tea model for each SSH session.
func (s *SSHServer) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sess.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sess.User())
		return nil, nil
	}

	deps := s.deps
	deps.Logger = s.logger.With("user", sess.User(), "remote", sess.RemoteAddr().String())

	// The session is the origin; ssh counts as secure for URL loading.
	player := NewPlayer(deps, sess, true)
	go func() {
		<-sess.Context().Done()
		player.Close()
	}()

	painter := NewPainter(bubbletea.MakeRenderer(sess))
	model := NewModel(player, Source{}, painter, pty.Window.Width, pty.Window.Height)

	return model, []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	}
}

// loggingMiddleware records each session's lifetime.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		logger := s.logger.With("user", sess.User(), "remote", sess.RemoteAddr().String())
		start := time.Now()
		logger.Info("session opened")
		next(sess)
		logger.Info("session closed", "duration", time.Since(start).Round(time.Second))
	}
}

// ListenAndServe serves until SIGINT/SIGTERM or a listener failure.
func (s *SSHServer) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.logger.Info("serving player over SSH", "address", s.config.Address)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, ssh.ErrServerClosed) {
			return nil
		}
		s.logger.Error("ssh listener failed", "error", err)
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		return s.Shutdown()
	}
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}
