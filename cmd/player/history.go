package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/tui-player/internal/platform/tui"
	"github.com/vovakirdan/tui-player/internal/storage"
)

var (
	flagLimit int
	flagPlain bool
	flagClear   bool
	flagSession string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent run attempts",
	Long: `Display recorded run attempts: where each script came from and
whether it started, was rejected, failed or timed out. On a terminal the
history opens in a browser grouped by origin; --plain prints a table.

Examples:
  player history
  player history --limit 20 --plain
  player history --session 3f0c8a52-...
  player history --clear`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagLimit, "limit", 50, "Maximum number of runs to show")
	historyCmd.Flags().BoolVar(&flagPlain, "plain", false, "Print a plain table instead of the browser")
	historyCmd.Flags().BoolVar(&flagClear, "clear", false, "Delete the whole history")
	historyCmd.Flags().StringVar(&flagSession, "session", "", "Only show runs of one sandbox session (implies --plain)")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if flagClear {
		if err := store.ClearRuns(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
		return nil
	}

	fd := int(os.Stdout.Fd())
	if flagSession == "" && !flagPlain && term.IsTerminal(fd) {
		width, height, sizeErr := term.GetSize(fd)
		if sizeErr != nil {
			width, height = 80, 24
		}
		return tui.RunHistory(ctx, store, flagLimit, width, height)
	}
	return printHistory(ctx, cmd, store)
}

func printHistory(ctx context.Context, cmd *cobra.Command, store *storage.Store) error {
	out := cmd.OutOrStdout()

	var (
		runs []storage.Run
		err  error
	)
	if flagSession != "" {
		runs, err = store.SessionRuns(ctx, flagSession)
	} else {
		runs, err = store.RecentRuns(ctx, flagLimit)
	}
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		if flagSession != "" {
			fmt.Fprintf(out, "No runs recorded for session %s.\n", flagSession)
			return nil
		}
		fmt.Fprintln(out, "No runs recorded yet.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Start one with 'player play'.")
		return nil
	}

	row := "  %-16s  %-8s  %-6s  %-8s  %s\n"
	fmt.Fprintf(out, row, "Date", "Session", "Origin", "Outcome", "Source")
	fmt.Fprintf(out, row, "----", "-------", "------", "-------", "------")
	for _, r := range runs {
		source := r.Source
		if r.Detail != "" {
			source += " (" + r.Detail + ")"
		}
		fmt.Fprintf(out, row,
			r.CreatedAt.Format("2006-01-02 15:04"), shortID(r.SessionID), r.Origin, r.Outcome, source)
	}

	if last, err := store.LastRun(ctx); err == nil && last != nil && flagSession == "" {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Last run: %s %s (%s), session %s\n", last.Origin, last.Source, last.Outcome, last.SessionID)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
