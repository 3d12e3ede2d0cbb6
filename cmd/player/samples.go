package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-player/internal/registry"
)

var samplesCmd = &cobra.Command{
	Use:   "samples [id]",
	Short: "List bundled sample games",
	Long: `Shows the sample games bundled with the player. With an id, prints
that sample's source so it can be saved and edited.

Examples:
  player samples
  player samples input-test > input-test.js`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSamples,
}

func runSamples(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		text, err := registry.Source(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(out, text)
		return nil
	}

	samples := registry.List()
	if len(samples) == 0 {
		fmt.Fprintln(out, "No samples available.")
		return nil
	}

	fmt.Fprintln(out, "Bundled samples:")
	fmt.Fprintln(out)

	maxIDLen := 2
	for _, s := range samples {
		maxIDLen = max(maxIDLen, len(s.ID))
	}

	fmt.Fprintf(out, "  %-*s  %s\n", maxIDLen, "ID", "Title")
	fmt.Fprintf(out, "  %-*s  %s\n", maxIDLen, "--", "-----")
	for _, s := range samples {
		marker := ""
		if s.ID == registry.DefaultSample {
			marker = " (default)"
		}
		fmt.Fprintf(out, "  %-*s  %s%s\n", maxIDLen, s.ID, s.Title, marker)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Run 'player play --sample' to play the default sample.")
	return nil
}
