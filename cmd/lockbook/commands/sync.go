package commands

import (
	"context"
	"fmt"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/pkg/core"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize with the server",
	Long: `Pull remote changes, merge them against pending local edits, and push
what's left, per the two-sided sync protocol.

Examples:
  lockbook sync`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	result, err := lb.Sync(context.Background(), func(e core.Event) {
		if cmdutil.Flags.Verbose {
			fmt.Printf("  %s\n", e.Message)
		}
	})
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	cmdutil.PrintSuccess("Sync complete.")
	fmt.Printf("  Pulled: %d files, %d documents\n", result.PulledFiles, result.PulledDocuments)
	fmt.Printf("  Pushed: %d files, %d documents\n", result.PushedFiles, result.PushedDocuments)
	if len(result.Forked) > 0 {
		fmt.Printf("  %d file(s) forked by a content conflict:\n", len(result.Forked))
		for _, id := range result.Forked {
			fmt.Printf("    %s\n", id)
		}
	}
	return nil
}
