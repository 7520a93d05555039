package file

import (
	"fmt"
	"os"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/internal/cli/output"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List every file visible to this account",
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	metas, err := lb.ListMetadatas()
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, metas, len(metas) == 0, "No files found.", metadataTable(metas))
}

var _ output.TableRenderer = metadataTable(nil)
