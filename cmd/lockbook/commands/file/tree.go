package file

import (
	"fmt"
	"os"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree <id>",
	Short: "List id and every descendant",
	Args:  cobra.ExactArgs(1),
	RunE:  runTree,
}

func runTree(cmd *cobra.Command, args []string) error {
	id, err := model.ParseFileID(args[0])
	if err != nil {
		return fmt.Errorf("invalid file id: %w", err)
	}

	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	metas, err := lb.GetAndGetChildrenRecursively(id)
	if err != nil {
		return fmt.Errorf("failed to walk tree: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, metas, len(metas) == 0, "No files found.", metadataTable(metas))
}
