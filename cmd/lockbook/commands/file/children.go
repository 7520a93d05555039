package file

import (
	"fmt"
	"os"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/spf13/cobra"
)

var childrenCmd = &cobra.Command{
	Use:   "children <id>",
	Short: "List the direct children of a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runChildren,
}

func runChildren(cmd *cobra.Command, args []string) error {
	id, err := model.ParseFileID(args[0])
	if err != nil {
		return fmt.Errorf("invalid file id: %w", err)
	}

	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	metas, err := lb.GetChildren(id)
	if err != nil {
		return fmt.Errorf("failed to get children: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, metas, len(metas) == 0, "No children found.", metadataTable(metas))
}
