package file

import (
	"context"
	"fmt"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:   "rename <id> <new-name>",
	Short: "Rename a file or folder",
	Args:  cobra.ExactArgs(2),
	RunE:  runRename,
}

func runRename(cmd *cobra.Command, args []string) error {
	id, err := model.ParseFileID(args[0])
	if err != nil {
		return fmt.Errorf("invalid file id: %w", err)
	}

	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	if err := lb.RenameFile(context.Background(), id, args[1]); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Renamed %s to %q", id, args[1]))
	return nil
}
