package file

import (
	"context"
	"fmt"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/spf13/cobra"
)

var moveCmd = &cobra.Command{
	Use:   "move <id> <new-parent-id>",
	Short: "Move a file or folder to a new parent",
	Args:  cobra.ExactArgs(2),
	RunE:  runMove,
}

func runMove(cmd *cobra.Command, args []string) error {
	id, err := model.ParseFileID(args[0])
	if err != nil {
		return fmt.Errorf("invalid file id: %w", err)
	}
	newParentID, err := model.ParseFileID(args[1])
	if err != nil {
		return fmt.Errorf("invalid new parent id: %w", err)
	}

	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	if err := lb.MoveFile(context.Background(), id, newParentID); err != nil {
		return fmt.Errorf("failed to move file: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Moved %s to %s", id, newParentID))
	return nil
}
