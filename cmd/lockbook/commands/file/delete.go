package file

import (
	"context"
	"fmt"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/internal/cli/prompt"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/spf13/cobra"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a file or folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip the confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := model.ParseFileID(args[0])
	if err != nil {
		return fmt.Errorf("invalid file id: %w", err)
	}

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete %s?", id), deleteForce)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	if !ok {
		fmt.Println("Aborted.")
		return nil
	}

	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	if err := lb.Delete(context.Background(), id); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Deleted %s", id))
	return nil
}
