package path

import (
	"fmt"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/spf13/cobra"
)

var ofCmd = &cobra.Command{
	Use:   "of <id>",
	Short: "Render a single file's full path",
	Args:  cobra.ExactArgs(1),
	RunE:  runOf,
}

func runOf(cmd *cobra.Command, args []string) error {
	id, err := model.ParseFileID(args[0])
	if err != nil {
		return fmt.Errorf("invalid file id: %w", err)
	}

	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	p, err := lb.GetPathByID(id)
	if err != nil {
		return fmt.Errorf("failed to get path: %w", err)
	}

	fmt.Println(p)
	return nil
}
