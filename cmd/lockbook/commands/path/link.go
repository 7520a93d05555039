package path

import (
	"context"
	"fmt"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:   "link <path> <target-id>",
	Short: "Create a link at path resolving to target-id",
	Args:  cobra.ExactArgs(2),
	RunE:  runLink,
}

func runLink(cmd *cobra.Command, args []string) error {
	targetID, err := model.ParseFileID(args[1])
	if err != nil {
		return fmt.Errorf("invalid target id: %w", err)
	}

	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	md, err := lb.CreateLinkAtPath(context.Background(), args[0], targetID)
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Created link %s as %s", args[0], md.ID))
	return nil
}
