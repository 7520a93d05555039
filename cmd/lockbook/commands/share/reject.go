package share

import (
	"fmt"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/spf13/cobra"
)

var rejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending incoming share",
	Args:  cobra.ExactArgs(1),
	RunE:  runReject,
}

func runReject(cmd *cobra.Command, args []string) error {
	id, err := model.ParseFileID(args[0])
	if err != nil {
		return fmt.Errorf("invalid file id: %w", err)
	}

	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	if err := lb.RejectShare(id); err != nil {
		return fmt.Errorf("failed to reject share: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Rejected share on %s", id))
	return nil
}
