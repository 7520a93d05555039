package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/internal/cli/output"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show account sync status",
	Long: `Display whether this account has unpushed local changes, unpulled
remote changes, and pending incoming shares.

Examples:
  lockbook status`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	status, err := lb.Status(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		return output.SimpleTable(os.Stdout, [][2]string{
			{"Username", status.Username},
			{"Last synced", lb.GetLastSyncedHuman()},
			{"Remote work pending", cmdutil.BoolToYesNo(status.HasRemoteWork)},
			{"Local work pending", cmdutil.BoolToYesNo(status.HasLocalWork)},
			{"Pending shares", fmt.Sprintf("%d", status.PendingShares)},
		})
	}
}
