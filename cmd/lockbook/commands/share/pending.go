package share

import (
	"context"
	"fmt"
	"os"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/internal/cli/output"
	"github.com/lockbook/lockbook/pkg/core"
	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List incoming shares not yet accepted",
	RunE:  runPending,
}

func runPending(cmd *cobra.Command, args []string) error {
	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	shares, err := lb.GetPendingShares(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get pending shares: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, shares, len(shares) == 0, "No pending shares.", pendingTable(shares))
}

type pendingTable []*core.PendingShare

func (t pendingTable) Headers() []string {
	return []string{"ID", "Name", "Shared By", "Mode"}
}

func (t pendingTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, s := range t {
		rows = append(rows, []string{s.ID.String(), s.Name, s.SharedBy, s.Mode.String()})
	}
	return rows
}

var _ output.TableRenderer = pendingTable(nil)
