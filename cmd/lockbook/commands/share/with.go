package share

import (
	"context"
	"fmt"
	"strings"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/spf13/cobra"
)

var shareMode string

var withCmd = &cobra.Command{
	Use:   "with <id> <username>",
	Short: "Share a file with another account",
	Long: `Grant username access to id.

Examples:
  lockbook share with 2f6a... alice
  lockbook share with 2f6a... alice --mode write`,
	Args: cobra.ExactArgs(2),
	RunE: runWith,
}

func init() {
	withCmd.Flags().StringVar(&shareMode, "mode", "read", "Access level to grant: read or write")
}

func runWith(cmd *cobra.Command, args []string) error {
	id, err := model.ParseFileID(args[0])
	if err != nil {
		return fmt.Errorf("invalid file id: %w", err)
	}
	mode, err := parseMode(shareMode)
	if err != nil {
		return err
	}

	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	if err := lb.ShareFile(context.Background(), id, args[1], mode); err != nil {
		return fmt.Errorf("failed to share file: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Shared %s with %s (%s)", id, args[1], mode))
	return nil
}

func parseMode(s string) (model.AccessMode, error) {
	switch strings.ToLower(s) {
	case "read":
		return model.Read, nil
	case "write":
		return model.Write, nil
	default:
		return model.NoAccess, fmt.Errorf("unknown access mode %q, expected read or write", s)
	}
}
