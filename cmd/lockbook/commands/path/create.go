package path

import (
	"context"
	"fmt"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <path>",
	Short: "Create every missing folder along a path, and a file at its end",
	Long: `Create a document or folder at path, creating any missing folders
along the way. A trailing slash creates a folder instead of a document.

Examples:
  lockbook path create journal/2026/july.md
  lockbook path create journal/2026/`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	md, err := lb.CreateAtPath(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to create path: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Created %s as %s", args[0], md.ID))
	return nil
}
