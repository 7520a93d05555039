package file

import (
	"context"
	"fmt"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/spf13/cobra"
)

var createAsFolder bool

var createCmd = &cobra.Command{
	Use:   "create <name> <parent-id>",
	Short: "Create a new file or folder",
	Long: `Create a new document or folder named name under parent-id.

Examples:
  lockbook file create notes.md 2f6a...
  lockbook file create Projects 2f6a... --folder`,
	Args: cobra.ExactArgs(2),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().BoolVar(&createAsFolder, "folder", false, "Create a folder instead of a document")
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	parentID, err := model.ParseFileID(args[1])
	if err != nil {
		return fmt.Errorf("invalid parent id: %w", err)
	}

	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	fileType := model.Document
	if createAsFolder {
		fileType = model.Folder
	}

	md, err := lb.CreateFile(context.Background(), name, parentID, fileType)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Created %s %q as %s", md.Type, md.Name, md.ID))
	return nil
}
