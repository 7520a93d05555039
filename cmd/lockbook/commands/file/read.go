package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/spf13/cobra"
)

var readOut string

var readCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Print a document's decrypted content",
	Long: `Decrypt and print a document's content to stdout, or to a file with --out.

Examples:
  lockbook file read 2f6a...
  lockbook file read 2f6a... --out notes.md`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() {
	readCmd.Flags().StringVarP(&readOut, "out", "o", "", "Write content to this path instead of stdout")
}

func runRead(cmd *cobra.Command, args []string) error {
	id, err := model.ParseFileID(args[0])
	if err != nil {
		return fmt.Errorf("invalid file id: %w", err)
	}

	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	content, err := lb.ReadDocument(context.Background(), id, false)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	if readOut == "" {
		_, err = io.Copy(os.Stdout, bytes.NewReader(content))
		return err
	}
	return os.WriteFile(readOut, content, 0o600)
}
