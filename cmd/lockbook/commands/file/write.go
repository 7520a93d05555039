package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/spf13/cobra"
)

var (
	writeIn   string
	writeSafe bool
	writeHMAC string
)

var writeCmd = &cobra.Command{
	Use:   "write <id>",
	Short: "Overwrite a document's content",
	Long: `Read new content from --in (or stdin) and write it to id.

Examples:
  lockbook file write 2f6a... --in notes.md
  echo "hi" | lockbook file write 2f6a...
  lockbook file write 2f6a... --in notes.md --safe --hmac <expected-hmac-hex>`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().StringVarP(&writeIn, "in", "i", "", "Read content from this path instead of stdin")
	writeCmd.Flags().BoolVar(&writeSafe, "safe", false, "Fail instead of overwriting if the document changed since --hmac")
	writeCmd.Flags().StringVar(&writeHMAC, "hmac", "", "Expected current content hmac (hex), required with --safe")
}

func runWrite(cmd *cobra.Command, args []string) error {
	id, err := model.ParseFileID(args[0])
	if err != nil {
		return fmt.Errorf("invalid file id: %w", err)
	}

	var content []byte
	if writeIn == "" {
		content, err = io.ReadAll(os.Stdin)
	} else {
		content, err = os.ReadFile(writeIn)
	}
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	ctx := context.Background()
	if writeSafe {
		expected, err := decodeHexHMAC(writeHMAC)
		if err != nil {
			return err
		}
		if err := lb.SafeWrite(ctx, id, expected, content); err != nil {
			return fmt.Errorf("failed to write document: %w", err)
		}
	} else {
		if err := lb.WriteDocument(ctx, id, content); err != nil {
			return fmt.Errorf("failed to write document: %w", err)
		}
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Wrote %d bytes to %s", len(content), id))
	return nil
}
