package path

import (
	"fmt"
	"os"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/internal/cli/output"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Resolve a path to its file metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	md, err := lb.GetByPath(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, md)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, md)
	default:
		return output.SimpleTable(os.Stdout, [][2]string{
			{"ID", md.ID.String()},
			{"Name", md.Name},
			{"Type", md.Type.String()},
		})
	}
}
