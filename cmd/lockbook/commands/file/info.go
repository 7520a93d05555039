package file

import (
	"fmt"
	"os"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/internal/cli/output"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <id>",
	Short: "Show a single file's metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	id, err := model.ParseFileID(args[0])
	if err != nil {
		return fmt.Errorf("invalid file id: %w", err)
	}

	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	md, err := lb.GetFileByID(id)
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
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
			{"Parent", md.ParentID.String()},
			{"Name", md.Name},
			{"Type", md.Type.String()},
			{"Owner", string(md.Owner)},
			{"Deleted", cmdutil.BoolToYesNo(md.Deleted)},
			{"Version", fmt.Sprintf("%d", md.Version)},
		})
	}
}
