package account

import (
	"fmt"
	"os"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/internal/cli/output"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the loaded account's username and server",
	Long: `Display the username and API URL the current profile is bound to.

Examples:
  lockbook account info`,
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	info, err := lb.GetAccount()
	if err != nil {
		return fmt.Errorf("failed to get account info: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, info)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, info)
	default:
		return output.SimpleTable(os.Stdout, [][2]string{
			{"Username", info.Username},
			{"API URL", info.APIURL},
		})
	}
}
