package account

import (
	"fmt"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var exportPhrase bool

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the account's private key",
	Long: `Print the loaded account's private key material so it can be
imported on another device with 'account import'.

Examples:
  lockbook account export
  lockbook account export --phrase`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&exportPhrase, "phrase", false, "Print a space-grouped phrase instead of the raw base64 key")
}

func runExport(cmd *cobra.Command, args []string) error {
	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	ok, err := prompt.Confirm("This will print your private key to the terminal. Continue?", false)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	if !ok {
		fmt.Println("Aborted.")
		return nil
	}

	if exportPhrase {
		phrase, err := lb.ExportAccountPhrase()
		if err != nil {
			return fmt.Errorf("failed to export account: %w", err)
		}
		fmt.Println(phrase)
		return nil
	}

	key, err := lb.ExportAccountPrivateKey()
	if err != nil {
		return fmt.Errorf("failed to export account: %w", err)
	}
	fmt.Println(key)
	return nil
}
