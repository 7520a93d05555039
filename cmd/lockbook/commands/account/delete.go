package account

import (
	"fmt"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/internal/cli/profile"
	"github.com/lockbook/lockbook/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the local account",
	Long: `Wipe every locally persisted section of the current profile's account:
secrets, keychain, metadata, and document blobs. The account is not
deleted from the server and can be re-imported elsewhere.

Examples:
  lockbook account delete
  lockbook account delete --force`,
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip the confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	info, err := lb.GetAccount()
	if err != nil {
		return fmt.Errorf("failed to get account info: %w", err)
	}

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete local data for account %q? This cannot be undone locally", info.Username), deleteForce)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	if !ok {
		fmt.Println("Aborted.")
		return nil
	}

	if err := lb.DeleteAccount(); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	store, err := profile.NewStore()
	if err != nil {
		return fmt.Errorf("failed to load CLI profile store: %w", err)
	}
	name := cmdutil.Flags.Profile
	if name == "" {
		name = store.CurrentName()
	}
	if name != "" {
		if err := store.Delete(name); err != nil && err != profile.ErrProfileNotFound {
			return fmt.Errorf("failed to remove profile: %w", err)
		}
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Account %q deleted locally.", info.Username))
	return nil
}
