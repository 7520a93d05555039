package account

import (
	"context"
	"fmt"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/internal/cli/profile"
	"github.com/lockbook/lockbook/internal/cli/prompt"
	"github.com/lockbook/lockbook/pkg/config"
	"github.com/lockbook/lockbook/pkg/core"
	"github.com/spf13/cobra"
)

var (
	importAPIURL  string
	importProfile string
)

var importCmd = &cobra.Command{
	Use:   "import [key]",
	Short: "Import an account exported from another device",
	Long: `Restore an account from a key previously produced by 'account export',
then sync down the account's full tree.

Examples:
  lockbook account import
  lockbook account import eyJ1c2VybmFtZSI6ImFsaWNlIn0=`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importAPIURL, "api-url", "", "Override the server the exported key points at")
	importCmd.Flags().StringVar(&importProfile, "profile", "", "Profile name to store this account under")
}

func runImport(cmd *cobra.Command, args []string) error {
	key := ""
	if len(args) == 1 {
		key = args[0]
	} else {
		var err error
		key, err = prompt.InputRequired("Account key")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	profileName := importProfile
	if profileName == "" {
		var err error
		profileName, err = prompt.InputRequired("Profile name")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	store, err := profile.NewStore()
	if err != nil {
		return fmt.Errorf("failed to load CLI profile store: %w", err)
	}
	if _, err := store.Get(profileName); err == nil {
		return fmt.Errorf("profile %q already exists", profileName)
	}

	dataDir, err := defaultDataDir(profileName)
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfg.WriteablePath = dataDir
	lb, err := core.Init(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize local store: %w", err)
	}
	defer func() { _ = lb.Close() }()

	if err := lb.ImportAccount(context.Background(), key, importAPIURL); err != nil {
		return fmt.Errorf("failed to import account: %w", err)
	}

	info, err := lb.GetAccount()
	if err != nil {
		return err
	}

	if err := store.Set(profileName, &profile.Profile{DataDir: dataDir, APIURL: info.APIURL}); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	if err := store.Use(profileName); err != nil {
		return fmt.Errorf("failed to select profile: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Account %q imported and selected as profile %q.", info.Username, profileName))
	return nil
}
