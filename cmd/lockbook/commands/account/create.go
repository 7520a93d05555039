package account

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/internal/cli/profile"
	"github.com/lockbook/lockbook/internal/cli/prompt"
	"github.com/lockbook/lockbook/pkg/config"
	"github.com/lockbook/lockbook/pkg/core"
	"github.com/spf13/cobra"
)

var (
	createAPIURL  string
	createProfile string
)

var createCmd = &cobra.Command{
	Use:   "create [username]",
	Short: "Create a new Lockbook account",
	Long: `Register a new username with the server, generate an account keypair,
and store it under a new CLI profile.

Examples:
  lockbook account create alice
  lockbook account create alice --api-url https://api.example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createAPIURL, "api-url", "https://api.prod.lockbook.net", "Lockbook server to register with")
	createCmd.Flags().StringVar(&createProfile, "profile", "", "Profile name to store this account under (defaults to the username)")
}

func runCreate(cmd *cobra.Command, args []string) error {
	username := ""
	if len(args) == 1 {
		username = args[0]
	} else {
		var err error
		username, err = prompt.InputRequired("Username")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	profileName := createProfile
	if profileName == "" {
		profileName = username
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
	cfg.APIURL = createAPIURL
	lb, err := core.Init(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize local store: %w", err)
	}
	defer func() { _ = lb.Close() }()

	if err := lb.CreateAccount(context.Background(), username, createAPIURL); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	if err := store.Set(profileName, &profile.Profile{DataDir: dataDir, APIURL: createAPIURL}); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	if err := store.Use(profileName); err != nil {
		return fmt.Errorf("failed to select profile: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Account %q created and selected as profile %q.", username, profileName))
	return nil
}

func defaultDataDir(profileName string) (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "lockbook", profileName), nil
}
