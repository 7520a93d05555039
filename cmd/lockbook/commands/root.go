// Package commands implements the CLI commands for the lockbook client.
package commands

import (
	accountcmd "github.com/lockbook/lockbook/cmd/lockbook/commands/account"
	filecmd "github.com/lockbook/lockbook/cmd/lockbook/commands/file"
	pathcmd "github.com/lockbook/lockbook/cmd/lockbook/commands/path"
	sharecmd "github.com/lockbook/lockbook/cmd/lockbook/commands/share"
	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "lockbook",
	Short: "Lockbook - end-to-end-encrypted notes and files",
	Long: `lockbook is the command-line client for a Lockbook account: a private,
end-to-end-encrypted file system synced across every device you use it on.

Use "lockbook [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.Profile, _ = cmd.Flags().GetString("profile")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("profile", "", "Profile name (overrides the current profile)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(accountcmd.Cmd)
	rootCmd.AddCommand(filecmd.Cmd)
	rootCmd.AddCommand(pathcmd.Cmd)
	rootCmd.AddCommand(sharecmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
