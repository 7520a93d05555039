// Package share implements the `lockbook share` command group: granting
// access to other accounts and managing incoming share invitations.
package share

import (
	"github.com/spf13/cobra"
)

// Cmd is the `share` command group, added to the root command.
var Cmd = &cobra.Command{
	Use:   "share",
	Short: "Share files and manage incoming shares",
}

func init() {
	Cmd.AddCommand(withCmd)
	Cmd.AddCommand(pendingCmd)
	Cmd.AddCommand(rejectCmd)
}
