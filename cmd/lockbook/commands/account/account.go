// Package account implements the `lockbook account` command group:
// creating, importing, exporting, inspecting, and deleting the local
// account.
package account

import (
	"github.com/spf13/cobra"
)

// Cmd is the `account` command group, added to the root command.
var Cmd = &cobra.Command{
	Use:   "account",
	Short: "Manage the local Lockbook account",
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(importCmd)
	Cmd.AddCommand(exportCmd)
	Cmd.AddCommand(infoCmd)
	Cmd.AddCommand(deleteCmd)
}
