// Package file implements the `lockbook file` command group: creating,
// renaming, moving, deleting, listing, and reading/writing the content of
// individual files.
package file

import (
	"github.com/spf13/cobra"
)

// Cmd is the `file` command group, added to the root command.
var Cmd = &cobra.Command{
	Use:     "file",
	Aliases: []string{"f"},
	Short:   "Manage files and folders",
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(renameCmd)
	Cmd.AddCommand(moveCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(childrenCmd)
	Cmd.AddCommand(treeCmd)
	Cmd.AddCommand(infoCmd)
	Cmd.AddCommand(readCmd)
	Cmd.AddCommand(writeCmd)
}
