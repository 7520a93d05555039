// Package path implements the `lockbook path` command group: resolving
// files by slash-separated path instead of id.
package path

import (
	"github.com/spf13/cobra"
)

// Cmd is the `path` command group, added to the root command.
var Cmd = &cobra.Command{
	Use:   "path",
	Short: "Resolve and list files by path",
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(linkCmd)
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(ofCmd)
	Cmd.AddCommand(listCmd)
}
