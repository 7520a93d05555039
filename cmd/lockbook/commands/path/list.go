package path

import (
	"fmt"
	"os"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/internal/cli/output"
	"github.com/lockbook/lockbook/pkg/core"
	"github.com/spf13/cobra"
)

var listFilter string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every visible file's path",
	Long: `List paths for every file this account can see.

Examples:
  lockbook path list
  lockbook path list --filter documents
  lockbook path list --filter folders
  lockbook path list --filter leaves`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listFilter, "filter", "all", "One of: all, documents, folders, leaves")
}

func runList(cmd *cobra.Command, args []string) error {
	filter, err := parseFilter(listFilter)
	if err != nil {
		return err
	}

	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	paths, err := lb.ListPaths(filter)
	if err != nil {
		return fmt.Errorf("failed to list paths: %w", err)
	}

	if len(paths) == 0 {
		fmt.Println("No files found.")
		return nil
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	if format == output.FormatJSON {
		return output.PrintJSON(os.Stdout, paths)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

func parseFilter(s string) (core.PathFilter, error) {
	switch s {
	case "all", "":
		return core.FilterAll, nil
	case "documents":
		return core.FilterDocumentsOnly, nil
	case "folders":
		return core.FilterFoldersOnly, nil
	case "leaves":
		return core.FilterLeafNodesOnly, nil
	default:
		return 0, fmt.Errorf("unknown filter %q", s)
	}
}
