// Package cmdutil provides shared utilities for lockbook CLI commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"

	"github.com/lockbook/lockbook/internal/cli/output"
	"github.com/lockbook/lockbook/internal/cli/profile"
	"github.com/lockbook/lockbook/internal/cli/prompt"
	"github.com/lockbook/lockbook/pkg/config"
	"github.com/lockbook/lockbook/pkg/core"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	Profile string
	Output  string
	NoColor bool
	Verbose bool
}

// OpenCore opens the core handle for the current profile (or the one
// named by --profile), the entry point every subcommand but `account
// create`/`account import` needs.
func OpenCore() (*core.Lb, error) {
	store, err := profile.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to load CLI profile store: %w", err)
	}

	var p *profile.Profile
	if Flags.Profile != "" {
		p, err = store.Get(Flags.Profile)
	} else {
		p, err = store.Current()
	}
	if err != nil {
		return nil, fmt.Errorf("no account configured. Run 'lockbook account create' first")
	}

	cfg := config.Default()
	cfg.WriteablePath = p.DataDir
	cfg.APIURL = p.APIURL
	return core.Init(cfg)
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled returns whether color output is disabled.
func IsColorDisabled() bool {
	return Flags.NoColor
}

// PrintOutput prints data in the configured format. For table format, it
// displays emptyMsg if data is empty, otherwise it renders tableRenderer.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	printer := output.NewPrinter(os.Stdout, format, !IsColorDisabled())
	printer.Success(msg)
}

// BoolToYesNo converts a boolean to "yes" or "no" string.
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// HandleAbort checks if err is a prompt abort (Ctrl+C) and prints a
// message. Returns nil for abort (user cancelled), otherwise err itself.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}
