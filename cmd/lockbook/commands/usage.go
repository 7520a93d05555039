package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/lockbook/lockbook/cmd/lockbook/cmdutil"
	"github.com/lockbook/lockbook/internal/cli/output"
	"github.com/spf13/cobra"
)

var (
	usageUncompressed bool
	usageCheck        bool
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show storage usage",
	Long: `Display how much of this account's storage cap is in use.

Examples:
  # Server-reported compressed usage
  lockbook usage

  # Sum of every document's decrypted size
  lockbook usage --uncompressed

  # Walk the local tree for structural damage instead
  lockbook usage --check`,
	RunE: runUsage,
}

func init() {
	usageCmd.Flags().BoolVar(&usageUncompressed, "uncompressed", false, "Report the sum of decrypted document sizes instead")
	usageCmd.Flags().BoolVar(&usageCheck, "check", false, "Run a local repo integrity check instead")
}

func runUsage(cmd *cobra.Command, args []string) error {
	lb, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer func() { _ = lb.Close() }()

	ctx := context.Background()

	if usageCheck {
		report, err := lb.TestRepoIntegrity(ctx)
		if err != nil {
			return fmt.Errorf("integrity check failed: %w", err)
		}
		format, err := cmdutil.GetOutputFormatParsed()
		if err != nil {
			return err
		}
		switch format {
		case output.FormatJSON:
			return output.PrintJSON(os.Stdout, report)
		case output.FormatYAML:
			return output.PrintYAML(os.Stdout, report)
		default:
			if len(report.Orphans) == 0 && len(report.UndecryptableNames) == 0 && len(report.MissingDocuments) == 0 {
				fmt.Println("No issues found.")
				return nil
			}
			if len(report.Orphans) > 0 {
				fmt.Printf("Orphaned files (%d): %v\n", len(report.Orphans), report.Orphans)
			}
			if len(report.UndecryptableNames) > 0 {
				fmt.Printf("Undecryptable names (%d): %v\n", len(report.UndecryptableNames), report.UndecryptableNames)
			}
			if len(report.MissingDocuments) > 0 {
				fmt.Printf("Missing document blobs (%d): %v\n", len(report.MissingDocuments), report.MissingDocuments)
			}
			return nil
		}
	}

	if usageUncompressed {
		total, err := lb.GetUncompressedUsage(ctx)
		if err != nil {
			return fmt.Errorf("failed to compute uncompressed usage: %w", err)
		}
		fmt.Printf("Uncompressed usage: %s\n", humanize.Bytes(total))
		return nil
	}

	usage, err := lb.GetUsage(ctx)
	if err != nil {
		return fmt.Errorf("failed to get usage: %w", err)
	}
	fmt.Printf("Usage: %s / %s\n", humanize.Bytes(usage.UsedBytes), humanize.Bytes(usage.CapBytes))
	return nil
}
