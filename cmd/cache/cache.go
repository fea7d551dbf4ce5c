// Package cache implements the cache maintenance subcommands.
package cache

import (
	"fmt"

	"github.com/spf13/cobra"

	"faunadex/internal/app"
	"faunadex/internal/conf"
)

// Command creates the cache subcommand with its maintenance actions.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the enrichment and media caches",
	}
	cmd.AddCommand(usageCommand(settings), clearCommand(settings))
	return cmd
}

func usageCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show media cache disk usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer a.Close()

			usage, err := a.Enrich.CacheUsageBytes()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "media cache: %s of %s used\n",
				formatBytes(usage), formatBytes(settings.Images.MaxBytes))
			return nil
		},
	}
}

func clearCommand(settings *conf.Settings) *cobra.Command {
	var includeRecords bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached media files",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Enrich.ClearImageCache(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "media cache cleared")

			if includeRecords {
				if err := a.Enrich.ClearEnrichmentCache(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "enrichment records cleared")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeRecords, "records", false, "Also remove cached provider records")

	return cmd
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
