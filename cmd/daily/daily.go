// Package daily implements the taxon-of-the-day subcommand.
package daily

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"faunadex/internal/app"
	"faunadex/internal/conf"
	"faunadex/internal/output"
	"faunadex/internal/taxonomy"
)

// Command creates the daily subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var rank string
	var dateArg string

	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Enrich and display the taxon of the day",
		Long:  "The pick is deterministic per calendar date: running the command again on the same day shows the same taxon.",
		RunE: func(cmd *cobra.Command, args []string) error {
			date := time.Now()
			if dateArg != "" {
				parsed, err := time.Parse("2006-01-02", dateArg)
				if err != nil {
					return fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", dateArg, err)
				}
				date = parsed
			}

			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer a.Close()

			enriched, err := a.Enrich.PickOfTheDay(cmd.Context(), date, taxonomy.Filter{Rank: rank})
			if err != nil {
				return err
			}
			if enriched == nil {
				return fmt.Errorf("no taxon in the index satisfies the filter")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Taxon of the day for %s\n\n", date.Format("2006-01-02"))
			output.PrintEnriched(cmd.OutOrStdout(), enriched)
			return nil
		},
	}

	cmd.Flags().StringVar(&rank, "rank", "species", "Restrict the pick to a taxonomic rank (empty for any)")
	cmd.Flags().StringVar(&dateArg, "date", "", "Pick for a specific date (YYYY-MM-DD) instead of today")

	return cmd
}
