// Package random implements the subcommand that enriches a random taxon.
package random

import (
	"fmt"

	"github.com/spf13/cobra"

	"faunadex/internal/app"
	"faunadex/internal/conf"
	"faunadex/internal/output"
	"faunadex/internal/taxonomy"
)

// Command creates the random subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var rank string
	var includeSynonyms bool

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Enrich and display a randomly picked taxon",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer a.Close()

			enriched, err := a.Enrich.PickRandomEnriched(cmd.Context(), taxonomy.Filter{
				Rank:            rank,
				IncludeSynonyms: includeSynonyms,
			})
			if err != nil {
				return err
			}
			if enriched == nil {
				return fmt.Errorf("no taxon in the index satisfies the filter")
			}

			output.PrintEnriched(cmd.OutOrStdout(), enriched)
			return nil
		},
	}

	cmd.Flags().StringVar(&rank, "rank", "species", "Restrict the pick to a taxonomic rank (empty for any)")
	cmd.Flags().BoolVar(&includeSynonyms, "include-synonyms", false, "Allow synonym taxa to be picked")

	return cmd
}
