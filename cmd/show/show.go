// Package show implements the subcommand that enriches one named taxon.
package show

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"faunadex/internal/app"
	"faunadex/internal/conf"
	"faunadex/internal/enrich"
	"faunadex/internal/output"
)

// Command creates the show subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var withImage bool

	cmd := &cobra.Command{
		Use:   "show [taxon id or scientific name]",
		Short: "Enrich and display a single taxon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			var enriched *enrich.EnrichedTaxon
			if id, convErr := strconv.ParseUint(args[0], 10, 32); convErr == nil {
				enriched, err = a.Enrich.GetEnrichedByID(ctx, uint(id))
			} else {
				enriched, err = a.Enrich.GetEnrichedByName(ctx, args[0])
			}
			if err != nil {
				return err
			}
			if enriched == nil {
				return fmt.Errorf("no taxon found for %q", args[0])
			}

			output.PrintEnriched(cmd.OutOrStdout(), enriched)

			if withImage {
				path, err := a.Enrich.ResolveImage(ctx, enriched)
				if err != nil {
					return err
				}
				if path != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "\nImage: %s\n", path)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withImage, "image", false, "Download the primary photo and print its local path")

	return cmd
}
