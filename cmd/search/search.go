// Package search implements the local name search subcommand.
package search

import (
	"fmt"

	"github.com/spf13/cobra"

	"faunadex/internal/app"
	"faunadex/internal/conf"
	"faunadex/internal/output"
)

// Command creates the search subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the local taxonomy index by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer a.Close()

			taxa, err := a.Enrich.Search(args[0], limit)
			if err != nil {
				return err
			}
			if len(taxa) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matches")
				return nil
			}

			output.PrintTaxa(cmd.OutOrStdout(), taxa)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 25, "Maximum number of results")

	return cmd
}
