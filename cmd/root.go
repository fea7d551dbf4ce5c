// Package cmd assembles the faunadex command-line interface.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"faunadex/cmd/cache"
	"faunadex/cmd/daily"
	"faunadex/cmd/offline"
	"faunadex/cmd/random"
	"faunadex/cmd/search"
	"faunadex/cmd/show"
	"faunadex/internal/conf"
	"faunadex/internal/logging"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "faunadex",
		Short: "Faunadex CLI - taxon enrichment from local index and public APIs",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		show.Command(settings),
		random.Command(settings),
		daily.Command(settings),
		search.Command(settings),
		cache.Command(settings),
		offline.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	// Flags are parsed after main set up logging; raise verbosity here if
	// --debug was given.
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if settings.Debug {
			logging.Init(slog.LevelDebug)
		}
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Taxonomy.Database, "taxonomy", settings.Taxonomy.Database, "Path to the taxonomy index database")
	rootCmd.PersistentFlags().StringVar(&settings.Cache.Database, "cache", settings.Cache.Database, "Path to the cache database")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}
	return nil
}
