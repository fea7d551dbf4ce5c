// Package offline implements the forced-offline override subcommands.
package offline

import (
	"fmt"

	"github.com/spf13/cobra"

	"faunadex/internal/app"
	"faunadex/internal/conf"
)

// Command creates the offline subcommand controlling the persisted
// forced-offline override.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offline",
		Short: "Control the forced-offline override",
		Long:  "While forced offline, no network fetches are attempted; cached data is still served.",
	}
	cmd.AddCommand(
		setCommand(settings, "on", true, "Force offline mode on"),
		setCommand(settings, "off", false, "Force offline mode off"),
		statusCommand(settings),
	)
	return cmd
}

func setCommand(settings *conf.Settings, use string, forced bool, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Enrich.SetForcedOffline(forced); err != nil {
				return err
			}
			if forced {
				fmt.Fprintln(cmd.OutOrStdout(), "forced offline: on")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "forced offline: off")
			}
			return nil
		},
	}
}

func statusCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current override state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Enrich.ForcedOffline() {
				fmt.Fprintln(cmd.OutOrStdout(), "forced offline: on")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "forced offline: off")
			}
			return nil
		},
	}
}
