package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/wake-me-up/internal/service/onboarding"
	"github.com/oshokin/wake-me-up/internal/service/setup"
)

var (
	// force overwrites an existing settings file.
	force bool

	// configCmd groups the settings-file commands.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file.",
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file.",
		Long: `Writes the default settings to the configuration file. An existing file is
left untouched unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return setup.Run(cmd.Context(), &setup.Options{
				ConfigPath: configPath,
				Force:      force,
				Out:        cmd.OutOrStdout(),
			})
		},
	}

	// settingsCmd is where location permission and the location service
	// switch are changed.
	settingsCmd = &cobra.Command{
		Use:   "settings",
		Short: "Open the configuration file in the desktop editor.",
		Long: `Opens the configuration file, creating it first if needed. Location permission
and the location service switch live under the "position" section; a running
tracker picks up the change on its next re-check.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return setup.Run(cmd.Context(), &setup.Options{
				ConfigPath: configPath,
				Open:       true,
				Out:        cmd.OutOrStdout(),
			})
		},
	}

	onboardingCmd = &cobra.Command{
		Use:   "onboarding",
		Short: "Show the introduction again.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onboarding.Run(cmd.Context(), &onboarding.Options{
				ConfigPath: configPath,
				Force:      true,
				Out:        cmd.OutOrStdout(),
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	configInitCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd, settingsCmd, onboardingCmd)
}
