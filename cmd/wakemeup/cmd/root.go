package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/wake-me-up/internal/logger"
	"github.com/oshokin/wake-me-up/internal/service/onboarding"
	"github.com/oshokin/wake-me-up/internal/version"
)

var (
	// configPath to the configuration YAML file; empty selects the default one.
	configPath string
	// logLevel overrides the level from the settings.
	logLevel string

	// rootCmd represents the base command. Without a subcommand it shows the
	// first-run introduction and the usage.
	rootCmd = &cobra.Command{
		Use:   "wakemeup",
		Short: "Wake me up when I reach my stop.",
		Long: `Wake Me Up watches your position while you ride and rings an alarm when you
come within the chosen radius of a saved destination.

Save a stop with "wakemeup location add", then run "wakemeup track <stop>".
While tracking, the alarm can be acknowledged, snoozed or stopped from the
tracking view or from another terminal with "wakemeup ack|snooze|stop".`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := onboarding.Run(cmd.Context(), &onboarding.Options{
				ConfigPath: configPath,
				Out:        cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}

			return cmd.Help()
		},
	}
)

// Execute runs the wakemeup CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default is the user config directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the log level from the configuration file")
}
