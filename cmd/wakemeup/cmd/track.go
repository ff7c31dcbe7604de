package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/wake-me-up/internal/service/tracker"
)

var (
	// headless logs progress instead of showing the tracking view.
	headless bool
	// listenAddress overrides the control address for the tracker.
	listenAddress string

	// trackCmd tracks one saved destination.
	trackCmd = &cobra.Command{
		Use:   "track <location>",
		Short: "Track a saved location and ring the alarm on arrival.",
		Long: `Starts a tracking session for the saved location given by id or name.

The session asks for location permission, follows the position feed and
triggers the alarm once the distance to the destination drops to the
location's radius. The alarm repeats until it is acknowledged; a snooze
silences it for the configured duration and re-arms the geofence.

While the session runs it serves the control API, so "wakemeup status",
"ack", "snooze" and "stop" work from another terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tracker.Run(cmd.Context(), &tracker.Options{
				ConfigPath:    configPath,
				Location:      args[0],
				LogLevel:      logLevel,
				ListenAddress: listenAddress,
				Headless:      headless,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	trackCmd.Flags().BoolVar(&headless, "headless", false, "log progress instead of showing the tracking view")
	trackCmd.Flags().StringVarP(&listenAddress, "listen", "l", "", "control API listen address (overrides configuration)")

	rootCmd.AddCommand(trackCmd)
}
