package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/wake-me-up/internal/service/control"
)

// serverAddress overrides the control address the commands dial.
var serverAddress string

// controlCommand builds a command that sends action to the running tracker.
func controlCommand(action control.Action, use, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return control.Run(cmd.Context(), &control.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				Action:        action,
				Out:           cmd.OutOrStdout(),
			})
		},
	}
}

// snoozeCmd silences a triggered alarm.
var snoozeCmd = &cobra.Command{
	Use:   "snooze [duration]",
	Short: "Silence the alarm for a while.",
	Long: `Silences a triggered alarm. After the duration (default from the configuration,
60s out of the box) the geofence re-arms and the alarm rings again if you are
still inside the radius. Durations are rounded up to whole seconds.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var duration time.Duration

		if len(args) > 0 {
			parsed, err := time.ParseDuration(args[0])
			if err != nil {
				return err
			}

			duration = parsed
		}

		return control.Run(cmd.Context(), &control.Options{
			ConfigPath:     configPath,
			ServerAddress:  serverAddress,
			Action:         control.ActionSnooze,
			SnoozeDuration: duration,
			Out:            cmd.OutOrStdout(),
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	statusCmd := controlCommand(control.ActionStatus, "status", "Show the tracking status.",
		`Prints the state of the running session. When no tracker is running, prints
the summary of the last session instead.`)
	ackCmd := controlCommand(control.ActionAcknowledge, "ack", "Acknowledge arrival and stop tracking.",
		`Confirms that you are awake. The alarm stops and the session ends.`)
	stopCmd := controlCommand(control.ActionStop, "stop", "Stop tracking.",
		`Ends the running session from any state and silences the alarm.`)

	for _, cmd := range []*cobra.Command{statusCmd, ackCmd, snoozeCmd, stopCmd} {
		cmd.Flags().StringVarP(&serverAddress, "server", "s", "", "control API address (overrides configuration)")
		rootCmd.AddCommand(cmd)
	}
}
