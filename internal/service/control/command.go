package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/wake-me-up/internal/config"
	"github.com/oshokin/wake-me-up/internal/domain/geofence"
	"github.com/oshokin/wake-me-up/internal/logger"
	"github.com/oshokin/wake-me-up/internal/repository/state"
	"github.com/oshokin/wake-me-up/internal/service/common"
	"github.com/oshokin/wake-me-up/internal/tracking"
)

// Action is a control command.
type Action string

const (
	// ActionStatus prints the session status.
	ActionStatus Action = "status"
	// ActionAcknowledge confirms arrival.
	ActionAcknowledge Action = "ack"
	// ActionSnooze silences the alarm for a while.
	ActionSnooze Action = "snooze"
	// ActionStop ends tracking.
	ActionStop Action = "stop"
)

// Options configures a control command.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides the control address from the settings.
	ServerAddress string
	// Action is the command to send.
	Action Action
	// SnoozeDuration is sent with ActionSnooze; zero selects the tracker's default.
	SnoozeDuration time.Duration
	// Out receives the printed status; stdout when nil.
	Out io.Writer
}

var errUnknownAction = errors.New("unknown control action")

// Run sends the action to the running tracker and prints the resulting status.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "control")

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.ControlAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Identify current user and hostname for the tracker's audit log.
	actor, err := common.DetectActor()
	if err != nil {
		return fmt.Errorf("detect actor: %w", err)
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout), common.WithActor(actor))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Sending control action", "server_address", serverAddress, "action", string(opts.Action))

	snapshot, err := send(ctx, client, opts)
	if err != nil {
		if opts.Action == ActionStatus && status.Code(err) == codes.Unavailable {
			logger.DebugKV(ctx, "Tracker unreachable, reading the last session", "error", err)

			return printLastSession(ctx, out, cfg.StateFile)
		}

		return explain(err)
	}

	return printSnapshot(out, snapshot)
}

func send(ctx context.Context, client *common.Client, opts *Options) (tracking.Snapshot, error) {
	switch opts.Action {
	case ActionStatus:
		return client.GetStatus(ctx)
	case ActionAcknowledge:
		return client.Acknowledge(ctx)
	case ActionSnooze:
		return client.Snooze(ctx, opts.SnoozeDuration)
	case ActionStop:
		return client.Stop(ctx)
	default:
		return tracking.Snapshot{}, fmt.Errorf("%w: %q", errUnknownAction, opts.Action)
	}
}

// ErrUnreachable is returned when no tracker accepts commands on the control address.
var ErrUnreachable = errors.New("tracker is not reachable")

// explain turns transport codes into messages a CLI user understands.
func explain(err error) error {
	switch status.Code(err) {
	case codes.Unavailable:
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	case codes.FailedPrecondition:
		return errors.New(status.Convert(err).Message())
	default:
		return err
	}
}

// printSnapshot writes a human-readable status.
func printSnapshot(out io.Writer, s tracking.Snapshot) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "Destination:\t%s\n", s.LocationName)
	_, _ = fmt.Fprintf(w, "State:\t%s\n", s.State)
	_, _ = fmt.Fprintf(w, "Distance:\t%s (radius %s)\n",
		s.DistanceText(), geofence.FormatDistance(float64(s.Target.RadiusMeters)))
	_, _ = fmt.Fprintf(w, "Alarm:\t%s\n", s.Target.AlarmMode)

	if s.SnoozeRemainingSeconds != nil {
		_, _ = fmt.Fprintf(w, "Snoozed:\tresumes in %d s\n", *s.SnoozeRemainingSeconds)
	}

	if message := s.Condition.Message(); message != "" {
		_, _ = fmt.Fprintf(w, "Notice:\t%s\n", message)
	}

	_, _ = fmt.Fprintf(w, "Triggers:\t%d\n", s.Triggers)

	if s.Closed {
		_, _ = fmt.Fprintf(w, "Ended:\t%s\n", s.EndReason)
	}

	return w.Flush()
}

// printLastSession reports the summary saved by the last tracker.
func printLastSession(ctx context.Context, out io.Writer, stateFile string) error {
	st, err := state.NewFileRepository(stateFile).Load(ctx)

	switch {
	case errors.Is(err, state.ErrNotFound) || (err == nil && st.LastSession == nil):
		_, err = fmt.Fprintln(out, "No tracker is running and no session has been recorded yet.")
		return err
	case err != nil:
		return fmt.Errorf("load state: %w", err)
	}

	last := st.LastSession

	_, _ = fmt.Fprintln(out, "No tracker is running. Last session:")

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "Destination:\t%s\n", last.LocationName)
	_, _ = fmt.Fprintf(w, "Outcome:\t%s\n", last.Outcome)

	if !last.StartedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "Started:\t%s\n", last.StartedAt.Local().Format(time.DateTime))
	}

	if !last.TriggeredAt.IsZero() {
		_, _ = fmt.Fprintf(w, "Triggered:\t%s\n", last.TriggeredAt.Local().Format(time.DateTime))
	}

	_, _ = fmt.Fprintf(w, "Ended:\t%s\n", last.EndedAt.Local().Format(time.DateTime))
	_, _ = fmt.Fprintf(w, "Triggers:\t%d\n", last.Triggers)

	return w.Flush()
}
