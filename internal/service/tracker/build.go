package tracker

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/oshokin/wake-me-up/internal/actuator"
	"github.com/oshokin/wake-me-up/internal/config"
	"github.com/oshokin/wake-me-up/internal/notify"
	"github.com/oshokin/wake-me-up/internal/position"
	"github.com/oshokin/wake-me-up/internal/tracking"
	"github.com/oshokin/wake-me-up/internal/version"
)

// errUnknownProvider is returned for a provider name Validate let through.
var errUnknownProvider = errors.New("unknown position provider")

// newGate builds the permission gate from the position settings.
func newGate(settings config.Position) (*position.Gate, error) {
	permission, err := settings.PermissionState()
	if err != nil {
		return nil, fmt.Errorf("position.permission: %w", err)
	}

	answer, err := settings.PromptState()
	if err != nil {
		return nil, fmt.Errorf("position.prompt_answer: %w", err)
	}

	return position.NewGate(permission, answer, settings.ServiceEnabled), nil
}

// newSource builds the configured position provider behind gate.
func newSource(gate *position.Gate, settings config.Position) (position.Source, error) {
	switch settings.Provider {
	case config.ProviderReplay:
		track, err := position.LoadTrack(settings.Replay.File)
		if err != nil {
			return nil, err
		}

		return position.NewReplaySource(gate, track, settings.Replay.Interval), nil
	case config.ProviderGTFSRT:
		feed := settings.GTFSRT

		return position.NewGTFSRTSource(gate, position.GTFSRTOptions{
			FeedURL:      feed.FeedURL,
			VehicleID:    feed.VehicleID,
			TripID:       feed.TripID,
			PollInterval: feed.PollInterval,
			Timeout:      feed.Timeout,
			UserAgent:    version.UserAgent(),
			Headers:      feed.Headers,
		}, &http.Client{Timeout: feed.Timeout})
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownProvider, settings.Provider)
	}
}

// newAlarm builds the actuator. The terminal bell on bell is the fallback sound,
// and the only one when no sound command is configured.
func newAlarm(settings config.Alarm, bell io.Writer) *actuator.Actuator {
	fallback := actuator.NewBellPlayer(bell)

	var player actuator.Player = fallback
	if len(settings.SoundCommand) > 0 {
		player = actuator.NewCommandPlayer(settings.SoundCommand)
	}

	var vibrator actuator.Vibrator = actuator.LogVibrator{}
	if len(settings.VibrationCommand) > 0 {
		vibrator = actuator.NewCommandVibrator(settings.VibrationCommand)
	}

	return actuator.New(player, fallback, vibrator, actuator.Options{
		Cadence:      settings.Cadence,
		Pulses:       settings.VibrationPulses,
		PulseSpacing: settings.VibrationSpacing,
	})
}

// newNotifier builds the notification dispatcher.
func newNotifier(settings config.Notification) notify.Dispatcher {
	if settings.Disabled {
		return notify.LogDispatcher{}
	}

	return notify.NewCommandDispatcher(settings.Command, settings.Timeout)
}

// sessionOptions maps the tracking settings onto session options.
func sessionOptions(settings config.Tracking, observers ...tracking.Observer) []tracking.Option {
	opts := []tracking.Option{
		tracking.WithEvaluateInterval(settings.EvaluateInterval),
		tracking.WithSnoozeDuration(settings.SnoozeDuration),
		tracking.WithRenotifyOnSnooze(settings.RenotifyOnSnooze),
	}

	for _, o := range observers {
		opts = append(opts, tracking.WithObserver(o))
	}

	return opts
}
