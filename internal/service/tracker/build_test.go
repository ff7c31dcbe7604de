package tracker

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/wake-me-up/internal/config"
	"github.com/oshokin/wake-me-up/internal/domain/geofence"
	"github.com/oshokin/wake-me-up/internal/notify"
	"github.com/oshokin/wake-me-up/internal/position"
)

// TestNewGate maps the position settings onto the gate.
func TestNewGate(t *testing.T) {
	t.Parallel()

	settings := config.Default().Position
	settings.Permission = "denied"
	settings.PromptAnswer = "always"
	settings.ServiceEnabled = false

	gate, err := newGate(settings)
	require.NoError(t, err)
	require.Equal(t, geofence.PermissionDenied, gate.PermissionState())
	require.False(t, gate.ServiceEnabled())

	settings.Permission = "sometimes"
	_, err = newGate(settings)
	require.ErrorIs(t, err, geofence.ErrUnknownPermission)
}

// TestNewSource builds each provider from the settings.
func TestNewSource(t *testing.T) {
	t.Parallel()

	gate := position.NewGate(geofence.PermissionGrantedAlways, geofence.PermissionGrantedAlways, true)

	track := filepath.Join(t.TempDir(), "track.yaml")
	require.NoError(t, os.WriteFile(track, []byte("samples:\n  - lat: 41.0\n    lon: 29.0\n"), 0o600))

	settings := config.Default().Position
	settings.Replay.File = track

	source, err := newSource(gate, settings)
	require.NoError(t, err)
	require.IsType(t, &position.ReplaySource{}, source)

	settings.Provider = config.ProviderGTFSRT
	settings.GTFSRT.FeedURL = "https://example.com/vehicle-positions.pb"
	settings.GTFSRT.TripID = "trip-42"

	source, err = newSource(gate, settings)
	require.NoError(t, err)
	require.IsType(t, &position.GTFSRTSource{}, source)

	settings.Provider = "carrier-pigeon"
	_, err = newSource(gate, settings)
	require.ErrorIs(t, err, errUnknownProvider)
}

// TestNewNotifier honors the disabled switch.
func TestNewNotifier(t *testing.T) {
	t.Parallel()

	settings := config.Default().Notification
	require.IsType(t, &notify.CommandDispatcher{}, newNotifier(settings))

	settings.Disabled = true
	require.IsType(t, notify.LogDispatcher{}, newNotifier(settings))
}

// TestNewAlarm starts and stops the configured actuator.
func TestNewAlarm(t *testing.T) {
	t.Parallel()

	settings := config.Default().Alarm
	settings.Cadence = time.Hour

	alarm := newAlarm(settings, io.Discard)
	require.NoError(t, alarm.Start(t.Context(), geofence.AlarmModeBoth))
	require.True(t, alarm.Active())
	require.False(t, alarm.Degraded())

	alarm.Stop()
	require.False(t, alarm.Active())
}
