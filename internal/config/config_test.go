package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
)

// TestValidate checks required fields and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)
	require.NoError(t, Validate(Default()))

	// Defaults are filled in.
	settings := Default()
	settings.Timeout = 0
	settings.ControlAddress = ""
	require.NoError(t, Validate(settings))
	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Equal(t, DefaultControlAddress, settings.ControlAddress)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad control address", mutate: func(c *Config) { c.ControlAddress = "bad address" }},
		{name: "bad metrics address", mutate: func(c *Config) { c.MetricsAddress = "nope" }},
		{name: "unknown log level", mutate: func(c *Config) { c.LogLevel = "loud" }},
		{name: "unknown provider", mutate: func(c *Config) { c.Position.Provider = "gps" }},
		{name: "unknown permission", mutate: func(c *Config) { c.Position.Permission = "maybe" }},
		{name: "unknown prompt answer", mutate: func(c *Config) { c.Position.PromptAnswer = "sure" }},
		{name: "short snooze", mutate: func(c *Config) { c.Tracking.SnoozeDuration = 10 * time.Millisecond }},
		{name: "no pulses", mutate: func(c *Config) { c.Alarm.VibrationPulses = 0 }},
		{name: "bad feed url", mutate: func(c *Config) { c.Position.GTFSRT.FeedURL = "not a url" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			settings := Default()
			tt.mutate(settings)
			require.Error(t, Validate(settings))
		})
	}
}

// TestCheckProvider verifies provider-specific requirements.
func TestCheckProvider(t *testing.T) {
	t.Parallel()

	p := Default().Position
	require.ErrorIs(t, p.CheckProvider(), errReplayFileRequired)

	p.Replay.File = "track.yaml"
	require.NoError(t, p.CheckProvider())

	p.Provider = ProviderGTFSRT
	require.ErrorIs(t, p.CheckProvider(), errFeedRequired)

	p.GTFSRT.FeedURL = "https://example.com/vehicle-positions.pb"
	require.ErrorIs(t, p.CheckProvider(), errVehicleRequired)

	p.GTFSRT.TripID = "trip-42"
	require.NoError(t, p.CheckProvider())

	state, err := p.PermissionState()
	require.NoError(t, err)
	require.Equal(t, geofence.PermissionNotDetermined, state)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "wakemeup.yaml")

	settings := Default()
	settings.ControlAddress = "127.0.0.1:50099"
	settings.Tracking.SnoozeDuration = 90 * time.Second
	settings.Alarm.SoundCommand = []string{"paplay", "/usr/share/sounds/alarm.oga"}
	settings.Position.Provider = ProviderGTFSRT
	settings.Position.GTFSRT.FeedURL = "https://example.com/vehicle-positions.pb"
	settings.Position.GTFSRT.VehicleID = "bus-7"
	settings.Position.GTFSRT.Headers = map[string]string{"x-api-key": "secret"}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoad_PartialFile verifies missing keys keep their defaults.
func TestLoad_PartialFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "wakemeup.yaml")
	contents := "log_level: debug\ntracking:\n  snooze_duration: 2m\nposition:\n  replay:\n    file: ride.yaml\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), DefaultFilePermissions))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", loaded.LogLevel)
	require.Equal(t, 2*time.Minute, loaded.Tracking.SnoozeDuration)
	require.Equal(t, 2*time.Second, loaded.Tracking.EvaluateInterval)
	require.True(t, loaded.Tracking.RenotifyOnSnooze)
	require.Equal(t, "ride.yaml", loaded.Position.Replay.File)
	require.Equal(t, 5, loaded.Alarm.VibrationPulses)
}

// TestLoad_MissingExplicitFile ensures an explicitly named file must exist.
func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

// TestLoad_EnvOverrides verifies WAKEMEUP_ variables override the file.
func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wakemeup.yaml")
	require.NoError(t, Save(path, Default()))

	t.Setenv("WAKEMEUP_LOG_LEVEL", "warn")
	t.Setenv("WAKEMEUP_TRACKING__SNOOZE_DURATION", "90s")
	t.Setenv("WAKEMEUP_POSITION__PERMISSION", "granted_always")
	t.Setenv("WAKEMEUP_ALARM__SOUND_COMMAND", "paplay,alarm.oga")
	t.Setenv("WAKEMEUP_NOTIFICATION__COMMAND", "notify-send")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "warn", loaded.LogLevel)
	require.Equal(t, 90*time.Second, loaded.Tracking.SnoozeDuration)
	require.Equal(t, []string{"paplay", "alarm.oga"}, loaded.Alarm.SoundCommand)
	require.Equal(t, []string{"notify-send"}, loaded.Notification.Command)

	state, err := loaded.Position.PermissionState()
	require.NoError(t, err)
	require.Equal(t, geofence.PermissionGrantedAlways, state)
}

// TestEnvKey checks the environment key mapping.
func TestEnvKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "position.gtfsrt.feed_url", envKey("WAKEMEUP_POSITION__GTFSRT__FEED_URL"))
	require.Equal(t, "control_address", envKey("WAKEMEUP_CONTROL_ADDRESS"))
}

// TestEnsureDir creates parent directories of every app file.
func TestEnsureDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	settings := Default()
	settings.Database = filepath.Join(dir, "a", "locations.db")
	settings.StateFile = filepath.Join(dir, "b", "state.json")
	settings.LogFile = filepath.Join(dir, "c", "wakemeup.log")
	settings.MarkerFile = filepath.Join(dir, "d", "tracker.pid")

	require.NoError(t, settings.EnsureDir())

	for _, sub := range []string{"a", "b", "c", "d"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}
}

// TestInit writes defaults once and only overwrites when forced.
func TestInit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", DefaultConfigFilename)

	created, err := Init(path, false)
	require.NoError(t, err)
	require.True(t, created)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), loaded)

	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), DefaultFilePermissions))

	created, err = Init(path, false)
	require.NoError(t, err)
	require.False(t, created)

	loaded, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", loaded.LogLevel)

	created, err = Init(path, true)
	require.NoError(t, err)
	require.True(t, created)

	loaded, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, "info", loaded.LogLevel)
}
