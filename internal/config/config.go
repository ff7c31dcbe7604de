package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
	"github.com/oshokin/wake-me-up/internal/logger"
)

// Config holds every setting of the wakemeup binary.
type Config struct {
	// LogLevel is the minimum level of logged messages.
	LogLevel string `koanf:"log_level" yaml:"log_level" validate:"required"`
	// LogFile receives logs while the terminal UI owns the screen.
	LogFile string `koanf:"log_file" yaml:"log_file" validate:"required"`
	// Database is the SQLite file with saved locations.
	Database string `koanf:"database" yaml:"database" validate:"required"`
	// StateFile is the JSON file with the onboarding flag and the last session.
	StateFile string `koanf:"state_file" yaml:"state_file" validate:"required"`
	// MarkerFile holds the PID of the running tracker.
	MarkerFile string `koanf:"marker_file" yaml:"marker_file" validate:"required"`
	// ControlAddress is where the tracker serves the gRPC control API.
	ControlAddress string `koanf:"control_address" yaml:"control_address" validate:"required,hostname_port"`
	// MetricsAddress serves Prometheus metrics when set.
	MetricsAddress string `koanf:"metrics_address" yaml:"metrics_address" validate:"omitempty,hostname_port"`
	// Timeout bounds control API calls.
	Timeout time.Duration `koanf:"timeout" yaml:"timeout" validate:"min=100ms"`

	Tracking     Tracking     `koanf:"tracking" yaml:"tracking"`
	Alarm        Alarm        `koanf:"alarm" yaml:"alarm"`
	Notification Notification `koanf:"notification" yaml:"notification"`
	Position     Position     `koanf:"position" yaml:"position"`
}

// Tracking tunes the tracking session.
type Tracking struct {
	// EvaluateInterval is how often the last known position is re-evaluated.
	EvaluateInterval time.Duration `koanf:"evaluate_interval" yaml:"evaluate_interval" validate:"min=100ms"`
	// SnoozeDuration is the default "remind me later" delay.
	SnoozeDuration time.Duration `koanf:"snooze_duration" yaml:"snooze_duration" validate:"min=1s"`
	// RenotifyOnSnooze sends the notification again when a snooze ends.
	RenotifyOnSnooze bool `koanf:"renotify_on_snooze" yaml:"renotify_on_snooze"`
	// PermissionRecheckInterval is how often a blocked tracker re-checks access.
	PermissionRecheckInterval time.Duration `koanf:"permission_recheck_interval" yaml:"permission_recheck_interval" validate:"min=100ms"`
}

// Alarm configures the sound and vibration outputs.
type Alarm struct {
	// Cadence is the delay between alarm effects.
	Cadence time.Duration `koanf:"cadence" yaml:"cadence" validate:"min=100ms"`
	// VibrationPulses is the number of pulses per burst.
	VibrationPulses int `koanf:"vibration_pulses" yaml:"vibration_pulses" validate:"min=1,max=50"`
	// VibrationSpacing is the delay between pulses.
	VibrationSpacing time.Duration `koanf:"vibration_spacing" yaml:"vibration_spacing" validate:"min=10ms"`
	// SoundCommand plays the alarm sound once; empty means the terminal bell.
	SoundCommand []string `koanf:"sound_command" yaml:"sound_command,omitempty"`
	// VibrationCommand emits one haptic pulse; empty means log only.
	VibrationCommand []string `koanf:"vibration_command" yaml:"vibration_command,omitempty"`
}

// Notification configures the desktop notifier.
type Notification struct {
	// Command is the notifier program; empty means the platform default.
	Command []string `koanf:"command" yaml:"command,omitempty"`
	// Timeout bounds one dispatch.
	Timeout time.Duration `koanf:"timeout" yaml:"timeout" validate:"min=100ms"`
	// Disabled logs notifications instead of showing them.
	Disabled bool `koanf:"disabled" yaml:"disabled"`
}

// Position selects and configures the position provider.
type Position struct {
	// Provider is "replay" or "gtfsrt".
	Provider string `koanf:"provider" yaml:"provider" validate:"oneof=replay gtfsrt"`
	// Permission is the current location permission, as the platform reports it.
	Permission string `koanf:"permission" yaml:"permission" validate:"required"`
	// PromptAnswer is what a permission prompt resolves to.
	PromptAnswer string `koanf:"prompt_answer" yaml:"prompt_answer" validate:"required"`
	// ServiceEnabled mirrors the system-wide location switch.
	ServiceEnabled bool `koanf:"service_enabled" yaml:"service_enabled"`

	Replay Replay `koanf:"replay" yaml:"replay"`
	GTFSRT GTFSRT `koanf:"gtfsrt" yaml:"gtfsrt"`
}

// Replay configures the track replay provider.
type Replay struct {
	// File is the YAML track.
	File string `koanf:"file" yaml:"file"`
	// Interval is the replay pace when the track file sets none.
	Interval time.Duration `koanf:"interval" yaml:"interval"`
}

// GTFSRT configures the GTFS-Realtime vehicle provider.
type GTFSRT struct {
	// FeedURL is the VehiclePositions feed.
	FeedURL string `koanf:"feed_url" yaml:"feed_url" validate:"omitempty,url"`
	// VehicleID selects the vehicle to follow.
	VehicleID string `koanf:"vehicle_id" yaml:"vehicle_id"`
	// TripID selects the vehicle serving a trip.
	TripID string `koanf:"trip_id" yaml:"trip_id"`
	// PollInterval is the feed polling period.
	PollInterval time.Duration `koanf:"poll_interval" yaml:"poll_interval" validate:"min=1s"`
	// Timeout bounds one feed request.
	Timeout time.Duration `koanf:"timeout" yaml:"timeout" validate:"min=100ms"`
	// Headers are sent with every feed request, e.g. API keys.
	Headers map[string]string `koanf:"headers" yaml:"headers,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "wakemeup.yaml"

	// DefaultControlAddress is the default gRPC control address.
	DefaultControlAddress = "127.0.0.1:50071"

	// DefaultTimeout is the default duration for control API calls.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "WAKEMEUP_"

	// ProviderReplay replays a recorded track.
	ProviderReplay = "replay"
	// ProviderGTFSRT follows a transit vehicle.
	ProviderGTFSRT = "gtfsrt"

	// appDirName is the per-user directory holding every file of the app.
	appDirName = "wakemeup"
	// dirPermissions is used for the app directory.
	dirPermissions = 0o750
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errReplayFileRequired is returned for the replay provider without a track.
	errReplayFileRequired = errors.New("position.replay.file must be provided")
	// errFeedRequired is returned for the gtfsrt provider without a feed.
	errFeedRequired = errors.New("position.gtfsrt.feed_url must be provided")
	// errVehicleRequired is returned for the gtfsrt provider without a vehicle selector.
	errVehicleRequired = errors.New("position.gtfsrt.vehicle_id or trip_id must be provided")
	// errUnknownLogLevel is returned for an unparsable log level.
	errUnknownLogLevel = errors.New("unknown log level")

	//nolint:gochecknoglobals // The validator caches struct metadata and is safe for concurrent use.
	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Dir returns the per-user directory of the app.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}

	return filepath.Join(base, appDirName)
}

// DefaultPath returns the default settings file.
func DefaultPath() string {
	return filepath.Join(Dir(), DefaultConfigFilename)
}

// Default returns the settings used when no file overrides them.
func Default() *Config {
	dir := Dir()

	return &Config{
		LogLevel:       "info",
		LogFile:        filepath.Join(dir, "wakemeup.log"),
		Database:       filepath.Join(dir, "locations.db"),
		StateFile:      filepath.Join(dir, "state.json"),
		MarkerFile:     filepath.Join(dir, "tracker.pid"),
		ControlAddress: DefaultControlAddress,
		Timeout:        DefaultTimeout,
		Tracking: Tracking{
			EvaluateInterval:          2 * time.Second,
			SnoozeDuration:            60 * time.Second,
			RenotifyOnSnooze:          true,
			PermissionRecheckInterval: 5 * time.Second,
		},
		Alarm: Alarm{
			Cadence:          2 * time.Second,
			VibrationPulses:  5,
			VibrationSpacing: 500 * time.Millisecond,
		},
		Notification: Notification{
			Timeout: 5 * time.Second,
		},
		Position: Position{
			Provider:       ProviderReplay,
			Permission:     geofence.PermissionNotDetermined.String(),
			PromptAnswer:   geofence.PermissionGrantedWhileInUse.String(),
			ServiceEnabled: true,
			GTFSRT: GTFSRT{
				PollInterval: 10 * time.Second,
				Timeout:      5 * time.Second,
			},
		},
	}
}

// Load reads settings from path, applies environment overrides and validates them.
// An empty path selects the default file, which may be absent.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	k := koanf.New(".")

	path = filepath.Clean(path)
	if _, err := os.Stat(path); err == nil || explicit {
		if err = k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, unmarshalConf(cfg)); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// unmarshalConf decodes like koanf's default and also splits comma-separated
// strings into lists, so WAKEMEUP_ALARM__SOUND_COMMAND=paplay,alarm.oga works.
func unmarshalConf(cfg *Config) koanf.UnmarshalConf {
	return koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			WeaklyTypedInput: true,
			Result:           cfg,
		},
	}
}

// envKey maps WAKEMEUP_POSITION__GTFSRT__FEED_URL to position.gtfsrt.feed_url.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))

	return strings.ReplaceAll(s, "__", ".")
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultPath()
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	path = filepath.Clean(path)
	if err = os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	// Restrict permissions.
	if err = os.WriteFile(path, data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.ControlAddress == "" {
		settings.ControlAddress = DefaultControlAddress
	}

	if err := validate.Struct(settings); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, settings.LogLevel)
	}

	if _, err := settings.Position.PermissionState(); err != nil {
		return fmt.Errorf("position.permission: %w", err)
	}

	if _, err := settings.Position.PromptState(); err != nil {
		return fmt.Errorf("position.prompt_answer: %w", err)
	}

	return nil
}

// CheckProvider verifies that the selected provider has what it needs to stream.
// It is separate from Validate so commands that never track work without a provider.
func (p Position) CheckProvider() error {
	switch p.Provider {
	case ProviderReplay:
		if p.Replay.File == "" {
			return errReplayFileRequired
		}
	case ProviderGTFSRT:
		if p.GTFSRT.FeedURL == "" {
			return errFeedRequired
		}

		if p.GTFSRT.VehicleID == "" && p.GTFSRT.TripID == "" {
			return errVehicleRequired
		}
	}

	return nil
}

// PermissionState parses the configured permission.
func (p Position) PermissionState() (geofence.PermissionState, error) {
	return geofence.ParsePermissionState(p.Permission)
}

// PromptState parses the configured prompt answer.
func (p Position) PromptState() (geofence.PermissionState, error) {
	return geofence.ParsePermissionState(p.PromptAnswer)
}

// EnsureDir creates the directories of every file the app writes.
func (c *Config) EnsureDir() error {
	for _, path := range []string{c.LogFile, c.Database, c.StateFile, c.MarkerFile} {
		if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
			return fmt.Errorf("create directory for %s: %w", path, err)
		}
	}

	return nil
}

// Init writes the default settings to path unless a file is already there or
// force is set. It reports whether the file was written.
func Init(path string, force bool) (bool, error) {
	if path == "" {
		path = DefaultPath()
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("stat settings: %w", err)
		}
	}

	if err := Save(path, Default()); err != nil {
		return false, err
	}

	return true, nil
}
