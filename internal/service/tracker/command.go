package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/oshokin/wake-me-up/internal/config"
	"github.com/oshokin/wake-me-up/internal/domain/geofence"
	"github.com/oshokin/wake-me-up/internal/logger"
	"github.com/oshokin/wake-me-up/internal/repository/location"
	"github.com/oshokin/wake-me-up/internal/tracking"
)

// Options controls a tracker run.
type Options struct {
	// ConfigPath is the settings file; empty selects the default one.
	ConfigPath string
	// Location is the id or name of the saved destination.
	Location string
	// LogLevel overrides the level from the settings when set.
	LogLevel string
	// ListenAddress overrides the control address from the settings.
	ListenAddress string
	// Headless logs progress instead of showing the terminal UI.
	Headless bool
}

// errLocationRequired is returned when no destination is given.
var errLocationRequired = errors.New("location id or name must be provided")

// Run tracks the destination named in opts until the arrival is acknowledged,
// the session is stopped or ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "tracker")

	if strings.TrimSpace(opts.Location) == "" {
		return errLocationRequired
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyLogLevel(cfg.LogLevel, opts.LogLevel)

	if err = cfg.Position.CheckProvider(); err != nil {
		return fmt.Errorf("check position provider: %w", err)
	}

	if err = cfg.EnsureDir(); err != nil {
		return err
	}

	// Only one tracker may drive the alarm and hold the control address.
	guard, err := acquireGuard(ctx, cfg.MarkerFile, executableName())
	if err != nil {
		return err
	}

	defer guard.release(ctx)

	destination, err := findLocation(ctx, cfg.Database, opts.Location)
	if err != nil {
		return err
	}

	gate, err := newGate(cfg.Position)
	if err != nil {
		return err
	}

	source, err := newSource(gate, cfg.Position)
	if err != nil {
		return fmt.Errorf("create position source: %w", err)
	}

	t, err := newTracker(cfg, opts, destination, gate, tracking.Dependencies{
		Source:   source,
		Alarm:    newAlarm(cfg.Alarm, os.Stdout),
		Notifier: newNotifier(cfg.Notification),
	})
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Tracking destination",
		"location", destination.Name,
		"id", destination.ID,
		"provider", cfg.Position.Provider,
		"radius_m", destination.RadiusMeters)

	return t.run(ctx)
}

// findLocation resolves idOrName in the store at path.
func findLocation(ctx context.Context, path, idOrName string) (*geofence.Location, error) {
	store, err := location.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Unable to close location store", "error", closeErr)
		}
	}()

	found, err := store.Find(ctx, idOrName)
	if err != nil {
		return nil, fmt.Errorf("find location %q: %w", idOrName, err)
	}

	return found, nil
}

// applyLogLevel sets the level from the settings unless the flag overrides it.
func applyLogLevel(configured, override string) {
	level := configured
	if override != "" {
		level = override
	}

	if parsed, ok := logger.ParseLogLevel(level); ok {
		logger.SetLevel(parsed)
	}
}
