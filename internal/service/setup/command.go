package setup

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/wake-me-up/internal/config"
	"github.com/oshokin/wake-me-up/internal/logger"
	"github.com/oshokin/wake-me-up/internal/platform"
)

// Opener opens the settings file for the user.
type Opener interface {
	OpenSettings(ctx context.Context) error
}

// Options configures the setup command.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// Force overwrites an existing file with the defaults.
	Force bool
	// Open hands the file to the desktop opener afterwards.
	Open bool
	// Opener replaces the desktop opener; the platform launcher when nil.
	Opener Opener
	// Out receives progress messages; stdout when nil.
	Out io.Writer
}

// Run makes sure the settings file exists and optionally opens it.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "setup")

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}

	created, err := config.Init(path, opts.Force)
	if err != nil {
		return fmt.Errorf("init settings: %w", err)
	}

	if created {
		logger.InfoKV(ctx, "Settings file written", "path", path)
		_, _ = fmt.Fprintf(out, "Wrote default settings to %s\n", path)
	} else {
		_, _ = fmt.Fprintf(out, "Settings file already exists: %s\n", path)
	}

	if !opts.Open {
		return nil
	}

	opener := opts.Opener
	if opener == nil {
		opener = platform.NewSettingsLauncher(path)
	}

	return opener.OpenSettings(ctx)
}
