package platform

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/oshokin/wake-me-up/internal/logger"
)

// ErrUnsupportedOS indicates the current OS has no known opener.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// SettingsLauncher opens the settings file, where location permission and the
// location service switch are managed.
type SettingsLauncher struct {
	// path is the settings file to open.
	path string
	// goos selects the opener; runtime.GOOS outside of tests.
	goos string
}

// NewSettingsLauncher creates a launcher for the settings file at path.
func NewSettingsLauncher(path string) *SettingsLauncher {
	return &SettingsLauncher{
		path: path,
		goos: runtime.GOOS,
	}
}

// OpenSettings hands the settings file to the desktop opener:
// - Linux/BSD: `xdg-open <file>`
// - macOS:     `open <file>`
// - Windows:   `cmd /c start "" <file>`
// The opener runs in the background; it is reaped when it exits.
func (l *SettingsLauncher) OpenSettings(ctx context.Context) error {
	name, args, err := openerCommand(l.goos, l.path)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(context.WithoutCancel(ctx), name, args...)
	if err = cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}

	logger.InfoKV(ctx, "Opened settings", "path", l.path, "opener", name)

	go func() {
		if waitErr := cmd.Wait(); waitErr != nil {
			logger.WarnKV(ctx, "Settings opener failed", "opener", name, "error", waitErr)
		}
	}()

	return nil
}

// openerCommand returns the program and arguments that open target on goos.
func openerCommand(goos, target string) (string, []string, error) {
	osName := strings.ToLower(goos)

	switch {
	case osName == "darwin":
		return "open", []string{target}, nil
	case osName == "windows":
		return "cmd", []string{"/c", "start", "", target}, nil
	case osName == "linux" || strings.HasSuffix(osName, "bsd") || osName == "dragonfly" || osName == "illumos":
		return "xdg-open", []string{target}, nil
	default:
		return "", nil, fmt.Errorf("open %s on %s: %w", target, goos, ErrUnsupportedOS)
	}
}
