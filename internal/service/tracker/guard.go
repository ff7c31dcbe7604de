package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/wake-me-up/internal/config"
	"github.com/oshokin/wake-me-up/internal/logger"
)

// ErrAlreadyTracking is returned when another tracker owns the marker file.
var ErrAlreadyTracking = errors.New("another tracker is already running")

// instanceGuard keeps a single tracker per user: it owns a marker file holding
// the tracker PID.
type instanceGuard struct {
	// path is the marker file.
	path string
	// executable is the process name a live owner must have.
	executable string
}

// acquireGuard claims the marker file. A marker left by a process that is gone,
// or that is not a tracker, is treated as stale and replaced.
func acquireGuard(ctx context.Context, path, executable string) (*instanceGuard, error) {
	g := &instanceGuard{
		path:       path,
		executable: executable,
	}

	pid, running := g.owner(ctx)
	if running {
		return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyTracking, pid)
	}

	data := []byte(strconv.Itoa(os.Getpid()))
	if err := os.WriteFile(filepath.Clean(path), data, config.DefaultFilePermissions); err != nil {
		return nil, fmt.Errorf("write marker file: %w", err)
	}

	return g, nil
}

// owner returns the PID recorded in the marker and whether that process is a live tracker.
func (g *instanceGuard) owner(ctx context.Context) (int, bool) {
	logger.Debug(ctx, "Checking for the presence of a tracker marker")

	data, err := os.ReadFile(filepath.Clean(g.path))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to read tracker marker", "path", g.path, "error", err)
		}

		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		logger.InfoKV(ctx, "The tracker marker is corrupted, replacing it", "path", g.path)
		return 0, false
	}

	if pid == os.Getpid() {
		return pid, false
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		logger.WarnKV(ctx, "Unable to look up tracker process", "pid", pid, "error", err)
		return pid, false
	}

	if process == nil || process.Executable() != g.executable {
		logger.InfoKV(ctx, "The tracker marker is stale, replacing it", "pid", pid)
		return pid, false
	}

	return pid, true
}

// release removes the marker if this process still owns it.
func (g *instanceGuard) release(ctx context.Context) {
	data, err := os.ReadFile(filepath.Clean(g.path))
	if err != nil {
		return
	}

	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		return
	}

	if err = os.Remove(g.path); err != nil {
		logger.WarnKV(ctx, "Unable to remove tracker marker", "path", g.path, "error", err)
	}
}

// executableName is the name ps reports for this binary.
func executableName() string {
	path, err := os.Executable()
	if err != nil {
		return filepath.Base(os.Args[0])
	}

	return filepath.Base(path)
}
