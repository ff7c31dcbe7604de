// Package notify delivers the user-visible arrival notification.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/oshokin/wake-me-up/internal/logger"
)

const (
	// ArrivalTitle is the title of the arrival notification.
	ArrivalTitle = "You have arrived!"
	// DefaultTimeout bounds a single dispatch.
	DefaultTimeout = 5 * time.Second
)

// ErrNoNotifier is returned when no notification program is available.
var ErrNoNotifier = errors.New("no notification program available")

// Dispatcher shows a notification exactly once per call, without retries.
type Dispatcher interface {
	DispatchOnce(ctx context.Context, title, body string) error
}

// ArrivalBody formats the notification text for a target.
func ArrivalBody(name string, radiusMeters int) string {
	if name == "" {
		name = "your destination"
	}

	return fmt.Sprintf("You are within %d m of %s.", radiusMeters, name)
}

// CommandDispatcher shows notifications through a desktop program.
// The title and body are appended to the configured arguments.
type CommandDispatcher struct {
	command []string
	timeout time.Duration
}

// NewCommandDispatcher creates a dispatcher. An empty command selects the
// platform default.
func NewCommandDispatcher(command []string, timeout time.Duration) *CommandDispatcher {
	if len(command) == 0 {
		command = defaultCommand(runtime.GOOS)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &CommandDispatcher{
		command: command,
		timeout: timeout,
	}
}

// DispatchOnce runs the program and waits up to the timeout.
func (d *CommandDispatcher) DispatchOnce(ctx context.Context, title, body string) error {
	if len(d.command) == 0 {
		return ErrNoNotifier
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	name, args := buildArgs(d.command, title, body)

	//nolint:gosec // Command comes from the user's config.
	output, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("run %s: %w (output: %q)", name, err, output)
	}

	logger.DebugKV(ctx, "Notification shown", "title", title)

	return nil
}

// buildArgs returns the program and its arguments for one notification.
func buildArgs(command []string, title, body string) (string, []string) {
	if command[0] == "osascript" {
		script := fmt.Sprintf("display notification %q with title %q sound name \"default\"", body, title)
		return command[0], append(append([]string(nil), command[1:]...), "-e", script)
	}

	return command[0], append(append([]string(nil), command[1:]...), title, body)
}

// defaultCommand returns the stock notifier of goos.
func defaultCommand(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"osascript"}
	case "linux", "freebsd", "openbsd", "netbsd":
		return []string{"notify-send", "--urgency=critical", "--app-name=wakemeup"}
	default:
		return nil
	}
}

// LogDispatcher writes notifications to the log.
type LogDispatcher struct{}

// DispatchOnce logs the notification.
func (LogDispatcher) DispatchOnce(ctx context.Context, title, body string) error {
	logger.InfoKV(ctx, "Notification", "title", title, "body", body)

	return nil
}
