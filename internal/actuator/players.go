package actuator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/oshokin/wake-me-up/internal/logger"
)

// terminalBell is the ASCII BEL control character.
const terminalBell = "\a"

// errEmptyCommand is returned for a command player without a program.
var errEmptyCommand = errors.New("command is empty")

// CommandPlayer loops an external audio program, e.g. paplay or afplay.
// A new run is started on every Play once the previous one has finished.
type CommandPlayer struct {
	// command is the program and its arguments.
	command []string

	mu sync.Mutex
	// acquired marks the audio output as taken.
	acquired bool
	// running is the process currently playing, if any.
	running *exec.Cmd
	// exited is closed when running has been waited for.
	exited chan struct{}
}

// NewCommandPlayer creates a player for command.
func NewCommandPlayer(command []string) *CommandPlayer {
	return &CommandPlayer{
		command: command,
	}
}

// Acquire verifies that the program can be executed.
func (p *CommandPlayer) Acquire(_ context.Context) error {
	if len(p.command) == 0 {
		return errEmptyCommand
	}

	if _, err := exec.LookPath(p.command[0]); err != nil {
		return fmt.Errorf("find audio program: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.acquired = true

	return nil
}

// Play starts the program unless it is still playing.
func (p *CommandPlayer) Play(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.acquired || p.running != nil {
		return nil
	}

	cmd := exec.CommandContext(ctx, p.command[0], p.command[1:]...) //nolint:gosec // Command comes from the user's config.
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start audio program: %w", err)
	}

	exited := make(chan struct{})
	p.running = cmd
	p.exited = exited

	go func() {
		defer close(exited)

		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			logger.DebugKV(ctx, "Audio program exited", "error", err)
		}

		p.mu.Lock()
		if p.running == cmd {
			p.running = nil
		}
		p.mu.Unlock()
	}()

	return nil
}

// Release kills a playing program and waits for it.
func (p *CommandPlayer) Release() error {
	p.mu.Lock()
	cmd, exited := p.running, p.exited
	p.acquired = false
	p.mu.Unlock()

	if cmd == nil {
		return nil
	}

	var err error
	if cmd.Process != nil {
		if killErr := cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
			err = fmt.Errorf("stop audio program: %w", killErr)
		}
	}

	<-exited

	return err
}

// BellPlayer rings the terminal bell; it is the default alert.
type BellPlayer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewBellPlayer writes the bell to out, or to stdout when out is nil.
func NewBellPlayer(out io.Writer) *BellPlayer {
	if out == nil {
		out = os.Stdout
	}

	return &BellPlayer{out: out}
}

// Acquire always succeeds.
func (*BellPlayer) Acquire(context.Context) error { return nil }

// Play rings the bell once.
func (b *BellPlayer) Play(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := io.WriteString(b.out, terminalBell)

	return err
}

// Release does nothing.
func (*BellPlayer) Release() error { return nil }

// CommandVibrator runs a haptic program once per pulse.
type CommandVibrator struct {
	command []string
}

// NewCommandVibrator creates a vibrator for command.
func NewCommandVibrator(command []string) *CommandVibrator {
	return &CommandVibrator{command: command}
}

// Pulse runs the program and waits for it.
func (v *CommandVibrator) Pulse(ctx context.Context) error {
	if len(v.command) == 0 {
		return errEmptyCommand
	}

	cmd := exec.CommandContext(ctx, v.command[0], v.command[1:]...) //nolint:gosec // Command comes from the user's config.
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run haptic program: %w", err)
	}

	return nil
}

// LogVibrator logs pulses on devices without a haptic motor.
type LogVibrator struct{}

// Pulse logs one pulse.
func (LogVibrator) Pulse(ctx context.Context) error {
	logger.Debug(ctx, "Vibration pulse")

	return nil
}
