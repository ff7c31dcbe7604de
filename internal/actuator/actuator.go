package actuator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
	"github.com/oshokin/wake-me-up/internal/logger"
)

const (
	// DefaultCadence is the delay between two alarm effects.
	DefaultCadence = 2 * time.Second
	// DefaultPulses is the number of vibration pulses per burst.
	DefaultPulses = 5
	// DefaultPulseSpacing is the delay between two pulses of a burst.
	DefaultPulseSpacing = 500 * time.Millisecond
)

// ErrUnsupportedMode is returned by Start for an unknown alarm mode.
var ErrUnsupportedMode = errors.New("unsupported alarm mode")

// Player plays the alarm sound.
type Player interface {
	// Acquire takes the audio output for the duration of the alarm.
	Acquire(ctx context.Context) error
	// Play plays the sound once, or keeps an already playing loop going.
	Play(ctx context.Context) error
	// Release gives the audio output back.
	Release() error
}

// Vibrator emits a single haptic pulse.
type Vibrator interface {
	Pulse(ctx context.Context) error
}

// Options tunes the alarm rhythm.
type Options struct {
	// Cadence is the delay between effects.
	Cadence time.Duration
	// Pulses is the burst length of the vibration effect.
	Pulses int
	// PulseSpacing is the delay between pulses of a burst.
	PulseSpacing time.Duration
}

// withDefaults replaces unset values with defaults.
func (o Options) withDefaults() Options {
	if o.Cadence <= 0 {
		o.Cadence = DefaultCadence
	}

	if o.Pulses <= 0 {
		o.Pulses = DefaultPulses
	}

	if o.PulseSpacing <= 0 {
		o.PulseSpacing = DefaultPulseSpacing
	}

	return o
}

// Actuator repeats an alarm effect until stopped.
type Actuator struct {
	// player is the preferred sound output.
	player Player
	// fallback is the default alert used when player cannot be acquired.
	fallback Player
	// vibrator emits haptic pulses.
	vibrator Vibrator
	// opts holds the rhythm.
	opts Options

	mu sync.Mutex
	// cancel stops the running effect loop; nil when idle.
	cancel context.CancelFunc
	// done is closed when the effect loop has exited.
	done chan struct{}
	// audio is the player acquired for the running alarm, if any.
	audio Player
	// degraded is true when the fallback player is in use.
	degraded bool
}

// New creates an actuator. A nil fallback means no sound when player fails.
func New(player, fallback Player, vibrator Vibrator, opts Options) *Actuator {
	return &Actuator{
		player:   player,
		fallback: fallback,
		vibrator: vibrator,
		opts:     opts.withDefaults(),
	}
}

// Start begins repeating the effect for mode. Starting a running actuator is a no-op.
func (a *Actuator) Start(ctx context.Context, mode geofence.AlarmMode) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	runCtx = logger.WithName(runCtx, "actuator")

	fire, err := a.effectFor(runCtx, mode)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	a.cancel = cancel
	a.done = done

	logger.InfoKV(runCtx, "Alarm started", "mode", mode.String(), "cadence", a.opts.Cadence.String())

	go a.run(runCtx, fire, done)

	return nil
}

// Stop silences the alarm, waits for the effect loop to exit and releases
// the audio output. It is safe to call at any time and more than once.
func (a *Actuator) Stop() {
	a.mu.Lock()
	cancel, done, audio := a.cancel, a.done, a.audio
	a.cancel, a.done, a.audio = nil, nil, nil
	a.degraded = false
	a.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done

	if audio == nil {
		return
	}

	if err := audio.Release(); err != nil {
		logger.WarnKV(context.Background(), "Failed to release audio output", "error", err)
	}
}

// Active reports whether the alarm is playing.
func (a *Actuator) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.cancel != nil
}

// Degraded reports whether the running alarm uses the fallback sound.
func (a *Actuator) Degraded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.degraded
}

// effectFor resolves the effect of mode. It must be called with mu held.
func (a *Actuator) effectFor(ctx context.Context, mode geofence.AlarmMode) (func(context.Context), error) {
	switch mode {
	case geofence.AlarmModeSound:
		return a.soundEffect(ctx), nil
	case geofence.AlarmModeVibration:
		return a.vibrationEffect, nil
	case geofence.AlarmModeBoth:
		sound := a.soundEffect(ctx)

		return func(ctx context.Context) {
			sound(ctx)
			a.vibrationEffect(ctx)
		}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMode, int(mode))
	}
}

// soundEffect acquires the audio output, falling back to the default alert.
// It must be called with mu held.
func (a *Actuator) soundEffect(ctx context.Context) func(context.Context) {
	player := a.player
	if player != nil {
		if err := player.Acquire(ctx); err != nil {
			logger.WarnKV(ctx, "Audio activation failed, using the default alert", "error", err)

			player = nil
			a.degraded = true
		}
	}

	if player == nil && a.fallback != nil {
		if err := a.fallback.Acquire(ctx); err != nil {
			logger.WarnKV(ctx, "Default alert unavailable", "error", err)
		} else {
			player = a.fallback
		}
	}

	if player == nil {
		return func(context.Context) {}
	}

	a.audio = player

	return func(ctx context.Context) {
		if err := player.Play(ctx); err != nil && ctx.Err() == nil {
			logger.WarnKV(ctx, "Alarm sound failed", "error", err)
		}
	}
}

// vibrationEffect emits one burst of pulses.
func (a *Actuator) vibrationEffect(ctx context.Context) {
	if a.vibrator == nil {
		return
	}

	for i := range a.opts.Pulses {
		if i > 0 {
			timer := time.NewTimer(a.opts.PulseSpacing)

			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		if err := a.vibrator.Pulse(ctx); err != nil && ctx.Err() == nil {
			logger.WarnKV(ctx, "Vibration pulse failed", "error", err)
		}
	}
}

// run fires immediately and then on every cadence tick until ctx is canceled.
func (a *Actuator) run(ctx context.Context, fire func(context.Context), done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.opts.Cadence)
	defer ticker.Stop()

	for {
		fire(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
