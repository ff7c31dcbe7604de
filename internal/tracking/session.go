package tracking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
	"github.com/oshokin/wake-me-up/internal/geo"
	"github.com/oshokin/wake-me-up/internal/logger"
	"github.com/oshokin/wake-me-up/internal/notify"
	"github.com/oshokin/wake-me-up/internal/position"
)

var (
	// ErrInvalidTransition is returned for a command the current state does not accept.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrSessionClosed is returned for commands sent after teardown.
	ErrSessionClosed = errors.New("session closed")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrMissingDependency is returned by New when a collaborator is nil.
	ErrMissingDependency = errors.New("missing session dependency")

	// errStreamClosed marks the loss of the position stream.
	errStreamClosed = errors.New("position stream closed")
)

// unavailableLogInterval throttles repeated "position unavailable" warnings.
const unavailableLogInterval = 30 * time.Second

// Alarm is the actuator as seen by a session.
type Alarm interface {
	// Start begins the repeating alarm effect.
	Start(ctx context.Context, mode geofence.AlarmMode) error
	// Stop silences the alarm; it is idempotent.
	Stop()
	// Degraded reports that the alarm fell back to the default alert.
	Degraded() bool
}

// Dependencies are the collaborators injected into a session.
type Dependencies struct {
	Source   position.Source
	Alarm    Alarm
	Notifier notify.Dispatcher
}

// commandKind enumerates caller commands.
type commandKind int

const (
	commandAcknowledge commandKind = iota + 1
	commandSnooze
	commandStop
)

func (k commandKind) String() string {
	switch k {
	case commandAcknowledge:
		return "acknowledge"
	case commandSnooze:
		return "snooze"
	case commandStop:
		return "stop"
	default:
		return fmt.Sprintf("command(%d)", int(k))
	}
}

// command is a caller request processed by the session goroutine.
type command struct {
	kind     commandKind
	duration time.Duration
	reply    chan error
}

// Session tracks one target until it is acknowledged or stopped.
type Session struct {
	location geofence.Location
	target   geofence.Target
	deps     Dependencies

	evaluateInterval time.Duration
	snoozeDuration   time.Duration
	renotify         bool
	observers        []Observer
	distance         DistanceFunc

	commands chan command
	done     chan struct{}

	// lifecycle guards started and closed.
	lifecycle sync.Mutex
	started   bool
	closed    bool
	cancel    context.CancelFunc

	// published is the snapshot returned by Status.
	publishedMu sync.RWMutex
	published   Snapshot

	notifications        sync.WaitGroup
	notificationFailures atomic.Uint64

	// Fields below are owned by the session goroutine once it runs.
	cur             Snapshot
	hasPosition     bool
	snoozeTicker    *time.Ticker
	unavailableLogs rate.Sometimes
}

// New creates an idle session for location.
func New(location *geofence.Location, deps Dependencies, opts ...Option) (*Session, error) {
	if location == nil {
		return nil, fmt.Errorf("%w: location", ErrMissingDependency)
	}

	switch {
	case deps.Source == nil:
		return nil, fmt.Errorf("%w: position source", ErrMissingDependency)
	case deps.Alarm == nil:
		return nil, fmt.Errorf("%w: alarm", ErrMissingDependency)
	case deps.Notifier == nil:
		return nil, fmt.Errorf("%w: notifier", ErrMissingDependency)
	}

	target := location.Target()
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("invalid target: %w", err)
	}

	s := &Session{
		location:         *location.Clone(),
		target:           target,
		deps:             deps,
		evaluateInterval: DefaultEvaluateInterval,
		snoozeDuration:   DefaultSnoozeDuration,
		renotify:         true,
		distance:         geo.Distance,
		commands:         make(chan command),
		done:             make(chan struct{}),
		unavailableLogs:  rate.Sometimes{First: 1, Interval: unavailableLogInterval},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.cur = Snapshot{
		State:        geofence.StateIdle,
		LocationID:   s.location.ID,
		LocationName: s.location.Name,
		Target:       target,
		Permission:   deps.Source.PermissionState(),
	}
	s.published = s.cur

	return s, nil
}

// Start arms the session. When location access is blocked the session stays
// idle, the stream is not started and a *geofence.BlockedError is returned;
// Start may be called again once the condition is resolved.
// The session is torn down when ctx is canceled.
func (s *Session) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	switch {
	case s.closed:
		return ErrSessionClosed
	case s.started:
		return ErrAlreadyStarted
	}

	ctx = logger.WithKV(logger.WithName(ctx, "session"), "location", s.location.Name)
	s.cur.Permission = s.deps.Source.PermissionState()

	if err := position.Check(s.deps.Source); err != nil {
		s.block(ctx, err)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)

	updates, err := s.deps.Source.StartStreaming(runCtx)
	if err != nil {
		cancel()

		if _, ok := geofence.AsBlocked(err); ok {
			s.block(ctx, err)
		}

		return fmt.Errorf("start position stream: %w", err)
	}

	s.started = true
	s.cancel = cancel
	s.cur.State = geofence.StateArmed
	s.cur.Condition = geofence.ConditionNone
	s.cur.StartedAt = time.Now()
	s.publish()

	logger.InfoKV(ctx, "Tracking armed",
		"target", s.target.Coordinate.String(),
		"radius_m", s.target.RadiusMeters,
		"mode", s.target.AlarmMode.String())

	go s.run(runCtx, updates)

	return nil
}

// Acknowledge confirms arrival: the alarm stops and the session is torn down.
func (s *Session) Acknowledge(ctx context.Context) error {
	return s.send(ctx, command{kind: commandAcknowledge})
}

// Snooze silences a triggered alarm for d, or for the default duration when
// d is not positive. The alarm resumes when the countdown ends.
func (s *Session) Snooze(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = s.snoozeDuration
	}

	return s.send(ctx, command{kind: commandSnooze, duration: d})
}

// Stop tears the session down from any state and waits for the teardown to
// finish. It is idempotent.
func (s *Session) Stop(ctx context.Context) error {
	s.lifecycle.Lock()

	if !s.started {
		if !s.closed {
			s.closed = true
			s.cur.Closed = true
			s.cur.EndReason = EndStopped
			s.publish()
			close(s.done)
		}

		s.lifecycle.Unlock()

		return nil
	}

	s.lifecycle.Unlock()

	err := s.send(ctx, command{kind: commandStop})
	if !errors.Is(err, ErrSessionClosed) {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Status returns the latest snapshot.
func (s *Session) Status() Snapshot {
	s.publishedMu.RLock()
	snap := s.published
	s.publishedMu.RUnlock()

	snap.NotificationFailures = s.notificationFailures.Load()

	return snap
}

// send delivers cmd to the session goroutine and waits for its reply.
// Terminal commands also wait for the teardown to complete.
func (s *Session) send(ctx context.Context, cmd command) error {
	s.lifecycle.Lock()
	started, closed := s.started, s.closed
	s.lifecycle.Unlock()

	switch {
	case closed:
		return ErrSessionClosed
	case !started:
		return fmt.Errorf("%w: %s while idle", ErrInvalidTransition, cmd.kind)
	}

	cmd.reply = make(chan error, 1)

	select {
	case s.commands <- cmd:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	var err error

	select {
	case err = <-cmd.reply:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err != nil || cmd.kind == commandSnooze {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// block records a blocking condition while idle.
func (s *Session) block(ctx context.Context, err error) {
	condition := geofence.ConditionPermissionDenied
	if blocked, ok := geofence.AsBlocked(err); ok {
		condition = blocked.Condition
	}

	s.cur.Condition = condition
	s.publish()

	logger.DebugKV(ctx, "Tracking blocked", "condition", condition.String(), "permission", s.cur.Permission.String())
}

// run is the session goroutine.
func (s *Session) run(ctx context.Context, updates <-chan position.Update) {
	defer s.teardown(ctx)

	evaluate := time.NewTicker(s.evaluateInterval)
	defer evaluate.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Tracking canceled")

			s.cur.EndReason = EndCanceled

			return
		case u, ok := <-updates:
			if !ok {
				updates = nil
				s.positionLost(ctx, errStreamClosed)
			} else {
				s.handleUpdate(ctx, u)
			}
		case <-evaluate.C:
			if updates == nil {
				updates = s.restartStream(ctx)
			}

			s.evaluate(ctx)
		case <-s.countdown():
			s.tickSnooze(ctx)
		case cmd := <-s.commands:
			// Cancellation wins over a command that raced with it.
			if ctx.Err() != nil {
				logger.Info(ctx, "Tracking canceled")

				s.cur.EndReason = EndCanceled
				cmd.reply <- canceledReply(cmd)

				return
			}

			terminal, err := s.handleCommand(ctx, cmd)
			if terminal {
				cmd.reply <- err
				return
			}

			// Callers read Status right after the reply.
			s.publish()
			cmd.reply <- err

			continue
		}

		s.publish()
	}
}

// canceledReply answers a command that arrived after the run context ended.
// Stop still succeeds; anything else finds the session closed.
func canceledReply(cmd command) error {
	if cmd.kind == commandStop {
		return nil
	}

	return ErrSessionClosed
}

// restartStream reopens a position stream that closed on its own.
// It returns nil while the source refuses, so the next tick retries.
func (s *Session) restartStream(ctx context.Context) <-chan position.Update {
	s.deps.Source.StopStreaming()

	updates, err := s.deps.Source.StartStreaming(ctx)
	if err != nil {
		s.positionLost(ctx, err)

		if blocked, ok := geofence.AsBlocked(err); ok {
			s.cur.Condition = blocked.Condition
		}

		return nil
	}

	// Open again but still without a fix.
	s.cur.Condition = geofence.ConditionPositionUnavailable

	logger.Info(ctx, "Position stream restarted")

	return updates
}

// handleUpdate applies one stream update.
func (s *Session) handleUpdate(ctx context.Context, u position.Update) {
	if u.Err != nil {
		s.positionLost(ctx, u.Err)
		return
	}

	s.cur.Samples++
	s.cur.LastPosition = ptr(u.Sample)
	s.hasPosition = true

	if s.cur.Condition == geofence.ConditionPositionUnavailable {
		s.cur.Condition = geofence.ConditionNone
	}

	s.evaluate(ctx)
}

// positionLost records a transient position failure; the last distance is kept.
func (s *Session) positionLost(ctx context.Context, err error) {
	s.cur.PositionErrors++
	s.cur.Condition = geofence.ConditionPositionUnavailable

	s.unavailableLogs.Do(func() {
		logger.WarnKV(ctx, "Position unavailable", "error", err, "errors_total", s.cur.PositionErrors)
	})
}

// evaluate recomputes the distance from the last known position and
// triggers on the first crossing of the armed period.
func (s *Session) evaluate(ctx context.Context) {
	if !s.hasPosition {
		return
	}

	d := s.distance(s.cur.LastPosition.Coordinate, s.target.Coordinate)
	s.cur.LastDistanceMeters = ptr(d)

	if s.cur.State == geofence.StateArmed && !s.cur.HasFiredOnce && s.target.Contains(d) {
		logger.InfoKV(ctx, "Target reached", "distance", geofence.FormatDistance(d))
		s.trigger(ctx, true)
	}
}

// trigger fires the alarm. The notification is dispatched in the background.
func (s *Session) trigger(ctx context.Context, notifyUser bool) {
	s.cur.HasFiredOnce = true
	s.cur.State = geofence.StateTriggered
	s.cur.Triggers++
	s.cur.TriggeredAt = time.Now()

	if notifyUser {
		s.dispatch(ctx)
	}

	if err := s.deps.Alarm.Start(ctx, s.target.AlarmMode); err != nil {
		logger.ErrorKV(ctx, "Failed to start alarm", "error", err)

		s.cur.Condition = geofence.ConditionAudioActivationFailed

		return
	}

	if s.deps.Alarm.Degraded() {
		s.cur.Condition = geofence.ConditionAudioActivationFailed
	}
}

// dispatch sends the arrival notification once without blocking the session.
func (s *Session) dispatch(ctx context.Context) {
	body := notify.ArrivalBody(s.location.Name, s.target.RadiusMeters)

	s.notifications.Add(1)

	go func() {
		defer s.notifications.Done()

		if err := s.deps.Notifier.DispatchOnce(ctx, notify.ArrivalTitle, body); err != nil {
			s.notificationFailures.Add(1)
			logger.WarnKV(ctx, "Notification dispatch failed", "error", err)
		}
	}()
}

// handleCommand applies a caller command and reports whether it ends the session.
func (s *Session) handleCommand(ctx context.Context, cmd command) (bool, error) {
	state := s.cur.State

	switch cmd.kind {
	case commandAcknowledge:
		if state != geofence.StateTriggered && state != geofence.StateSnoozed {
			return false, fmt.Errorf("%w: acknowledge while %s", ErrInvalidTransition, state)
		}

		logger.Info(ctx, "Arrival acknowledged")

		s.cur.EndReason = EndAcknowledged

		return true, nil
	case commandSnooze:
		if state != geofence.StateTriggered {
			return false, fmt.Errorf("%w: snooze while %s", ErrInvalidTransition, state)
		}

		s.snooze(ctx, cmd.duration)

		return false, nil
	case commandStop:
		logger.InfoKV(ctx, "Tracking stopped", "state", state.String())

		s.cur.EndReason = EndStopped

		return true, nil
	default:
		return false, fmt.Errorf("%w: %s", ErrInvalidTransition, cmd.kind)
	}
}

// snooze silences the alarm and starts the countdown; the stream keeps running.
func (s *Session) snooze(ctx context.Context, d time.Duration) {
	s.deps.Alarm.Stop()

	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}

	s.cur.State = geofence.StateSnoozed
	s.cur.Snoozes++
	s.cur.SnoozeRemainingSeconds = ptr(seconds)

	s.stopCountdown()
	s.snoozeTicker = time.NewTicker(countdownStep)

	logger.InfoKV(ctx, "Alarm snoozed", "seconds", seconds)
}

// tickSnooze advances the countdown and re-triggers when it reaches zero.
func (s *Session) tickSnooze(ctx context.Context) {
	if s.cur.SnoozeRemainingSeconds == nil {
		s.stopCountdown()
		return
	}

	remaining := *s.cur.SnoozeRemainingSeconds - 1
	if remaining > 0 {
		s.cur.SnoozeRemainingSeconds = ptr(remaining)
		return
	}

	s.stopCountdown()
	s.cur.SnoozeRemainingSeconds = nil

	// Re-arm, then fire without waiting for a new crossing.
	s.cur.State = geofence.StateArmed
	s.cur.HasFiredOnce = false

	logger.Info(ctx, "Snooze over")
	s.trigger(ctx, s.renotify)
}

// countdown returns the snooze tick channel, or nil when not snoozed.
func (s *Session) countdown() <-chan time.Time {
	if s.snoozeTicker == nil {
		return nil
	}

	return s.snoozeTicker.C
}

func (s *Session) stopCountdown() {
	if s.snoozeTicker != nil {
		s.snoozeTicker.Stop()
		s.snoozeTicker = nil
	}
}

// teardown forces every resource to a stopped state. It runs exactly once
// when the session goroutine exits, whatever the reason.
func (s *Session) teardown(ctx context.Context) {
	s.lifecycle.Lock()
	s.closed = true
	cancel := s.cancel
	s.lifecycle.Unlock()

	s.stopCountdown()
	s.deps.Alarm.Stop()
	s.deps.Source.StopStreaming()
	cancel()
	s.notifications.Wait()

	s.cur.State = geofence.StateIdle
	s.cur.SnoozeRemainingSeconds = nil
	s.cur.Closed = true
	s.publish()

	logger.DebugKV(ctx, "Session torn down", "triggers", s.cur.Triggers, "samples", s.cur.Samples)

	close(s.done)
}

// publish exposes the current state to Status and the observers.
func (s *Session) publish() {
	s.publishedMu.Lock()
	s.published = s.cur
	s.publishedMu.Unlock()

	if len(s.observers) == 0 {
		return
	}

	snap := s.Status()
	for _, o := range s.observers {
		o(snap)
	}
}
