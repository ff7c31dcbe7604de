package position

import (
	"context"
	"errors"
	"sync"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
)

// Source is a location service as seen by a tracking session.
type Source interface {
	// RequestPermission prompts for location access when it was never decided.
	RequestPermission(ctx context.Context) (geofence.PermissionState, error)
	// PermissionState returns the current permission.
	PermissionState() geofence.PermissionState
	// ServiceEnabled reports whether the location service is turned on.
	ServiceEnabled() bool
	// StartStreaming starts delivering updates on the returned channel.
	// The channel may also close when the provider drops the stream; callers
	// then StopStreaming and start again.
	StartStreaming(ctx context.Context) (<-chan Update, error)
	// StopStreaming stops the stream and closes its channel. It is idempotent.
	StopStreaming()
	// CurrentPosition returns the latest sample while a stream is active.
	CurrentPosition() (geofence.PositionSample, bool)
}

// Update is either a position sample or a transient stream error.
type Update struct {
	// Sample is the fix; zero when Err is set.
	Sample geofence.PositionSample
	// Err is a transient failure such as a lost fix or a feed outage.
	Err error
}

var (
	// ErrAlreadyStreaming is returned when StartStreaming is called on an active stream.
	ErrAlreadyStreaming = errors.New("position stream already active")
	// ErrNoFix is delivered when the provider has no position for the device.
	ErrNoFix = errors.New("no position fix")
)

// updateBuffer keeps a few updates queued so producers rarely block on slow consumers.
const updateBuffer = 8

// producer emits updates until ctx is canceled.
type producer func(ctx context.Context, emit func(Update) bool)

// stream runs one producer goroutine and owns the channel it writes to.
// Sources embed it to share the start/stop bookkeeping.
type stream struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	last    geofence.PositionSample
	hasLast bool
}

// start launches produce; it fails when a stream is already running.
func (s *stream) start(ctx context.Context, produce producer) (<-chan Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil, ErrAlreadyStreaming
	}

	var (
		streamCtx, cancel = context.WithCancel(ctx)
		updates           = make(chan Update, updateBuffer)
		done              = make(chan struct{})
	)

	s.cancel = cancel
	s.done = done
	s.hasLast = false

	emit := func(u Update) bool {
		if u.Err == nil {
			s.remember(u.Sample)
		}

		select {
		case updates <- u:
			return true
		case <-streamCtx.Done():
			return false
		}
	}

	go func() {
		defer close(done)
		defer close(updates)

		produce(streamCtx, emit)
	}()

	return updates, nil
}

// stop cancels the producer and waits until its channel is closed.
func (s *stream) stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.hasLast = false
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// remember stores the latest sample for CurrentPosition.
func (s *stream) remember(sample geofence.PositionSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}

	s.last = sample
	s.hasLast = true
}

// current returns the last sample only while streaming.
func (s *stream) current() (geofence.PositionSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil || !s.hasLast {
		return geofence.PositionSample{}, false
	}

	return s.last, true
}

// active reports whether a producer is running.
func (s *stream) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cancel != nil
}
