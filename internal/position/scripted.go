package position

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
)

// ScriptedSource delivers whatever the caller pushes. It backs tests and
// embedding applications that receive positions from elsewhere.
type ScriptedSource struct {
	*Gate
	stream

	// feed hands pushed updates to the running producer.
	feed chan Update
	// interrupt ends the running producer as if the provider gave up.
	interrupt chan struct{}
	// startCalls counts StartStreaming invocations, including refused ones.
	startCalls atomic.Int32
	// stopCalls counts StopStreaming invocations.
	stopCalls atomic.Int32
}

// NewScriptedSource creates a source guarded by gate.
func NewScriptedSource(gate *Gate) *ScriptedSource {
	return &ScriptedSource{
		Gate:      gate,
		feed:      make(chan Update),
		interrupt: make(chan struct{}),
	}
}

// StartStreaming starts forwarding pushed updates.
func (s *ScriptedSource) StartStreaming(ctx context.Context) (<-chan Update, error) {
	s.startCalls.Add(1)

	if err := s.Check(); err != nil {
		return nil, err
	}

	return s.start(ctx, func(ctx context.Context, emit func(Update) bool) {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.interrupt:
				return
			case u := <-s.feed:
				if !emit(u) {
					return
				}
			}
		}
	})
}

// StopStreaming stops forwarding and closes the stream channel.
func (s *ScriptedSource) StopStreaming() {
	s.stopCalls.Add(1)
	s.stop()
}

// CurrentPosition returns the last pushed sample while streaming.
func (s *ScriptedSource) CurrentPosition() (geofence.PositionSample, bool) {
	return s.current()
}

// Push delivers a sample. It reports false when no stream is active.
func (s *ScriptedSource) Push(ctx context.Context, c geofence.Coordinate) bool {
	return s.push(ctx, Update{
		Sample: geofence.PositionSample{
			Coordinate: c,
			Timestamp:  time.Now(),
		},
	})
}

// PushError delivers a transient stream error.
func (s *ScriptedSource) PushError(ctx context.Context, err error) bool {
	return s.push(ctx, Update{Err: err})
}

// Interrupt closes the active stream from the provider side, the way a
// platform service drops its subscription. It reports false when no stream is active.
func (s *ScriptedSource) Interrupt(ctx context.Context) bool {
	s.stream.mu.Lock()
	done := s.done
	s.stream.mu.Unlock()

	if done == nil {
		return false
	}

	select {
	case s.interrupt <- struct{}{}:
		<-done
		return true
	case <-done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Streaming reports whether a stream is active.
func (s *ScriptedSource) Streaming() bool {
	return s.active()
}

// StartCalls returns how many times StartStreaming was called.
func (s *ScriptedSource) StartCalls() int {
	return int(s.startCalls.Load())
}

// StopCalls returns how many times StopStreaming was called.
func (s *ScriptedSource) StopCalls() int {
	return int(s.stopCalls.Load())
}

func (s *ScriptedSource) push(ctx context.Context, u Update) bool {
	s.stream.mu.Lock()
	done := s.done
	s.stream.mu.Unlock()

	if done == nil {
		return false
	}

	select {
	case s.feed <- u:
		return true
	case <-done:
		return false
	case <-ctx.Done():
		return false
	}
}
