package tracking

import (
	"time"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
)

const (
	// DefaultEvaluateInterval is how often the last known position is re-evaluated.
	DefaultEvaluateInterval = 2 * time.Second
	// DefaultSnoozeDuration is how long a snoozed alarm stays silent.
	DefaultSnoozeDuration = 60 * time.Second
	// countdownStep is the resolution of the snooze countdown.
	countdownStep = time.Second
)

// Observer receives a snapshot after every processed event.
// It runs on the session goroutine and must not block or call back into the session.
type Observer func(Snapshot)

// DistanceFunc measures the distance in meters between two coordinates.
type DistanceFunc func(a, b geofence.Coordinate) float64

// Option configures a Session.
type Option func(*Session)

// WithEvaluateInterval sets the re-evaluation tick.
func WithEvaluateInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.evaluateInterval = d
		}
	}
}

// WithSnoozeDuration sets the default snooze length.
func WithSnoozeDuration(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.snoozeDuration = d
		}
	}
}

// WithRenotifyOnSnooze controls whether the notification is sent again
// when a snooze expires.
func WithRenotifyOnSnooze(renotify bool) Option {
	return func(s *Session) {
		s.renotify = renotify
	}
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithDistanceFunc replaces the great-circle distance.
func WithDistanceFunc(f DistanceFunc) Option {
	return func(s *Session) {
		if f != nil {
			s.distance = f
		}
	}
}
