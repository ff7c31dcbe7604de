package tracking

import (
	"time"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
)

// Snapshot is a point-in-time copy of a session.
// Pointer fields are never mutated after publication and may be shared.
type Snapshot struct {
	// State is the state machine position.
	State geofence.SessionState
	// LocationID identifies the tracked location.
	LocationID string
	// LocationName is the display name of the tracked location.
	LocationName string
	// Target is the tracked geofence.
	Target geofence.Target
	// LastDistanceMeters is nil until a position has been evaluated.
	LastDistanceMeters *float64
	// LastPosition is nil until a sample has been received.
	LastPosition *geofence.PositionSample
	// HasFiredOnce is set on trigger and cleared only when a snooze re-arms.
	HasFiredOnce bool
	// SnoozeRemainingSeconds is set only while snoozed.
	SnoozeRemainingSeconds *int
	// Condition is the latest notable condition.
	Condition geofence.Condition
	// Permission is the location permission observed at start.
	Permission geofence.PermissionState
	// Samples counts position samples received.
	Samples uint64
	// PositionErrors counts stream errors and stream loss.
	PositionErrors uint64
	// Triggers counts alarm triggers, snooze re-triggers included.
	Triggers uint64
	// Snoozes counts snoozes.
	Snoozes uint64
	// NotificationFailures counts failed notification dispatches.
	NotificationFailures uint64
	// StartedAt is when the session armed.
	StartedAt time.Time
	// TriggeredAt is when the alarm last triggered.
	TriggeredAt time.Time
	// Closed is true once the session has been torn down.
	Closed bool
	// EndReason tells why a closed session ended.
	EndReason EndReason
}

// EndReason tells why a session ended.
type EndReason string

const (
	// EndAcknowledged means the user confirmed arrival.
	EndAcknowledged EndReason = "acknowledged"
	// EndStopped means tracking was stopped before or instead of an acknowledgement.
	EndStopped EndReason = "stopped"
	// EndCanceled means the host canceled the session context.
	EndCanceled EndReason = "canceled"
)

// DistanceText formats the last distance, or returns "unknown".
func (s Snapshot) DistanceText() string {
	if s.LastDistanceMeters == nil {
		return "unknown"
	}

	return geofence.FormatDistance(*s.LastDistanceMeters)
}

// ptr returns a pointer to a fresh copy of v.
func ptr[T any](v T) *T {
	return &v
}
