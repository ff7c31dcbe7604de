package geofence

import (
	"errors"
	"fmt"
	"strings"
)

// PermissionState is the location permission granted to the application.
type PermissionState int

const (
	// PermissionNotDetermined means the user was never asked.
	PermissionNotDetermined PermissionState = iota
	// PermissionDenied means the user declined location access.
	PermissionDenied
	// PermissionGrantedWhileInUse allows positions while the app is in use.
	PermissionGrantedWhileInUse
	// PermissionGrantedAlways allows positions in the background too.
	PermissionGrantedAlways
)

// Granted reports whether positions may be streamed.
func (p PermissionState) Granted() bool {
	return p == PermissionGrantedWhileInUse || p == PermissionGrantedAlways
}

// String returns the configuration name of the permission state.
func (p PermissionState) String() string {
	switch p {
	case PermissionNotDetermined:
		return "not_determined"
	case PermissionDenied:
		return "denied"
	case PermissionGrantedWhileInUse:
		return "granted_while_in_use"
	case PermissionGrantedAlways:
		return "granted_always"
	default:
		return fmt.Sprintf("PermissionState(%d)", int(p))
	}
}

// ErrUnknownPermission is returned when a permission name cannot be parsed.
var ErrUnknownPermission = errors.New("unknown permission state")

// ParsePermissionState converts a configuration name into a PermissionState.
func ParsePermissionState(s string) (PermissionState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "not_determined", "":
		return PermissionNotDetermined, nil
	case "denied":
		return PermissionDenied, nil
	case "granted_while_in_use", "while_in_use":
		return PermissionGrantedWhileInUse, nil
	case "granted_always", "always":
		return PermissionGrantedAlways, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPermission, s)
	}
}

// SessionState is the state of a tracking session.
type SessionState int

const (
	// StateIdle means nothing is being tracked.
	StateIdle SessionState = iota
	// StateArmed means positions are evaluated against the target.
	StateArmed
	// StateTriggered means the alarm is playing.
	StateTriggered
	// StateSnoozed means the alarm is silenced until the countdown ends.
	StateSnoozed
)

// SessionStates lists every state, used by exporters that emit one series per state.
//
//nolint:gochecknoglobals // Read-only enumeration.
var SessionStates = []SessionState{StateIdle, StateArmed, StateTriggered, StateSnoozed}

// String returns the lower-case state name.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateTriggered:
		return "triggered"
	case StateSnoozed:
		return "snoozed"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// ParseSessionState is the inverse of SessionState.String.
func ParseSessionState(s string) SessionState {
	for _, state := range SessionStates {
		if state.String() == s {
			return state
		}
	}

	return StateIdle
}

// Condition is the most recent notable condition observed by a session.
type Condition int

const (
	// ConditionNone means nothing to report.
	ConditionNone Condition = iota
	// ConditionPermissionDenied blocks arming until permission is granted.
	ConditionPermissionDenied
	// ConditionServiceDisabled blocks arming until location services are enabled.
	ConditionServiceDisabled
	// ConditionPositionUnavailable means no fix yet or a stream error; transient.
	ConditionPositionUnavailable
	// ConditionNotificationDispatchFailed means the notification could not be shown; logged only.
	ConditionNotificationDispatchFailed
	// ConditionAudioActivationFailed means the default alert sound is used instead.
	ConditionAudioActivationFailed
)

// Conditions lists every condition.
//
//nolint:gochecknoglobals // Read-only enumeration.
var Conditions = []Condition{
	ConditionNone,
	ConditionPermissionDenied,
	ConditionServiceDisabled,
	ConditionPositionUnavailable,
	ConditionNotificationDispatchFailed,
	ConditionAudioActivationFailed,
}

// Blocking reports whether the condition prevents a session from arming.
func (c Condition) Blocking() bool {
	return c == ConditionPermissionDenied || c == ConditionServiceDisabled
}

// String returns the condition name.
func (c Condition) String() string {
	switch c {
	case ConditionNone:
		return "none"
	case ConditionPermissionDenied:
		return "permission_denied"
	case ConditionServiceDisabled:
		return "service_disabled"
	case ConditionPositionUnavailable:
		return "position_unavailable"
	case ConditionNotificationDispatchFailed:
		return "notification_dispatch_failed"
	case ConditionAudioActivationFailed:
		return "audio_activation_failed"
	default:
		return fmt.Sprintf("Condition(%d)", int(c))
	}
}

// ParseCondition is the inverse of Condition.String.
func ParseCondition(s string) Condition {
	for _, c := range Conditions {
		if c.String() == s {
			return c
		}
	}

	return ConditionNone
}

// Message returns the user-facing text for a condition.
func (c Condition) Message() string {
	switch c {
	case ConditionPermissionDenied:
		return "Location access is not allowed. Grant location permission in settings to start tracking."
	case ConditionServiceDisabled:
		return "Location services are turned off. Enable them in settings to start tracking."
	case ConditionPositionUnavailable:
		return "Waiting for a position fix."
	case ConditionNotificationDispatchFailed:
		return "The arrival notification could not be shown."
	case ConditionAudioActivationFailed:
		return "The alarm sound could not be started, using the default alert."
	default:
		return ""
	}
}

var (
	// ErrPermissionDenied is the cause of a BlockedError for missing location permission.
	ErrPermissionDenied = errors.New("location permission not granted")
	// ErrServiceDisabled is the cause of a BlockedError for disabled location services.
	ErrServiceDisabled = errors.New("location service disabled")
)

// BlockedError reports a blocking condition that keeps a session from arming.
type BlockedError struct {
	// Condition is ConditionPermissionDenied or ConditionServiceDisabled.
	Condition Condition
	// Permission is the permission state observed when the check failed.
	Permission PermissionState
}

// NewBlockedError builds the error for a blocking condition.
func NewBlockedError(condition Condition, permission PermissionState) *BlockedError {
	return &BlockedError{
		Condition:  condition,
		Permission: permission,
	}
}

// Error implements error.
func (e *BlockedError) Error() string {
	if e.Condition == ConditionServiceDisabled {
		return ErrServiceDisabled.Error()
	}

	return fmt.Sprintf("%s (%s)", ErrPermissionDenied.Error(), e.Permission)
}

// Unwrap lets errors.Is match ErrPermissionDenied or ErrServiceDisabled.
func (e *BlockedError) Unwrap() error {
	if e.Condition == ConditionServiceDisabled {
		return ErrServiceDisabled
	}

	return ErrPermissionDenied
}

// AsBlocked extracts a BlockedError from err.
func AsBlocked(err error) (*BlockedError, bool) {
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return blocked, true
	}

	return nil, false
}
