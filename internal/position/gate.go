package position

import (
	"context"
	"sync"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
)

// Gate holds the permission and service availability of a location provider.
type Gate struct {
	mu sync.RWMutex
	// permission is the current permission state.
	permission geofence.PermissionState
	// onRequest is what a prompt resolves a NotDetermined permission to.
	onRequest geofence.PermissionState
	// serviceEnabled mirrors the system-wide location switch.
	serviceEnabled bool
}

// NewGate creates a gate with the initial permission, the answer given when
// permission is requested, and the service switch.
func NewGate(permission, onRequest geofence.PermissionState, serviceEnabled bool) *Gate {
	return &Gate{
		permission:     permission,
		onRequest:      onRequest,
		serviceEnabled: serviceEnabled,
	}
}

// RequestPermission resolves a NotDetermined permission to the configured answer.
// Decided permissions are returned unchanged; only the settings can revise them.
func (g *Gate) RequestPermission(_ context.Context) (geofence.PermissionState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.permission == geofence.PermissionNotDetermined {
		g.permission = g.onRequest
	}

	return g.permission, nil
}

// PermissionState returns the current permission.
func (g *Gate) PermissionState() geofence.PermissionState {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.permission
}

// ServiceEnabled reports whether the location service is on.
func (g *Gate) ServiceEnabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.serviceEnabled
}

// SetPermission changes the permission, as the system settings would.
func (g *Gate) SetPermission(p geofence.PermissionState) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.permission = p
}

// SetServiceEnabled flips the location service switch.
func (g *Gate) SetServiceEnabled(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.serviceEnabled = enabled
}

// Check returns a BlockedError when streaming is not allowed.
// A disabled service takes precedence over the permission.
func (g *Gate) Check() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return check(g.permission, g.serviceEnabled)
}

// Check evaluates the availability reported by any source.
func Check(s Source) error {
	return check(s.PermissionState(), s.ServiceEnabled())
}

func check(permission geofence.PermissionState, serviceEnabled bool) error {
	if !serviceEnabled {
		return geofence.NewBlockedError(geofence.ConditionServiceDisabled, permission)
	}

	if !permission.Granted() {
		return geofence.NewBlockedError(geofence.ConditionPermissionDenied, permission)
	}

	return nil
}
