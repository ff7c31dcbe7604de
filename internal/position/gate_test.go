package position

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
)

// TestGate_RequestPermission resolves only undecided permissions.
func TestGate_RequestPermission(t *testing.T) {
	t.Parallel()

	g := NewGate(geofence.PermissionNotDetermined, geofence.PermissionGrantedWhileInUse, true)
	require.ErrorIs(t, g.Check(), geofence.ErrPermissionDenied)

	p, err := g.RequestPermission(context.Background())
	require.NoError(t, err)
	require.Equal(t, geofence.PermissionGrantedWhileInUse, p)
	require.NoError(t, g.Check())

	denied := NewGate(geofence.PermissionDenied, geofence.PermissionGrantedAlways, true)
	p, err = denied.RequestPermission(context.Background())
	require.NoError(t, err)
	require.Equal(t, geofence.PermissionDenied, p)
}

// TestGate_ServiceDisabledWins verifies the service switch is reported before the permission.
func TestGate_ServiceDisabledWins(t *testing.T) {
	t.Parallel()

	g := NewGate(geofence.PermissionDenied, geofence.PermissionDenied, false)

	blocked, ok := geofence.AsBlocked(g.Check())
	require.True(t, ok)
	require.Equal(t, geofence.ConditionServiceDisabled, blocked.Condition)

	g.SetServiceEnabled(true)

	blocked, ok = geofence.AsBlocked(Check(NewScriptedSource(g)))
	require.True(t, ok)
	require.Equal(t, geofence.ConditionPermissionDenied, blocked.Condition)

	g.SetPermission(geofence.PermissionGrantedAlways)
	require.NoError(t, g.Check())
}
