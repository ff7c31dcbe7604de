package position

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
)

var errTestSignal = errors.New("signal lost")

// TestScriptedSource_Gated ensures a blocked source refuses to stream.
func TestScriptedSource_Gated(t *testing.T) {
	t.Parallel()

	s := NewScriptedSource(NewGate(geofence.PermissionDenied, geofence.PermissionDenied, true))

	updates, err := s.StartStreaming(context.Background())
	require.ErrorIs(t, err, geofence.ErrPermissionDenied)
	require.Nil(t, updates)
	require.False(t, s.Streaming())
	require.Equal(t, 1, s.StartCalls())
	require.False(t, s.Push(context.Background(), geofence.Coordinate{}))
}

// TestScriptedSource_StreamLifecycle covers delivery, CurrentPosition, single stream and stop.
func TestScriptedSource_StreamLifecycle(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		s := NewScriptedSource(NewGate(geofence.PermissionGrantedAlways, geofence.PermissionGrantedAlways, true))

		_, ok := s.CurrentPosition()
		require.False(t, ok)

		updates, err := s.StartStreaming(ctx)
		require.NoError(t, err)

		_, err = s.StartStreaming(ctx)
		require.ErrorIs(t, err, ErrAlreadyStreaming)

		point := geofence.Coordinate{Latitude: 41, Longitude: 29}
		require.True(t, s.Push(ctx, point))

		u := <-updates
		require.NoError(t, u.Err)
		require.Equal(t, point, u.Sample.Coordinate)

		current, ok := s.CurrentPosition()
		require.True(t, ok)
		require.Equal(t, point, current.Coordinate)

		require.True(t, s.PushError(ctx, errTestSignal))
		u = <-updates
		require.ErrorIs(t, u.Err, errTestSignal)

		s.StopStreaming()
		s.StopStreaming()

		_, open := <-updates
		require.False(t, open)

		_, ok = s.CurrentPosition()
		require.False(t, ok)
		require.False(t, s.Push(ctx, point))
		require.Equal(t, 2, s.StopCalls())
	})
}

// TestScriptedSource_Interrupt verifies a provider-side close and a restart.
func TestScriptedSource_Interrupt(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		s := NewScriptedSource(NewGate(geofence.PermissionGrantedAlways, geofence.PermissionGrantedAlways, true))

		require.False(t, s.Interrupt(ctx))

		updates, err := s.StartStreaming(ctx)
		require.NoError(t, err)
		require.True(t, s.Interrupt(ctx))

		_, open := <-updates
		require.False(t, open)
		require.False(t, s.Push(ctx, geofence.Coordinate{}))

		s.StopStreaming()

		updates, err = s.StartStreaming(ctx)
		require.NoError(t, err)

		point := geofence.Coordinate{Latitude: 41, Longitude: 29}
		require.True(t, s.Push(ctx, point))
		require.Equal(t, point, (<-updates).Sample.Coordinate)

		s.StopStreaming()
	})
}
