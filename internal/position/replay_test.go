package position

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
)

const testTrack = `interval: 2s
samples:
  - lat: 41.0
    lon: 28.9
  - error: tunnel
  - lat: 41.1
    lon: 29.0
`

func writeTrack(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "track.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

// TestLoadTrack validates parsing and rejection of bad tracks.
func TestLoadTrack(t *testing.T) {
	t.Parallel()

	track, err := LoadTrack(writeTrack(t, testTrack))
	require.NoError(t, err)
	require.Len(t, track.Points, 3)
	require.Equal(t, 2*time.Second, track.Interval)
	require.Equal(t, "tunnel", track.Points[1].Error)

	_, err = LoadTrack(writeTrack(t, "samples: []\n"))
	require.ErrorIs(t, err, ErrEmptyTrack)

	_, err = LoadTrack(writeTrack(t, "samples:\n  - lat: 120\n    lon: 0\n"))
	require.ErrorIs(t, err, geofence.ErrInvalidCoordinate)

	_, err = LoadTrack(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// TestReplaySource_ReplaysAtInterval verifies order, pacing and silence after the last point.
func TestReplaySource_ReplaysAtInterval(t *testing.T) {
	t.Parallel()

	path := writeTrack(t, testTrack)

	synctest.Test(t, func(t *testing.T) {
		track, err := LoadTrack(path)
		require.NoError(t, err)

		gate := NewGate(geofence.PermissionGrantedAlways, geofence.PermissionGrantedAlways, true)
		r := NewReplaySource(gate, track, time.Minute)

		start := time.Now()

		updates, err := r.StartStreaming(context.Background())
		require.NoError(t, err)

		first := <-updates
		require.NoError(t, first.Err)
		require.InDelta(t, 41.0, first.Sample.Coordinate.Latitude, 1e-9)

		second := <-updates
		require.Error(t, second.Err)
		require.Equal(t, 2*time.Second, time.Since(start))

		third := <-updates
		require.NoError(t, third.Err)
		require.Equal(t, 4*time.Second, time.Since(start))

		// Nothing more arrives after the last point.
		synctest.Wait()
		select {
		case u := <-updates:
			t.Fatalf("unexpected update %+v", u)
		default:
		}

		r.StopStreaming()

		_, open := <-updates
		require.False(t, open)
	})
}

// TestReplaySource_Blocked ensures the gate is consulted before replaying.
func TestReplaySource_Blocked(t *testing.T) {
	t.Parallel()

	gate := NewGate(geofence.PermissionGrantedAlways, geofence.PermissionGrantedAlways, false)
	r := NewReplaySource(gate, &Track{Points: []TrackPoint{{Latitude: 1, Longitude: 1}}}, 0)

	_, err := r.StartStreaming(context.Background())
	require.ErrorIs(t, err, geofence.ErrServiceDisabled)
}
