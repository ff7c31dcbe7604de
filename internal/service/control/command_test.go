package control

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/wake-me-up/internal/config"
	"github.com/oshokin/wake-me-up/internal/domain/geofence"
	"github.com/oshokin/wake-me-up/internal/repository/state"
	"github.com/oshokin/wake-me-up/internal/service/server"
	"github.com/oshokin/wake-me-up/internal/tracking"
)

// stubSession answers control calls like a triggered session.
type stubSession struct {
	mu      sync.Mutex
	state   geofence.SessionState
	closed  bool
	snoozed time.Duration
}

func (s *stubSession) Status() tracking.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	distance := 120.0

	snapshot := tracking.Snapshot{
		State:              s.state,
		LocationName:       "Sirkeci",
		Target:             geofence.Target{RadiusMeters: 500, AlarmMode: geofence.AlarmModeSound},
		LastDistanceMeters: &distance,
		Triggers:           1,
		Closed:             s.closed,
	}

	if s.state == geofence.StateSnoozed {
		remaining := int(s.snoozed / time.Second)
		snapshot.SnoozeRemainingSeconds = &remaining
	}

	if s.closed {
		snapshot.EndReason = tracking.EndAcknowledged
	}

	return snapshot
}

func (s *stubSession) Acknowledge(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

func (s *stubSession) Snooze(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != geofence.StateTriggered {
		return tracking.ErrInvalidTransition
	}

	s.state = geofence.StateSnoozed
	s.snoozed = d

	return nil
}

func (s *stubSession) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// writeConfig saves settings pointing at address and returns the file path.
func writeConfig(t *testing.T, address string) (string, *config.Config) {
	t.Helper()

	dir := t.TempDir()

	cfg := config.Default()
	cfg.ControlAddress = address
	cfg.StateFile = filepath.Join(dir, "state.json")
	cfg.Timeout = 5 * time.Second

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(path, cfg))

	return path, cfg
}

// serve runs the control server for session and returns its address.
func serve(t *testing.T, session *stubSession) string {
	t.Helper()

	lc := net.ListenConfig{}
	lis, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = server.Serve(ctx, lis, session)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return lis.Addr().String()
}

// unusedAddress returns a loopback address nobody listens on.
func unusedAddress(t *testing.T) string {
	t.Helper()

	lc := net.ListenConfig{}
	lis, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	address := lis.Addr().String()
	require.NoError(t, lis.Close())

	return address
}

// TestRun_Actions sends each action to a live server and checks the printout.
func TestRun_Actions(t *testing.T) {
	t.Parallel()

	session := &stubSession{state: geofence.StateTriggered}
	path, _ := writeConfig(t, serve(t, session))

	var out bytes.Buffer

	require.NoError(t, Run(t.Context(), &Options{ConfigPath: path, Action: ActionStatus, Out: &out}))
	require.Contains(t, out.String(), "Sirkeci")
	require.Contains(t, out.String(), "triggered")
	require.Contains(t, out.String(), "120 m")
	require.Contains(t, out.String(), "radius 500 m")

	out.Reset()
	require.NoError(t, Run(t.Context(), &Options{
		ConfigPath:     path,
		Action:         ActionSnooze,
		SnoozeDuration: 30 * time.Second,
		Out:            &out,
	}))
	require.Contains(t, out.String(), "resumes in 30 s")

	// A second snooze is rejected by the session and reported plainly.
	err := Run(t.Context(), &Options{ConfigPath: path, Action: ActionSnooze, Out: &out})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid")
	require.NotErrorIs(t, err, ErrUnreachable)

	out.Reset()
	require.NoError(t, Run(t.Context(), &Options{ConfigPath: path, Action: ActionAcknowledge, Out: &out}))
	require.Contains(t, out.String(), "acknowledged")
}

// TestRun_ServerAddressOverride ignores the configured address.
func TestRun_ServerAddressOverride(t *testing.T) {
	t.Parallel()

	address := serve(t, &stubSession{state: geofence.StateArmed})
	path, _ := writeConfig(t, unusedAddress(t))

	var out bytes.Buffer

	require.NoError(t, Run(t.Context(), &Options{
		ConfigPath:    path,
		ServerAddress: address,
		Action:        ActionStop,
		Out:           &out,
	}))
	require.Contains(t, out.String(), "Ended:")
}

// TestRun_StatusFallsBackToLastSession prints the saved summary when no tracker answers.
func TestRun_StatusFallsBackToLastSession(t *testing.T) {
	t.Parallel()

	path, cfg := writeConfig(t, unusedAddress(t))

	var out bytes.Buffer

	require.NoError(t, Run(t.Context(), &Options{ConfigPath: path, Action: ActionStatus, Out: &out}))
	require.Contains(t, out.String(), "no session has been recorded")

	ended := time.Date(2026, time.March, 1, 8, 30, 0, 0, time.UTC)
	require.NoError(t, state.NewFileRepository(cfg.StateFile).Save(t.Context(), &state.AppState{
		LastSession: &state.SessionRecord{
			LocationName: "Sirkeci",
			StartedAt:    ended.Add(-time.Hour),
			TriggeredAt:  ended.Add(-time.Minute),
			EndedAt:      ended,
			Triggers:     2,
			Outcome:      string(tracking.EndAcknowledged),
		},
	}))

	out.Reset()
	require.NoError(t, Run(t.Context(), &Options{ConfigPath: path, Action: ActionStatus, Out: &out}))
	require.Contains(t, out.String(), "Last session")
	require.Contains(t, out.String(), "Sirkeci")
	require.Contains(t, out.String(), "acknowledged")
	require.Contains(t, out.String(), "Triggered:")
}

// TestRun_Unreachable reports a missing tracker for commands other than status.
func TestRun_Unreachable(t *testing.T) {
	t.Parallel()

	path, _ := writeConfig(t, unusedAddress(t))

	err := Run(t.Context(), &Options{ConfigPath: path, Action: ActionStop, Out: new(bytes.Buffer)})
	require.ErrorIs(t, err, ErrUnreachable)
}

// TestRun_UnknownAction rejects actions outside the command set.
func TestRun_UnknownAction(t *testing.T) {
	t.Parallel()

	path, _ := writeConfig(t, unusedAddress(t))

	err := Run(t.Context(), &Options{ConfigPath: path, Action: "reboot", Out: new(bytes.Buffer)})
	require.ErrorIs(t, err, errUnknownAction)
}
