package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
	"github.com/oshokin/wake-me-up/internal/tracking"
)

func snoozedSnapshot() tracking.Snapshot {
	distance := 420.5
	remaining := 37

	return tracking.Snapshot{
		State:                  geofence.StateSnoozed,
		Target:                 geofence.Target{RadiusMeters: 500},
		LastDistanceMeters:     &distance,
		HasFiredOnce:           true,
		SnoozeRemainingSeconds: &remaining,
		Condition:              geofence.ConditionAudioActivationFailed,
		Samples:                12,
		PositionErrors:         1,
		Triggers:               2,
		Snoozes:                1,
		NotificationFailures:   3,
	}
}

// TestCollector_Snapshot verifies that every field of the snapshot is exported.
func TestCollector_Snapshot(t *testing.T) {
	t.Parallel()

	c := NewCollector(snoozedSnapshot)

	expected := `
# HELP wakemeup_session_state Current session state; the series of the active state is 1.
# TYPE wakemeup_session_state gauge
wakemeup_session_state{state="armed"} 0
wakemeup_session_state{state="idle"} 0
wakemeup_session_state{state="snoozed"} 1
wakemeup_session_state{state="triggered"} 0
# HELP wakemeup_distance_meters Last evaluated distance to the target.
# TYPE wakemeup_distance_meters gauge
wakemeup_distance_meters 420.5
# HELP wakemeup_snooze_remaining_seconds Seconds until a snoozed alarm resumes.
# TYPE wakemeup_snooze_remaining_seconds gauge
wakemeup_snooze_remaining_seconds 37
# HELP wakemeup_alarm_triggers_total Alarm triggers, snooze re-triggers included.
# TYPE wakemeup_alarm_triggers_total counter
wakemeup_alarm_triggers_total 2
# HELP wakemeup_notification_failures_total Failed notification dispatches.
# TYPE wakemeup_notification_failures_total counter
wakemeup_notification_failures_total 3
`

	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"wakemeup_session_state",
		"wakemeup_distance_meters",
		"wakemeup_snooze_remaining_seconds",
		"wakemeup_alarm_triggers_total",
		"wakemeup_notification_failures_total",
	)
	require.NoError(t, err)
}

// TestCollector_UnknownValues verifies that unknown distance and countdown are omitted.
func TestCollector_UnknownValues(t *testing.T) {
	t.Parallel()

	c := NewCollector(func() tracking.Snapshot {
		return tracking.Snapshot{State: geofence.StateArmed}
	})

	// 4 states + 6 conditions + radius, has_fired_once and 5 counters.
	require.Equal(t, len(geofence.SessionStates)+len(geofence.Conditions)+7, testutil.CollectAndCount(c))
	require.Equal(t, 0, testutil.CollectAndCount(c, "wakemeup_distance_meters"))
	require.Equal(t, 0, testutil.CollectAndCount(c, "wakemeup_snooze_remaining_seconds"))
}

// TestCollector_Lint verifies that metric names and help texts follow Prometheus conventions.
func TestCollector_Lint(t *testing.T) {
	t.Parallel()

	problems, err := testutil.CollectAndLint(NewCollector(snoozedSnapshot))
	require.NoError(t, err)
	require.Empty(t, problems)
}

// TestHandler verifies that the handler serves session metrics on the metrics path.
func TestHandler(t *testing.T) {
	t.Parallel()

	h := Handler(NewRegistry(snoozedSnapshot))

	req := httptest.NewRequest(http.MethodGet, Path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `wakemeup_session_state{state="snoozed"} 1`)
	require.Contains(t, string(body), "go_goroutines")

	req = httptest.NewRequest(http.MethodGet, "/other", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
