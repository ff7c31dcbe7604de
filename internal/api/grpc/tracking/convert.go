package tracking

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
	"github.com/oshokin/wake-me-up/internal/tracking"
)

// SnapshotToStruct converts a session snapshot into its wire form.
// Unknown values (no distance yet, not snoozed) are encoded as null.
func SnapshotToStruct(s tracking.Snapshot) (*structpb.Struct, error) {
	fields := map[string]any{
		"state":         s.State.String(),
		"location_id":   s.LocationID,
		"location_name": s.LocationName,
		"target": map[string]any{
			"lat":           s.Target.Coordinate.Latitude,
			"lon":           s.Target.Coordinate.Longitude,
			"radius_meters": s.Target.RadiusMeters,
			"alarm_mode":    s.Target.AlarmMode.String(),
		},
		"last_distance_meters":     nil,
		"last_position":            nil,
		"has_fired_once":           s.HasFiredOnce,
		"snooze_remaining_seconds": nil,
		"condition":                s.Condition.String(),
		"permission":               s.Permission.String(),
		"samples":                  s.Samples,
		"position_errors":          s.PositionErrors,
		"triggers":                 s.Triggers,
		"snoozes":                  s.Snoozes,
		"notification_failures":    s.NotificationFailures,
		"started_at":               formatTime(s.StartedAt),
		"triggered_at":             formatTime(s.TriggeredAt),
		"closed":                   s.Closed,
		"end_reason":               string(s.EndReason),
	}

	if s.LastDistanceMeters != nil {
		fields["last_distance_meters"] = *s.LastDistanceMeters
	}

	if s.LastPosition != nil {
		fields["last_position"] = map[string]any{
			"lat":       s.LastPosition.Coordinate.Latitude,
			"lon":       s.LastPosition.Coordinate.Longitude,
			"timestamp": formatTime(s.LastPosition.Timestamp),
		}
	}

	if s.SnoozeRemainingSeconds != nil {
		fields["snooze_remaining_seconds"] = *s.SnoozeRemainingSeconds
	}

	return structpb.NewStruct(fields)
}

// SnapshotFromStruct is the inverse of SnapshotToStruct.
func SnapshotFromStruct(in *structpb.Struct) tracking.Snapshot {
	f := in.GetFields()
	target := f["target"].GetStructValue().GetFields()

	mode, _ := geofence.ParseAlarmMode(target["alarm_mode"].GetStringValue())
	permission, _ := geofence.ParsePermissionState(f["permission"].GetStringValue())

	s := tracking.Snapshot{
		State:        geofence.ParseSessionState(f["state"].GetStringValue()),
		LocationID:   f["location_id"].GetStringValue(),
		LocationName: f["location_name"].GetStringValue(),
		Target: geofence.Target{
			Coordinate: geofence.Coordinate{
				Latitude:  target["lat"].GetNumberValue(),
				Longitude: target["lon"].GetNumberValue(),
			},
			RadiusMeters: int(target["radius_meters"].GetNumberValue()),
			AlarmMode:    mode,
		},
		HasFiredOnce:         f["has_fired_once"].GetBoolValue(),
		Condition:            geofence.ParseCondition(f["condition"].GetStringValue()),
		Permission:           permission,
		Samples:              uint64(f["samples"].GetNumberValue()),
		PositionErrors:       uint64(f["position_errors"].GetNumberValue()),
		Triggers:             uint64(f["triggers"].GetNumberValue()),
		Snoozes:              uint64(f["snoozes"].GetNumberValue()),
		NotificationFailures: uint64(f["notification_failures"].GetNumberValue()),
		StartedAt:            parseTime(f["started_at"].GetStringValue()),
		TriggeredAt:          parseTime(f["triggered_at"].GetStringValue()),
		Closed:               f["closed"].GetBoolValue(),
		EndReason:            tracking.EndReason(f["end_reason"].GetStringValue()),
	}

	if v, ok := f["last_distance_meters"].GetKind().(*structpb.Value_NumberValue); ok {
		d := v.NumberValue
		s.LastDistanceMeters = &d
	}

	if p := f["last_position"].GetStructValue(); p != nil {
		pf := p.GetFields()
		s.LastPosition = &geofence.PositionSample{
			Coordinate: geofence.Coordinate{
				Latitude:  pf["lat"].GetNumberValue(),
				Longitude: pf["lon"].GetNumberValue(),
			},
			Timestamp: parseTime(pf["timestamp"].GetStringValue()),
		}
	}

	if v, ok := f["snooze_remaining_seconds"].GetKind().(*structpb.Value_NumberValue); ok {
		seconds := int(v.NumberValue)
		s.SnoozeRemainingSeconds = &seconds
	}

	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
