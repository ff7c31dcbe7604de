// Package position provides position sources for tracking sessions.
//
// A Source wraps a location service: it reports the permission and service
// availability, and streams position updates while started. Availability is
// held by a Gate shared by every implementation, so a source refuses to
// stream, with a geofence.BlockedError, when permission is missing or the
// service is off.
//
// Implementations:
//   - ReplaySource replays a recorded track file at a fixed interval,
//   - GTFSRTSource follows a transit vehicle in a GTFS-Realtime feed,
//   - ScriptedSource delivers samples pushed by the caller.
package position
