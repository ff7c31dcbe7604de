package geofence

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// DefaultRadiusMeters is the radius offered for a new location.
	DefaultRadiusMeters = 500

	// metersPerKilometer is used by FormatDistance.
	metersPerKilometer = 1000
)

// RadiusOptions are the preset radii offered when saving a location.
//
//nolint:gochecknoglobals // Read-only preset list.
var RadiusOptions = []int{500, 1000, 1500, 2000}

var (
	// ErrInvalidCoordinate is returned for latitude/longitude outside of their ranges.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrInvalidRadius is returned when a radius is not a positive number of metres.
	ErrInvalidRadius = errors.New("radius must be greater than zero")
	// ErrUnknownAlarmMode is returned when an alarm mode cannot be parsed.
	ErrUnknownAlarmMode = errors.New("unknown alarm mode")
)

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	// Latitude in degrees, north positive.
	Latitude float64 `yaml:"lat" json:"lat"`
	// Longitude in degrees, east positive.
	Longitude float64 `yaml:"lon" json:"lon"`
}

// Validate checks that the coordinate is within the valid WGS84 ranges.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, c.Latitude)
	}

	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, c.Longitude)
	}

	return nil
}

// String renders the coordinate as "lat,lon".
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// AlarmMode selects the effect played when the alarm fires.
type AlarmMode int

const (
	// AlarmModeSound loops the alarm sound.
	AlarmModeSound AlarmMode = iota + 1
	// AlarmModeVibration repeats vibration bursts.
	AlarmModeVibration
	// AlarmModeBoth plays the sound and vibrates.
	AlarmModeBoth
)

// String returns the persisted name of the mode.
func (m AlarmMode) String() string {
	switch m {
	case AlarmModeSound:
		return "sound"
	case AlarmModeVibration:
		return "vibration"
	case AlarmModeBoth:
		return "both"
	default:
		return fmt.Sprintf("AlarmMode(%d)", int(m))
	}
}

// Valid reports whether m is one of the known modes.
func (m AlarmMode) Valid() bool {
	return m == AlarmModeSound || m == AlarmModeVibration || m == AlarmModeBoth
}

// ParseAlarmMode converts a name into an AlarmMode. "alarm" is accepted as a synonym of "sound".
func ParseAlarmMode(s string) (AlarmMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sound", "alarm":
		return AlarmModeSound, nil
	case "vibration", "vibrate":
		return AlarmModeVibration, nil
	case "both", "sound+vibration":
		return AlarmModeBoth, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlarmMode, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m AlarmMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlarmMode, int(m))
	}

	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *AlarmMode) UnmarshalText(text []byte) error {
	parsed, err := ParseAlarmMode(string(text))
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}

// Target is the immutable destination a tracking session watches.
type Target struct {
	// Coordinate is the centre of the geofence.
	Coordinate Coordinate
	// RadiusMeters is the geofence radius; a distance equal to it counts as inside.
	RadiusMeters int
	// AlarmMode is the effect played on trigger.
	AlarmMode AlarmMode
}

// Validate checks the target before a session is created for it.
func (t Target) Validate() error {
	if err := t.Coordinate.Validate(); err != nil {
		return err
	}

	if t.RadiusMeters <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRadius, t.RadiusMeters)
	}

	if !t.AlarmMode.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownAlarmMode, int(t.AlarmMode))
	}

	return nil
}

// Contains reports whether a distance lies inside the geofence.
func (t Target) Contains(distanceMeters float64) bool {
	return distanceMeters <= float64(t.RadiusMeters)
}

// Location is a saved destination record.
type Location struct {
	// ID is the unique identifier of the record.
	ID string
	// Name is the user-facing label, e.g. a stop name.
	Name string
	// Coordinate is the destination point.
	Coordinate Coordinate
	// RadiusMeters is the alarm radius.
	RadiusMeters int
	// AlarmMode is the effect to play on arrival.
	AlarmMode AlarmMode
	// CreatedAt is when the record was saved.
	CreatedAt time.Time
	// IsFavorite marks the location for the favorites list.
	IsFavorite bool
}

// Target projects the record into the value a session tracks against.
func (l *Location) Target() Target {
	return Target{
		Coordinate:   l.Coordinate,
		RadiusMeters: l.RadiusMeters,
		AlarmMode:    l.AlarmMode,
	}
}

// Clone returns a copy of the location.
func (l *Location) Clone() *Location {
	if l == nil {
		return nil
	}

	cloned := *l

	return &cloned
}

// PositionSample is one position fix delivered by a position source.
type PositionSample struct {
	// Coordinate is where the device was.
	Coordinate Coordinate
	// Timestamp is when the fix was taken.
	Timestamp time.Time
}

// FormatDistance renders a distance the way the tracking screen shows it.
func FormatDistance(meters float64) string {
	if meters >= metersPerKilometer {
		return fmt.Sprintf("%.1f km", meters/metersPerKilometer)
	}

	return fmt.Sprintf("%d m", int(meters))
}
