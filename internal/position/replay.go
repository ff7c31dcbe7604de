package position

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
)

// DefaultReplayInterval is the delay between replayed samples.
const DefaultReplayInterval = time.Second

var (
	// ErrEmptyTrack is returned for a track without samples.
	ErrEmptyTrack = errors.New("track has no samples")
	// errReplayedFailure wraps failures recorded in a track file.
	errReplayedFailure = errors.New("replayed stream failure")
)

// TrackPoint is one entry of a recorded track.
type TrackPoint struct {
	// Latitude of the fix in degrees.
	Latitude float64 `yaml:"lat"`
	// Longitude of the fix in degrees.
	Longitude float64 `yaml:"lon"`
	// Error, when set, replays a stream failure instead of a fix.
	Error string `yaml:"error,omitempty"`
}

// Track is a recorded sequence of fixes.
type Track struct {
	// Interval overrides the replay interval when positive.
	Interval time.Duration `yaml:"interval,omitempty"`
	// Loop restarts the track after the last point.
	Loop bool `yaml:"loop,omitempty"`
	// Points are replayed in order.
	Points []TrackPoint `yaml:"samples"`
}

// LoadTrack reads a YAML track file.
func LoadTrack(path string) (*Track, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read track: %w", err)
	}

	var track Track
	if err = yaml.Unmarshal(contents, &track); err != nil {
		return nil, fmt.Errorf("unmarshal track: %w", err)
	}

	if len(track.Points) == 0 {
		return nil, ErrEmptyTrack
	}

	for i, p := range track.Points {
		if p.Error != "" {
			continue
		}

		c := geofence.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
		if err = c.Validate(); err != nil {
			return nil, fmt.Errorf("track point %d: %w", i, err)
		}
	}

	return &track, nil
}

// ReplaySource replays a track at a fixed interval, simulating a GPS receiver.
// After the last point it stays silent until stopped, unless the track loops.
type ReplaySource struct {
	*Gate
	stream

	// track is the recording being replayed.
	track *Track
	// interval is the delay between points.
	interval time.Duration
}

// NewReplaySource creates a replay source; the track interval wins over interval when set.
func NewReplaySource(gate *Gate, track *Track, interval time.Duration) *ReplaySource {
	if track.Interval > 0 {
		interval = track.Interval
	}

	if interval <= 0 {
		interval = DefaultReplayInterval
	}

	return &ReplaySource{
		Gate:     gate,
		track:    track,
		interval: interval,
	}
}

// StartStreaming begins the replay from the first point.
func (r *ReplaySource) StartStreaming(ctx context.Context) (<-chan Update, error) {
	if err := r.Check(); err != nil {
		return nil, err
	}

	return r.start(ctx, r.replay)
}

// StopStreaming ends the replay.
func (r *ReplaySource) StopStreaming() {
	r.stop()
}

// CurrentPosition returns the last replayed fix while streaming.
func (r *ReplaySource) CurrentPosition() (geofence.PositionSample, bool) {
	return r.current()
}

func (r *ReplaySource) replay(ctx context.Context, emit func(Update) bool) {
	if len(r.track.Points) == 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		if i == len(r.track.Points) {
			if !r.track.Loop {
				<-ctx.Done()
				return
			}

			i = 0
		}

		if !emit(toUpdate(r.track.Points[i])) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func toUpdate(p TrackPoint) Update {
	if p.Error != "" {
		return Update{Err: fmt.Errorf("%w: %s", errReplayedFailure, p.Error)}
	}

	return Update{
		Sample: geofence.PositionSample{
			Coordinate: geofence.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude},
			Timestamp:  time.Now(),
		},
	}
}
