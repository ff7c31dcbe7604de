package position

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
)

const (
	// DefaultFeedPollInterval is how often the vehicle positions feed is fetched.
	DefaultFeedPollInterval = 10 * time.Second
	// DefaultFeedTimeout bounds a single feed request.
	DefaultFeedTimeout = 5 * time.Second
	// maxFeedSize caps the body read from the feed.
	maxFeedSize = 32 << 20
)

var (
	// ErrVehicleRequired is returned when neither a vehicle nor a trip id is configured.
	ErrVehicleRequired = errors.New("vehicle id or trip id must be provided")
	// ErrFeedURLRequired is returned when the feed URL is missing.
	ErrFeedURLRequired = errors.New("feed url must be provided")
	// errBadFeedStatus is returned for non-200 feed responses.
	errBadFeedStatus = errors.New("unexpected feed http status")
)

// GTFSRTOptions configures a GTFSRTSource.
type GTFSRTOptions struct {
	// FeedURL is the GTFS-Realtime VehiclePositions endpoint.
	FeedURL string
	// VehicleID selects the vehicle by its descriptor id.
	VehicleID string
	// TripID selects the vehicle serving a trip when VehicleID is empty.
	TripID string
	// PollInterval is the delay between feed fetches.
	PollInterval time.Duration
	// Timeout bounds one fetch.
	Timeout time.Duration
	// UserAgent identifies the client to the feed operator.
	UserAgent string
	// Headers are added to each request, e.g. an API key.
	Headers map[string]string
}

// GTFSRTSource follows the vehicle the rider is on through a GTFS-Realtime feed.
// The vehicle position stands in for the device position.
type GTFSRTSource struct {
	*Gate
	stream

	// opts holds the feed and vehicle selection.
	opts GTFSRTOptions
	// client fetches the feed.
	client *http.Client
}

// NewGTFSRTSource validates opts and creates the source.
func NewGTFSRTSource(gate *Gate, opts GTFSRTOptions, client *http.Client) (*GTFSRTSource, error) {
	if opts.FeedURL == "" {
		return nil, ErrFeedURLRequired
	}

	if opts.VehicleID == "" && opts.TripID == "" {
		return nil, ErrVehicleRequired
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultFeedPollInterval
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFeedTimeout
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &GTFSRTSource{
		Gate:   gate,
		opts:   opts,
		client: client,
	}, nil
}

// StartStreaming starts polling the feed.
func (g *GTFSRTSource) StartStreaming(ctx context.Context) (<-chan Update, error) {
	if err := g.Check(); err != nil {
		return nil, err
	}

	return g.start(ctx, g.poll)
}

// StopStreaming stops polling.
func (g *GTFSRTSource) StopStreaming() {
	g.stop()
}

// CurrentPosition returns the last vehicle position while streaming.
func (g *GTFSRTSource) CurrentPosition() (geofence.PositionSample, bool) {
	return g.current()
}

func (g *GTFSRTSource) poll(ctx context.Context, emit func(Update) bool) {
	ticker := time.NewTicker(g.opts.PollInterval)
	defer ticker.Stop()

	for {
		sample, err := g.fetch(ctx)
		if ctx.Err() != nil {
			return
		}

		if !emit(Update{Sample: sample, Err: err}) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// fetch downloads the feed once and extracts the followed vehicle.
func (g *GTFSRTSource) fetch(ctx context.Context) (geofence.PositionSample, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, g.opts.FeedURL, nil)
	if err != nil {
		return geofence.PositionSample{}, fmt.Errorf("build feed request: %w", err)
	}

	if g.opts.UserAgent != "" {
		req.Header.Set("User-Agent", g.opts.UserAgent)
	}

	for k, v := range g.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return geofence.PositionSample{}, fmt.Errorf("fetch feed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return geofence.PositionSample{}, fmt.Errorf("%w: %d", errBadFeedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return geofence.PositionSample{}, fmt.Errorf("read feed: %w", err)
	}

	var feed gtfsrt.FeedMessage
	if err = proto.Unmarshal(body, &feed); err != nil {
		return geofence.PositionSample{}, fmt.Errorf("decode feed: %w", err)
	}

	return FindVehicle(&feed, g.opts.VehicleID, g.opts.TripID)
}

// FindVehicle returns the position of the vehicle matching vehicleID, or the
// one serving tripID when vehicleID is empty.
func FindVehicle(feed *gtfsrt.FeedMessage, vehicleID, tripID string) (geofence.PositionSample, error) {
	for _, entity := range feed.GetEntity() {
		vehicle := entity.GetVehicle()
		if vehicle == nil || vehicle.GetPosition() == nil {
			continue
		}

		matched := vehicleID != "" && vehicle.GetVehicle().GetId() == vehicleID
		if vehicleID == "" {
			matched = tripID != "" && vehicle.GetTrip().GetTripId() == tripID
		}

		if !matched {
			continue
		}

		timestamp := time.Now()
		if ts := vehicle.GetTimestamp(); ts > 0 {
			timestamp = time.Unix(int64(ts), 0) //nolint:gosec // Feed timestamps are POSIX seconds.
		}

		return geofence.PositionSample{
			Coordinate: geofence.Coordinate{
				Latitude:  float64(vehicle.GetPosition().GetLatitude()),
				Longitude: float64(vehicle.GetPosition().GetLongitude()),
			},
			Timestamp: timestamp,
		}, nil
	}

	return geofence.PositionSample{}, fmt.Errorf("%w: vehicle %q trip %q not in feed", ErrNoFix, vehicleID, tripID)
}
