//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/wake-me-up/internal/api/grpc/tracking"
	"github.com/oshokin/wake-me-up/internal/config"
	"github.com/oshokin/wake-me-up/internal/tracking"
)

// Client wraps the TrackingControl gRPC service with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the tracker.
	conn *grpc.ClientConn
	// actor is sent with every call for the tracker's audit log.
	actor *Actor

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor sets the identity sent with every call.
func WithActor(actor *Actor) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial prepares a gRPC connection to the tracker's control address.
// The control API is bound to the loopback interface, hence insecure credentials.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial tracker: %w", err)
	}

	client := &Client{
		conn:        conn,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetStatus retrieves the session snapshot.
func (c *Client) GetStatus(ctx context.Context) (tracking.Snapshot, error) {
	return c.invoke(ctx, "get status", api.GetStatusMethod, &emptypb.Empty{})
}

// Acknowledge confirms arrival and ends the session.
func (c *Client) Acknowledge(ctx context.Context) (tracking.Snapshot, error) {
	return c.invoke(ctx, "acknowledge", api.AcknowledgeMethod, &emptypb.Empty{})
}

// Snooze silences the alarm for d; zero selects the tracker's default.
func (c *Client) Snooze(ctx context.Context, d time.Duration) (tracking.Snapshot, error) {
	return c.invoke(ctx, "snooze", api.SnoozeMethod, durationpb.New(d))
}

// Stop ends the session from any state.
func (c *Client) Stop(ctx context.Context) (tracking.Snapshot, error) {
	return c.invoke(ctx, "stop", api.StopMethod, &emptypb.Empty{})
}

func (c *Client) invoke(ctx context.Context, name, method string, in any) (tracking.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if c.actor != nil {
		callCtx = metadata.AppendToOutgoingContext(callCtx, api.ActorMetadataKey, c.actor.String())
	}

	var out structpb.Struct
	if err := c.conn.Invoke(callCtx, method, in, &out); err != nil {
		return tracking.Snapshot{}, fmt.Errorf("%s: %w", name, err)
	}

	return api.SnapshotFromStruct(&out), nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
