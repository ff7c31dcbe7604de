package tracking

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/wake-me-up/internal/logger"
	"github.com/oshokin/wake-me-up/internal/tracking"
)

// ActorMetadataKey carries "user@host" of the caller for the audit log.
const ActorMetadataKey = "x-wakemeup-actor"

// Service abstracts the session operations the transport layer depends on.
type Service interface {
	Status() tracking.Snapshot
	Acknowledge(ctx context.Context) error
	Snooze(ctx context.Context, d time.Duration) error
	Stop(ctx context.Context) error
}

var _ ControlServer = (*Server)(nil)

// Server implements the TrackingControl gRPC API.
type Server struct {
	// service is the controlled session.
	service Service
}

// NewServer wires the provided session into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetStatus returns the current session snapshot.
func (s *Server) GetStatus(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.snapshot()
}

// Acknowledge confirms arrival and ends the session.
func (s *Server) Acknowledge(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	logger.InfoKV(ctx, "Acknowledge requested", "actor", actorFrom(ctx))

	if err := s.service.Acknowledge(ctx); err != nil {
		return nil, toStatusError(err)
	}

	return s.snapshot()
}

// Snooze silences the alarm; an absent or zero duration selects the default.
func (s *Server) Snooze(ctx context.Context, req *durationpb.Duration) (*structpb.Struct, error) {
	var d time.Duration

	if req != nil {
		if err := req.CheckValid(); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}

		d = req.AsDuration()
	}

	if d < 0 {
		return nil, status.Error(codes.InvalidArgument, "snooze duration must not be negative")
	}

	logger.InfoKV(ctx, "Snooze requested", "actor", actorFrom(ctx), "duration", d.String())

	if err := s.service.Snooze(ctx, d); err != nil {
		return nil, toStatusError(err)
	}

	return s.snapshot()
}

// Stop ends the session from any state.
func (s *Server) Stop(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	logger.InfoKV(ctx, "Stop requested", "actor", actorFrom(ctx))

	if err := s.service.Stop(ctx); err != nil {
		return nil, toStatusError(err)
	}

	return s.snapshot()
}

func (s *Server) snapshot() (*structpb.Struct, error) {
	out, err := SnapshotToStruct(s.service.Status())
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode status")
	}

	return out, nil
}

// toStatusError maps session errors to gRPC codes.
func toStatusError(err error) error {
	switch {
	case errors.Is(err, tracking.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, tracking.ErrSessionClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// actorFrom reads the caller identity from the request metadata.
func actorFrom(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "unknown"
	}

	if values := md.Get(ActorMetadataKey); len(values) > 0 {
		return values[0]
	}

	return "unknown"
}
