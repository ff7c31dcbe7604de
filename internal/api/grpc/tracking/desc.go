package tracking

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "wakemeup.v1.TrackingControl"

	// GetStatusMethod is the full method name of GetStatus.
	GetStatusMethod = "/" + ServiceName + "/GetStatus"
	// AcknowledgeMethod is the full method name of Acknowledge.
	AcknowledgeMethod = "/" + ServiceName + "/Acknowledge"
	// SnoozeMethod is the full method name of Snooze.
	SnoozeMethod = "/" + ServiceName + "/Snooze"
	// StopMethod is the full method name of Stop.
	StopMethod = "/" + ServiceName + "/Stop"
)

// ControlServer is the server API of the TrackingControl service.
type ControlServer interface {
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Acknowledge(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Snooze(ctx context.Context, req *durationpb.Duration) (*structpb.Struct, error)
	Stop(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes the TrackingControl service for grpc.Server.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler: unary(GetStatusMethod, newEmpty, func(ctx context.Context, srv ControlServer, req any) (any, error) {
				return srv.GetStatus(ctx, req.(*emptypb.Empty))
			}),
		},
		{
			MethodName: "Acknowledge",
			Handler: unary(AcknowledgeMethod, newEmpty, func(ctx context.Context, srv ControlServer, req any) (any, error) {
				return srv.Acknowledge(ctx, req.(*emptypb.Empty))
			}),
		},
		{
			MethodName: "Snooze",
			Handler: unary(SnoozeMethod, newDuration, func(ctx context.Context, srv ControlServer, req any) (any, error) {
				return srv.Snooze(ctx, req.(*durationpb.Duration))
			}),
		},
		{
			MethodName: "Stop",
			Handler: unary(StopMethod, newEmpty, func(ctx context.Context, srv ControlServer, req any) (any, error) {
				return srv.Stop(ctx, req.(*emptypb.Empty))
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wakemeup/v1/tracking.proto",
}

// RegisterControlServer registers srv on s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary builds a method handler that decodes the request created by newReq
// and honors server interceptors.
func unary(
	fullMethod string,
	newReq func() any,
	call func(ctx context.Context, srv ControlServer, req any) (any, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(ControlServer)
		if interceptor == nil {
			return call(ctx, server, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(ctx, server, req)
		})
	}
}

func newEmpty() any { return new(emptypb.Empty) }

func newDuration() any { return new(durationpb.Duration) }
