package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	api "github.com/oshokin/wake-me-up/internal/api/grpc/tracking"
	"github.com/oshokin/wake-me-up/internal/logger"
)

// Options controls the control server of a running tracker.
type Options struct {
	// ConfigAddress is the control address from the settings.
	ConfigAddress string
	// ListenAddress overrides ConfigAddress when set.
	ListenAddress string
	// Service is the session the API controls.
	Service api.Service
}

var (
	// ErrNoServerAddress indicates missing server configuration.
	ErrNoServerAddress = errors.New("no control address configured")
	// errNoService is returned when Options carry no session.
	errNoService = errors.New("no session to control")
)

// Run listens on the control address and serves the API until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	if opts.Service == nil {
		return errNoService
	}

	listenAddress, err := resolveListenAddress(opts.ConfigAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	return Serve(ctx, lis, opts.Service)
}

// Serve serves the control API on lis and blocks until ctx is canceled and
// in-flight calls have finished.
func Serve(ctx context.Context, lis net.Listener, service api.Service) error {
	ctx = logger.WithName(ctx, "control-server")

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(logCalls(ctx)))
	api.RegisterControlServer(grpcServer, api.NewServer(service))

	logger.InfoKV(ctx, "Control server listening", "listen_address", lis.Addr().String())

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// logCalls logs every call with its outcome. Handlers log on the server's
// named logger.
func logCalls(base context.Context) grpc.UnaryServerInterceptor {
	named := logger.FromContext(base)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx = logger.ToContext(ctx, named)
		started := time.Now()

		resp, err := handler(ctx, req)

		logger.DebugKV(ctx, "Control call",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed", time.Since(started).String())

		return resp, err
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, it is used directly. Otherwise the configured
// control address is used as is, so a loopback address stays local.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	if _, _, err := net.SplitHostPort(configAddr); err != nil {
		return "", fmt.Errorf("invalid control address format %q: %w", configAddr, err)
	}

	return configAddr, nil
}
