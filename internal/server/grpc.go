package server

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// healthService prefixes the methods of grpc.health.v1.Health, which never
// require a token.
const healthService = "/grpc.health.v1.Health/"

// NewGRPCServer returns a gRPC server exposing health checks and
// reflection. Health reports SERVING between Start and Stop.
func (s *Server) NewGRPCServer(authToken string) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
			AuthInterceptor(authToken),
		),
		grpc.ChainStreamInterceptor(
			StreamRecoveryInterceptor,
			StreamLoggingInterceptor,
			StreamAuthInterceptor(authToken),
		),
	)
	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)
	return srv
}

// verifyIncoming checks the "authorization" metadata of an incoming call.
func (b bearer) verifyIncoming(ctx context.Context) error {
	md, _ := metadata.FromIncomingContext(ctx)
	var header string
	if vals := md.Get("authorization"); len(vals) > 0 {
		header = vals[0]
	}
	if err := b.verify(header); err != nil {
		return status.Error(codes.Unauthenticated, err.Error())
	}
	return nil
}

// AuthInterceptor rejects unary calls without the bearer token. An empty
// token disables the check.
func AuthInterceptor(token string) grpc.UnaryServerInterceptor {
	b := bearer(token)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if b != "" && !strings.HasPrefix(info.FullMethod, healthService) {
			if err := b.verifyIncoming(ctx); err != nil {
				return nil, err
			}
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor guards streams (reflection) the same way; the
// health Watch stream stays open.
func StreamAuthInterceptor(token string) grpc.StreamServerInterceptor {
	b := bearer(token)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if b != "" && !strings.HasPrefix(info.FullMethod, healthService) {
			if err := b.verifyIncoming(ss.Context()); err != nil {
				return err
			}
		}
		return handler(srv, ss)
	}
}

func LoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logRPC(ctx, info.FullMethod, start, err)
	return resp, err
}

func StreamLoggingInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()
	err := handler(srv, ss)
	logRPC(ss.Context(), info.FullMethod, start, err)
	return err
}

// logRPC picks the level from the status code: health probes that succeed
// are debug, client mistakes warn, server faults are errors.
func logRPC(ctx context.Context, method string, start time.Time, err error) {
	code := status.Code(err)
	level := slog.LevelInfo
	switch code {
	case codes.OK:
		if strings.HasPrefix(method, healthService) {
			level = slog.LevelDebug
		}
	case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	args := []any{"method", method, "code", code.String(), "duration", time.Since(start)}
	if err != nil {
		args = append(args, "error", err)
	}
	slog.Log(ctx, level, "rpc completed", args...)
}

// RecoveryInterceptor turns a handler panic into codes.Internal.
func RecoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(info.FullMethod, r)
		}
	}()
	return handler(ctx, req)
}

func StreamRecoveryInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(info.FullMethod, r)
		}
	}()
	return handler(srv, ss)
}

func recovered(method string, r any) error {
	slog.Error("panic in gRPC handler",
		"method", method,
		"panic", fmt.Sprint(r),
		"stack", string(debug.Stack()),
	)
	return status.Error(codes.Internal, "internal server error")
}
