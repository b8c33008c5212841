package server

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// captureLog points the default logger at a buffer for the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// fakeStream carries a context into the stream interceptors.
type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func withAuth(header string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", header))
}

const reflectionMethod = "/grpc.reflection.v1.ServerReflection/ServerReflectionInfo"

func TestAuthInterceptors(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		ctx    context.Context
		method string
		want   codes.Code
	}{
		{"Disabled", "", context.Background(), reflectionMethod, codes.OK},
		{"HealthCheckExempt", "secret", context.Background(), healthService + "Check", codes.OK},
		{"HealthWatchExempt", "secret", withAuth("Bearer wrong"), healthService + "Watch", codes.OK},
		{"NoMetadata", "secret", context.Background(), reflectionMethod, codes.Unauthenticated},
		{"WrongScheme", "secret", withAuth("Basic secret"), reflectionMethod, codes.Unauthenticated},
		{"WrongToken", "secret", withAuth("Bearer nope"), reflectionMethod, codes.Unauthenticated},
		{"Correct", "secret", withAuth("Bearer secret"), reflectionMethod, codes.OK},
	}
	for _, tt := range tests {
		t.Run("Unary/"+tt.name, func(t *testing.T) {
			called := false
			_, err := AuthInterceptor(tt.token)(tt.ctx, nil, &grpc.UnaryServerInfo{FullMethod: tt.method},
				func(context.Context, any) (any, error) {
					called = true
					return "ok", nil
				})
			if got := status.Code(err); got != tt.want {
				t.Fatalf("code = %v, want %v (err=%v)", got, tt.want, err)
			}
			if called != (tt.want == codes.OK) {
				t.Fatalf("handler called = %v", called)
			}
		})
		t.Run("Stream/"+tt.name, func(t *testing.T) {
			called := false
			err := StreamAuthInterceptor(tt.token)(nil, &fakeStream{ctx: tt.ctx}, &grpc.StreamServerInfo{FullMethod: tt.method},
				func(any, grpc.ServerStream) error {
					called = true
					return nil
				})
			if got := status.Code(err); got != tt.want {
				t.Fatalf("code = %v, want %v (err=%v)", got, tt.want, err)
			}
			if called != (tt.want == codes.OK) {
				t.Fatalf("handler called = %v", called)
			}
		})
	}
}

func TestLoggingInterceptor_Levels(t *testing.T) {
	tests := []struct {
		name   string
		method string
		err    error
		want   string
	}{
		{"HealthOK", healthService + "Check", nil, "level=DEBUG"},
		{"OK", reflectionMethod, nil, "level=INFO"},
		{"ClientError", reflectionMethod, status.Error(codes.NotFound, "no such event"), "level=WARN"},
		{"ServerFault", reflectionMethod, status.Error(codes.Internal, "boom"), "level=ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			_, err := LoggingInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: tt.method},
				func(context.Context, any) (any, error) { return nil, tt.err })
			if err != tt.err {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			out := buf.String()
			if !strings.Contains(out, tt.want) || !strings.Contains(out, "method="+tt.method) {
				t.Fatalf("log %q missing %q", out, tt.want)
			}
		})
	}
}

func TestStreamLoggingInterceptor(t *testing.T) {
	buf := captureLog(t)
	err := StreamLoggingInterceptor(nil, &fakeStream{ctx: context.Background()},
		&grpc.StreamServerInfo{FullMethod: reflectionMethod},
		func(any, grpc.ServerStream) error { return status.Error(codes.Unauthenticated, "invalid token") })
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("err = %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "code=Unauthenticated") {
		t.Fatalf("log %q missing code", out)
	}
}

func TestRecoveryInterceptors(t *testing.T) {
	buf := captureLog(t)

	resp, err := RecoveryInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: reflectionMethod},
		func(context.Context, any) (any, error) { return "ok", nil })
	if err != nil || resp != "ok" {
		t.Fatalf("resp=%v err=%v", resp, err)
	}

	_, err = RecoveryInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: reflectionMethod},
		func(context.Context, any) (any, error) { panic("unary panic") })
	requireCode(t, err, codes.Internal)

	err = StreamRecoveryInterceptor(nil, &fakeStream{ctx: context.Background()}, &grpc.StreamServerInfo{FullMethod: reflectionMethod},
		func(any, grpc.ServerStream) error { panic("stream panic") })
	requireCode(t, err, codes.Internal)

	if out := buf.String(); !strings.Contains(out, "unary panic") || !strings.Contains(out, "stream panic") {
		t.Fatalf("panics not logged: %s", out)
	}
}
