package rpcmw

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLoggingInterceptorPassesThroughResult(t *testing.T) {
	interceptor := LoggingInterceptor(testLogger())
	info := &grpc.UnaryServerInfo{FullMethod: "/djcore.v1.DJCoreAPI/PlanSet"}

	resp, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	if err != nil || resp != "ok" {
		t.Fatalf("expected pass-through response, got resp=%v err=%v", resp, err)
	}
}

func TestLoggingInterceptorPassesThroughError(t *testing.T) {
	interceptor := LoggingInterceptor(testLogger())
	info := &grpc.UnaryServerInfo{FullMethod: "/djcore.v1.DJCoreAPI/PlanSet"}
	wantErr := status.Error(codes.InvalidArgument, "bad vibe")

	_, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected handler error to pass through, got %v", err)
	}
}

func TestRecoveryInterceptorConvertsPanicToInternal(t *testing.T) {
	interceptor := RecoveryInterceptor(testLogger())
	info := &grpc.UnaryServerInfo{FullMethod: "/djcore.v1.DJCoreAPI/RenderSet"}

	_, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		panic("boom")
	})
	if err == nil {
		t.Fatal("expected an error from a recovered panic")
	}
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected codes.Internal, got %v", status.Code(err))
	}
}

func TestRecoveryInterceptorDoesNotMaskNormalError(t *testing.T) {
	interceptor := RecoveryInterceptor(testLogger())
	info := &grpc.UnaryServerInfo{FullMethod: "/djcore.v1.DJCoreAPI/RenderSet"}
	wantErr := status.Error(codes.NotFound, "set not found")

	_, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected original error to pass through unmasked, got %v", err)
	}
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeServerStream) Context() context.Context { return f.ctx }

func TestStreamRecoveryInterceptorConvertsPanicToInternal(t *testing.T) {
	interceptor := StreamRecoveryInterceptor(testLogger())
	info := &grpc.StreamServerInfo{FullMethod: "/djcore.v1.DJCoreAPI/StreamProgress"}
	ss := &fakeServerStream{ctx: context.Background()}

	err := interceptor(nil, ss, info, func(srv any, stream grpc.ServerStream) error {
		panic("boom")
	})
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected codes.Internal, got %v", status.Code(err))
	}
}
