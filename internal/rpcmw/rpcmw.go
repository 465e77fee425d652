// Package rpcmw provides gRPC server middleware: request logging and panic
// recovery. Auth is out of scope for this system (spec.md's non-goals), so
// unlike the teacher's interceptor pair this package never inspects
// incoming credentials — it keeps the pass-through-vs-active interceptor
// *shape* of internal/auth/auth.go and repurposes it for observability
// instead.
package rpcmw

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LoggingInterceptor returns a gRPC unary interceptor that logs each call's
// method, duration, and outcome at the level the result warrants.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		resp, err = handler(ctx, req)
		elapsedMs := time.Since(start).Milliseconds()

		if err != nil {
			logger.Warn("rpc failed", "method", info.FullMethod, "elapsed_ms", elapsedMs, "error", err)
		} else {
			logger.Info("rpc ok", "method", info.FullMethod, "elapsed_ms", elapsedMs)
		}
		return resp, err
	}
}

// StreamLoggingInterceptor is LoggingInterceptor's streaming counterpart.
func StreamLoggingInterceptor(logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		elapsedMs := time.Since(start).Milliseconds()

		if err != nil {
			logger.Warn("stream rpc failed", "method", info.FullMethod, "elapsed_ms", elapsedMs, "error", err)
		} else {
			logger.Info("stream rpc ok", "method", info.FullMethod, "elapsed_ms", elapsedMs)
		}
		return err
	}
}

// RecoveryInterceptor returns a gRPC unary interceptor that converts a
// panic in a handler into codes.Internal instead of crashing the process —
// a render or analysis bug in one request must not take the whole engine
// down, spec §7's "no hidden tool-use loop, deterministic fallbacks"
// principle extended to the transport boundary.
func RecoveryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("rpc panic recovered", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
				err = status.Errorf(codes.Internal, "internal error handling %s", info.FullMethod)
			}
		}()
		return handler(ctx, req)
	}
}

// StreamRecoveryInterceptor is RecoveryInterceptor's streaming counterpart.
func StreamRecoveryInterceptor(logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("stream rpc panic recovered", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
				err = status.Errorf(codes.Internal, "internal error handling %s", info.FullMethod)
			}
		}()
		return handler(srv, ss)
	}
}
