package grpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/oriys/songcache/internal/logging"
	"github.com/oriys/songcache/internal/observability"
)

// requestIDKey is the metadata key carrying a caller-supplied request ID.
const requestIDKey = "x-request-id"

type requestIDCtxKey struct{}

// requestIDFromContext returns the request ID set by the logging interceptor.
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey{}).(string)
	return id
}

// loggingInterceptor logs all gRPC requests
func loggingInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()

	requestID := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(requestIDKey); len(vals) > 0 {
			requestID = vals[0]
		}
	}
	if requestID == "" {
		requestID = uuid.New().String()
	}
	ctx = context.WithValue(ctx, requestIDCtxKey{}, requestID)

	logger := logging.OpWithRequest(requestID, observability.GetTraceID(ctx))
	logger.Debug("gRPC request started", "method", info.FullMethod)

	resp, err := handler(ctx, req)

	duration := time.Since(start)

	if err != nil {
		logger.Error("gRPC request failed",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", duration,
			"error", err,
		)
	} else {
		logger.Info("gRPC request completed",
			"method", info.FullMethod,
			"duration", duration,
		)
	}

	return resp, err
}

// errorHandlingInterceptor converts plain errors to gRPC status codes.
// Errors that already carry a status pass through unchanged.
func errorHandlingInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	resp, err := handler(ctx, req)

	if err != nil {
		if _, ok := status.FromError(err); ok {
			return nil, err
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	return resp, nil
}

// tracingInterceptor opens a server span per call.
func tracingInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	ctx, span := observability.StartServerSpan(ctx, info.FullMethod)
	defer span.End()

	resp, err := handler(ctx, req)
	if err != nil {
		observability.SetSpanError(span, err)
	} else {
		observability.SetSpanOK(span)
	}
	return resp, err
}
