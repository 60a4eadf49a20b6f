// Package interceptors holds cross-cutting gRPC middleware for the practice
// API.
package interceptors

import (
	"context"
	"time"

	"github.com/SingularTensor/Mathly/internal/platform/logging"
	grpcmeta "github.com/SingularTensor/Mathly/internal/services/practice/api/grpc/metadata"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AccessLogInterceptor writes one log entry per unary call. Server faults log
// at error level, client faults at info and successes at debug.
func AccessLogInterceptor(logger *zap.Logger, clock func() time.Time) grpc.UnaryServerInterceptor {
	logger = logging.OrNop(logger).Named("grpc")
	if clock == nil {
		clock = time.Now
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		started := clock()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", clock().Sub(started)),
		}
		if requestID := grpcmeta.RequestIDFromContext(ctx); requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
			fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}

		if ce := logger.Check(levelFor(code), "rpc handled"); ce != nil {
			ce.Write(fields...)
		}
		return resp, err
	}
}

func levelFor(code codes.Code) zapcore.Level {
	switch code {
	case codes.OK:
		return zapcore.DebugLevel
	case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
