package interceptors

import (
	"context"
	"testing"
	"time"

	grpcmeta "github.com/SingularTensor/Mathly/internal/services/practice/api/grpc/metadata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestAccessLogInterceptor(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ticks := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 0, 0, 0, int(40*time.Millisecond), time.UTC),
	}
	clock := func() time.Time {
		next := ticks[0]
		ticks = ticks[1:]
		return next
	}
	interceptor := AccessLogInterceptor(zap.New(core), clock)
	info := &grpc.UnaryServerInfo{FullMethod: "/mathly.practice.v1.PracticeService/SubmitAnswer"}

	ctx := grpcmeta.WithRequestID(context.Background(), "req-1")
	resp, err := interceptor(ctx, "in", info, func(ctx context.Context, req any) (any, error) {
		return "out", nil
	})
	if err != nil || resp != "out" {
		t.Fatalf("resp = %v err = %v", resp, err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.DebugLevel || entry.LoggerName != "grpc" {
		t.Fatalf("entry = %+v", entry.Entry)
	}
	fields := entry.ContextMap()
	if fields["request_id"] != "req-1" || fields["code"] != "OK" {
		t.Fatalf("fields = %v", fields)
	}
	if fields["duration"] != 40*time.Millisecond {
		t.Fatalf("duration = %v, want 40ms", fields["duration"])
	}
}

func TestAccessLogLevels(t *testing.T) {
	tests := []struct {
		code codes.Code
		want zapcore.Level
	}{
		{code: codes.OK, want: zapcore.DebugLevel},
		{code: codes.InvalidArgument, want: zapcore.InfoLevel},
		{code: codes.FailedPrecondition, want: zapcore.InfoLevel},
		{code: codes.Unavailable, want: zapcore.ErrorLevel},
		{code: codes.Internal, want: zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		core, logs := observer.New(zapcore.DebugLevel)
		interceptor := AccessLogInterceptor(zap.New(core), nil)
		_, _ = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x"}, func(context.Context, any) (any, error) {
			if tt.code == codes.OK {
				return nil, nil
			}
			return nil, status.Error(tt.code, "boom")
		})
		entries := logs.All()
		if len(entries) != 1 || entries[0].Level != tt.want {
			t.Fatalf("code %v: entries = %+v, want level %v", tt.code, entries, tt.want)
		}
	}
}
