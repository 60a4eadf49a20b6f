// Package metadata defines the request headers the practice API reads and
// echoes: a correlation id and the caller's preferred locale.
package metadata

import (
	"context"
	"strings"

	"github.com/SingularTensor/Mathly/internal/platform/id"
	"github.com/SingularTensor/Mathly/internal/platform/requestctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// RequestIDHeader carries the request correlation id in both directions.
const RequestIDHeader = "x-mathly-request-id"

// LocaleHeader selects the language of localized error messages.
const LocaleHeader = "x-mathly-locale"

// acceptLanguageHeader is consulted when LocaleHeader is absent.
const acceptLanguageHeader = "accept-language"

type contextKey string

const requestIDContextKey contextKey = "mathly-request-id"

// RequestIDFromContext returns the request id stored in context.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDContextKey).(string)
	return value
}

// WithRequestID stores the request id in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// IsPrintableASCII reports whether a string contains only printable ASCII characters.
func IsPrintableASCII(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < 0x20 || value[i] > 0x7e {
			return false
		}
	}
	return true
}

// FirstMetadataValue returns the first printable value stored under key.
func FirstMetadataValue(md metadata.MD, key string) string {
	for mdKey, values := range md {
		if !strings.EqualFold(mdKey, key) {
			continue
		}
		for _, value := range values {
			if IsPrintableASCII(value) {
				return value
			}
		}
	}
	return ""
}

// localeFromHeaders picks the explicit locale header, then the first tag of
// accept-language.
func localeFromHeaders(md metadata.MD) string {
	if locale := strings.TrimSpace(FirstMetadataValue(md, LocaleHeader)); locale != "" {
		return locale
	}
	accept := FirstMetadataValue(md, acceptLanguageHeader)
	if accept == "" {
		return ""
	}
	first, _, _ := strings.Cut(accept, ",")
	first, _, _ = strings.Cut(first, ";")
	return strings.TrimSpace(first)
}

// UnaryServerInterceptor guarantees every call a request id, echoes it in the
// response headers and tags the active span with it. The caller's locale is
// stored with requestctx.WithLocale.
func UnaryServerInterceptor(idGenerator func() (string, error)) grpc.UnaryServerInterceptor {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		requestID := FirstMetadataValue(md, RequestIDHeader)
		if requestID == "" {
			generated, err := idGenerator()
			if err != nil {
				return nil, status.Errorf(codes.Internal, "generate request id: %v", err)
			}
			requestID = generated
		}
		ctx = WithRequestID(ctx, requestID)
		if locale := localeFromHeaders(md); locale != "" {
			ctx = requestctx.WithLocale(ctx, locale)
		}
		if err := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID)); err != nil {
			return nil, status.Errorf(codes.Internal, "set response metadata: %v", err)
		}
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("mathly.request_id", requestID))
		return handler(ctx, req)
	}
}
