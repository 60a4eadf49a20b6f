package auth

import (
	"context"
	"strings"

	apperrors "github.com/SingularTensor/Mathly/internal/platform/errors"
	"github.com/SingularTensor/Mathly/internal/platform/requestctx"
	grpcmeta "github.com/SingularTensor/Mathly/internal/services/practice/api/grpc/metadata"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// AuthorizationHeader carries "Bearer <player token>".
const AuthorizationHeader = "authorization"

const bearerPrefix = "bearer "

// publicMethodPrefixes are served without a player token.
var publicMethodPrefixes = []string{
	"/grpc.health.v1.Health/",
	"/mathly.practice.v1.PracticeService/ListSectors",
}

func isPublic(fullMethod string) bool {
	for _, prefix := range publicMethodPrefixes {
		if strings.HasPrefix(fullMethod, prefix) {
			return true
		}
	}
	return false
}

// BearerToken extracts the token from the authorization header.
func BearerToken(md metadata.MD) string {
	value := strings.TrimSpace(grpcmeta.FirstMetadataValue(md, AuthorizationHeader))
	if len(value) < len(bearerPrefix) || !strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(value[len(bearerPrefix):])
}

// UnaryServerInterceptor verifies the player token of every non-public call
// and stores its subject with requestctx.WithUserID.
func UnaryServerInterceptor(cfg TokenConfig) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if isPublic(info.FullMethod) {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		claims, err := VerifyToken(cfg, BearerToken(md))
		if err != nil {
			return nil, apperrors.HandleError(err, requestctx.LocaleFromContext(ctx))
		}
		return handler(requestctx.WithUserID(ctx, claims.UserID), req)
	}
}
