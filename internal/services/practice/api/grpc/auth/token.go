// Package auth issues and verifies player tokens and authenticates practice
// API calls with them.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/SingularTensor/Mathly/internal/platform/errors"
	"github.com/SingularTensor/Mathly/internal/platform/id"
)

// DefaultIssuer names the token issuer when none is configured.
const DefaultIssuer = "mathly"

// DefaultTTL is the lifetime of issued player tokens.
const DefaultTTL = 30 * 24 * time.Hour

// TokenConfig defines how player tokens are signed and verified.
type TokenConfig struct {
	Issuer string
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

// PlayerClaims are the validated claims of a player token.
type PlayerClaims struct {
	UserID    string
	Issuer    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (cfg TokenConfig) normalized() (TokenConfig, error) {
	if len(cfg.Secret) == 0 {
		return TokenConfig{}, errors.New("player token secret is not configured")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg, nil
}

// IssueToken signs an HS256 token whose subject is userID.
func IssueToken(cfg TokenConfig, userID string) (string, PlayerClaims, error) {
	cfg, err := cfg.normalized()
	if err != nil {
		return "", PlayerClaims{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", PlayerClaims{}, apperrors.New(apperrors.CodeUserRequired, "user id is required")
	}
	tokenID, err := id.NewID()
	if err != nil {
		return "", PlayerClaims{}, fmt.Errorf("generate token id: %w", err)
	}
	now := cfg.Now().UTC().Truncate(time.Second)
	claims := PlayerClaims{
		UserID:    userID,
		Issuer:    cfg.Issuer,
		TokenID:   tokenID,
		IssuedAt:  now,
		ExpiresAt: now.Add(cfg.TTL),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   claims.UserID,
		Issuer:    claims.Issuer,
		ID:        claims.TokenID,
		IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})
	signed, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", PlayerClaims{}, fmt.Errorf("sign player token: %w", err)
	}
	return signed, claims, nil
}

// VerifyToken checks the signature, issuer and expiry of raw.
func VerifyToken(cfg TokenConfig, raw string) (PlayerClaims, error) {
	cfg, err := cfg.normalized()
	if err != nil {
		return PlayerClaims{}, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return PlayerClaims{}, apperrors.New(apperrors.CodeUserRequired, "player token is required")
	}

	var parsed jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (any, error) {
		return cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return PlayerClaims{}, mapJWTError(err)
	}
	if parsed.Issuer != cfg.Issuer {
		return PlayerClaims{}, invalidToken("issuer mismatch", "issuer")
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return PlayerClaims{}, invalidToken("subject is required", "sub")
	}
	if parsed.ExpiresAt == nil {
		return PlayerClaims{}, invalidToken("exp is required", "exp")
	}
	now := cfg.Now().UTC()
	if !parsed.ExpiresAt.Time.After(now) {
		return PlayerClaims{}, invalidToken("token is expired", "exp")
	}

	claims := PlayerClaims{
		UserID:    parsed.Subject,
		Issuer:    parsed.Issuer,
		TokenID:   parsed.ID,
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

func invalidToken(message, field string) error {
	return apperrors.WithMetadata(apperrors.CodeTokenInvalid, "player token "+message, map[string]string{"Field": field})
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.Wrap(apperrors.CodeTokenInvalid, "player token signature is invalid", err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return apperrors.Wrap(apperrors.CodeTokenInvalid, "player token alg is invalid", err)
	default:
		return apperrors.Wrap(apperrors.CodeTokenInvalid, "player token is malformed", err)
	}
}
