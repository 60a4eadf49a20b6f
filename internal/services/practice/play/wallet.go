package play

import (
	"context"
	"strconv"
	"strings"

	apperrors "github.com/SingularTensor/Mathly/internal/platform/errors"
	"github.com/SingularTensor/Mathly/internal/services/practice/storage"
	"go.uber.org/zap"
)

// ParseAmount parses a whole, non-negative wallet amount.
func ParseAmount(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	amount, err := strconv.Atoi(trimmed)
	if err != nil || amount < 0 {
		return 0, apperrors.WithMetadata(apperrors.CodeInvalidAmount, "invalid wallet amount", map[string]string{
			"Amount": raw,
		})
	}
	return amount, nil
}

func invalidAmount(amount int) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidAmount, "invalid wallet amount", map[string]string{
		"Amount": strconv.Itoa(amount),
	})
}

// EnsureUser creates a user account when missing.
func (s *Service) EnsureUser(ctx context.Context, userID, displayName string) (storage.User, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return storage.User{}, err
	}
	user, err := s.store.EnsureUser(ctx, userID, displayName, s.now())
	if err != nil {
		return storage.User{}, storageError("ensure user", err)
	}
	return user, nil
}

// GetUser returns an existing account.
func (s *Service) GetUser(ctx context.Context, userID string) (storage.User, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return storage.User{}, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return storage.User{}, storageError("get user", err)
	}
	return user, nil
}

// GrantWallet credits amount to an existing account.
func (s *Service) GrantWallet(ctx context.Context, userID string, amount int) (storage.User, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return storage.User{}, err
	}
	if amount < 0 {
		return storage.User{}, invalidAmount(amount)
	}
	user, err := s.store.AdjustWallet(ctx, userID, amount, s.now())
	if err != nil {
		return storage.User{}, storageError("adjust wallet", err)
	}
	s.logger.Info("wallet granted", zap.String("user_id", userID), zap.Int("amount", amount), zap.Int("wallet", user.Wallet))
	return user, nil
}

// SetWallet overwrites the wallet of an existing account.
func (s *Service) SetWallet(ctx context.Context, userID string, amount int) (storage.User, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return storage.User{}, err
	}
	if amount < 0 {
		return storage.User{}, invalidAmount(amount)
	}
	user, err := s.store.SetWallet(ctx, userID, amount, s.now())
	if err != nil {
		return storage.User{}, storageError("set wallet", err)
	}
	s.logger.Info("wallet set", zap.String("user_id", userID), zap.Int("wallet", user.Wallet))
	return user, nil
}
