package play

import (
	"context"
	"errors"
	"strconv"

	apperrors "github.com/SingularTensor/Mathly/internal/platform/errors"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/progression"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
	"github.com/SingularTensor/Mathly/internal/services/practice/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// UpgradeSectorRequest asks to unlock the next level of a sector.
type UpgradeSectorRequest struct {
	UserID string
	Sector string
}

// UpgradeSectorResult is the sector state after a successful upgrade.
type UpgradeSectorResult struct {
	Sector   sector.Key
	Level    int
	Cost     int
	Wallet   int
	NextCost int
	Label    string
}

// UpgradeSector spends the upgrade cost of the current level from the wallet
// and raises the level by one. An active run keeps the level it started at.
func (s *Service) UpgradeSector(ctx context.Context, req UpgradeSectorRequest) (result UpgradeSectorResult, err error) {
	ctx, span := s.startSpan(ctx, "UpgradeSector", attribute.String("sector", req.Sector))
	defer func() { finishSpan(span, err) }()

	userID, err := requireUser(req.UserID)
	if err != nil {
		return UpgradeSectorResult{}, err
	}
	cfg, err := s.availableSector(req.Sector)
	if err != nil {
		return UpgradeSectorResult{}, err
	}
	now := s.now()
	if _, err := s.store.EnsureUser(ctx, userID, "", now); err != nil {
		return UpgradeSectorResult{}, storageError("ensure user", err)
	}

	upgraded, err := s.store.UpgradeSector(ctx, storage.UpgradeRequest{
		UserID: userID,
		Sector: cfg.Key,
		Cost:   progression.UpgradeCost,
		Now:    now,
	})
	if errors.Is(err, storage.ErrInsufficientFunds) {
		return UpgradeSectorResult{}, apperrors.WithMetadata(apperrors.CodeInsufficientFunds, "wallet below upgrade cost", map[string]string{
			"Sector":  string(cfg.Key),
			"Level":   strconv.Itoa(upgraded.Progress.Level),
			"Cost":    strconv.Itoa(upgraded.Cost),
			"Balance": strconv.Itoa(upgraded.Wallet),
		})
	}
	if err != nil {
		return UpgradeSectorResult{}, storageError("upgrade sector", err)
	}

	level := upgraded.Progress.Level
	span.SetAttributes(attribute.Int("level", level))
	s.logger.Info("sector upgraded",
		zap.String("user_id", userID),
		zap.String("sector", string(cfg.Key)),
		zap.Int("level", level),
		zap.Int("cost", upgraded.Cost),
		zap.Int("wallet", upgraded.Wallet),
	)
	return UpgradeSectorResult{
		Sector:   cfg.Key,
		Level:    level,
		Cost:     upgraded.Cost,
		Wallet:   upgraded.Wallet,
		NextCost: progression.UpgradeCost(level),
		Label:    progression.DifficultyLabel(level),
	}, nil
}
