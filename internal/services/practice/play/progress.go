package play

import (
	"context"
	"strings"

	apperrors "github.com/SingularTensor/Mathly/internal/platform/errors"
	"github.com/SingularTensor/Mathly/internal/platform/grpc/pagination"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/progression"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/quiz"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
	"github.com/SingularTensor/Mathly/internal/services/practice/storage"
	"github.com/SingularTensor/Mathly/internal/services/practice/storage/filter"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultLeaderboardPageSize = 10
	maxLeaderboardPageSize     = 50
)

// SectorStatus is one sector of the progress overview.
type SectorStatus struct {
	Config         sector.Config
	Summary        progression.Summary
	ProblemsSolved int
	ExpEarned      int
}

// Progress is a user's overview across every available sector.
type Progress struct {
	UserID      string
	DisplayName string
	Wallet      int
	Sectors     []SectorStatus
	// Run is the active run, if any.
	Run *quiz.Run
}

// GetProgress returns the wallet and per-sector standing of a user. Sectors
// never played are reported at level 1 without creating records.
func (s *Service) GetProgress(ctx context.Context, userID string) (result Progress, err error) {
	ctx, span := s.startSpan(ctx, "GetProgress")
	defer func() { finishSpan(span, err) }()

	userID, err = requireUser(userID)
	if err != nil {
		return Progress{}, err
	}
	now := s.now()
	user, err := s.store.EnsureUser(ctx, userID, "", now)
	if err != nil {
		return Progress{}, storageError("ensure user", err)
	}
	records, err := s.store.ListSectorProgress(ctx, userID)
	if err != nil {
		return Progress{}, storageError("list sector progress", err)
	}
	byKey := make(map[sector.Key]storage.SectorProgress, len(records))
	for _, record := range records {
		byKey[record.Sector] = record
	}

	result = Progress{UserID: user.ID, DisplayName: user.DisplayName, Wallet: user.Wallet}
	for _, cfg := range s.catalog.List() {
		if !cfg.Available {
			continue
		}
		record, ok := byKey[cfg.Key]
		level := 1
		if ok {
			level = record.Level
		}
		result.Sectors = append(result.Sectors, SectorStatus{
			Config:         cfg,
			Summary:        progression.Describe(cfg, level),
			ProblemsSolved: record.ProblemsSolved,
			ExpEarned:      record.ExpEarned,
		})
	}

	session, err := s.loadSession(ctx, userID, now)
	if err != nil {
		return Progress{}, err
	}
	if session.Run != nil && session.Run.Active() {
		run := *session.Run
		result.Run = &run
	}
	return result, nil
}

// ListSectors returns the whole catalog, unavailable sectors included.
func (s *Service) ListSectors() []sector.Config {
	return s.catalog.List()
}

// LeaderboardRequest selects one page of a sector leaderboard.
type LeaderboardRequest struct {
	Sector    string
	Filter    string
	PageSize  int
	PageToken string
}

// ListLeaderboard ranks users of one sector by experience earned.
func (s *Service) ListLeaderboard(ctx context.Context, req LeaderboardRequest) (page storage.LeaderboardPage, err error) {
	ctx, span := s.startSpan(ctx, "ListLeaderboard", attribute.String("sector", req.Sector))
	defer func() { finishSpan(span, err) }()

	cfg, err := s.availableSector(req.Sector)
	if err != nil {
		return storage.LeaderboardPage{}, err
	}
	cond, err := filter.ParseLeaderboardFilter(req.Filter)
	if err != nil {
		return storage.LeaderboardPage{}, apperrors.Wrap(apperrors.CodeInvalidFilter, "invalid leaderboard filter", err)
	}
	pageToken := strings.TrimSpace(req.PageToken)
	if _, err := pagination.DecodeOffset(pageToken); err != nil {
		return storage.LeaderboardPage{}, apperrors.Wrap(apperrors.CodeInvalidFilter, "invalid page token", err)
	}

	page, err = s.store.ListLeaderboard(ctx, storage.LeaderboardQuery{
		Sector: cfg.Key,
		Filter: cond,
		PageSize: pagination.ClampPageSize(req.PageSize, pagination.PageSizeConfig{
			Default: defaultLeaderboardPageSize,
			Max:     maxLeaderboardPageSize,
		}),
		PageToken: pageToken,
	})
	if err != nil {
		return storage.LeaderboardPage{}, storageError("list leaderboard", err)
	}
	return page, nil
}
