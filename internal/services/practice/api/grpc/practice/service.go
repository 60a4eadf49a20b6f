// Package practice serves the practice engine over gRPC as
// mathly.practice.v1.PracticeService.
package practice

import (
	"context"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/SingularTensor/Mathly/internal/platform/errors"
	"github.com/SingularTensor/Mathly/internal/platform/requestctx"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
	"github.com/SingularTensor/Mathly/internal/services/practice/play"
	"github.com/SingularTensor/Mathly/internal/services/practice/storage"
)

// Engine is the part of the play service the API calls.
type Engine interface {
	FetchProblem(ctx context.Context, req play.FetchProblemRequest) (play.FetchProblemResult, error)
	SubmitAnswer(ctx context.Context, req play.SubmitAnswerRequest) (play.SubmitAnswerResult, error)
	UpgradeSector(ctx context.Context, req play.UpgradeSectorRequest) (play.UpgradeSectorResult, error)
	GetProgress(ctx context.Context, userID string) (play.Progress, error)
	ListSectors() []sector.Config
	ListLeaderboard(ctx context.Context, req play.LeaderboardRequest) (storage.LeaderboardPage, error)
}

// Service implements PracticeServer for the authenticated player in context.
type Service struct {
	engine Engine
}

// NewService creates the API over engine.
func NewService(engine Engine) *Service {
	return &Service{engine: engine}
}

var _ PracticeServer = (*Service)(nil)

func (s *Service) ready() error {
	if s == nil || s.engine == nil {
		return status.Error(codes.Internal, "practice engine is not configured")
	}
	return nil
}

// fail renders err as a gRPC status localized for the caller.
func fail(ctx context.Context, err error) error {
	return apperrors.HandleError(err, requestctx.LocaleFromContext(ctx))
}

// FetchProblem starts or resumes a run and returns its next problem.
// Request: sector, optional level (defaults to the unlocked level), restart.
func (s *Service) FetchProblem(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	f := fieldsOf(in)
	sectorKey, err := f.stringValue("sector")
	if err != nil {
		return nil, err
	}
	level, hasLevel, err := f.intValue("level")
	if err != nil || (hasLevel && level < 1) {
		return nil, fail(ctx, apperrors.WithMetadata(apperrors.CodeInvalidLevel, "level must be a whole number >= 1", map[string]string{
			"Sector": sectorKey,
			"Level":  strconv.Itoa(level),
		}))
	}
	restart, err := f.boolValue("restart")
	if err != nil {
		return nil, err
	}

	result, err := s.engine.FetchProblem(ctx, play.FetchProblemRequest{
		UserID:  requestctx.UserIDFromContext(ctx),
		Sector:  sectorKey,
		Level:   level,
		Restart: restart,
	})
	if err != nil {
		return nil, fail(ctx, err)
	}
	return toStruct(map[string]any{
		"problem":   problemDocument(result.Problem),
		"run":       runDocument(result.Run),
		"fresh_run": result.FreshRun,
		"label":     result.Label,
	})
}

// SubmitAnswer answers the pending problem.
// Request: answer, optional problem_id.
func (s *Service) SubmitAnswer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	f := fieldsOf(in)
	problemID, err := f.stringValue("problem_id")
	if err != nil {
		return nil, err
	}
	answer, hasAnswer, err := f.intValue("answer")
	if err != nil || !hasAnswer {
		return nil, fail(ctx, apperrors.New(apperrors.CodeInvalidAnswer, "answer must be a whole number"))
	}

	result, err := s.engine.SubmitAnswer(ctx, play.SubmitAnswerRequest{
		UserID:    requestctx.UserIDFromContext(ctx),
		ProblemID: problemID,
		Answer:    answer,
	})
	if err != nil {
		return nil, fail(ctx, err)
	}
	return toStruct(map[string]any{
		"correct":        result.Correct,
		"correct_answer": result.CorrectAnswer,
		"result":         string(result.Result),
		"run":            runDocument(result.Run),
		"exp_gained":     result.ExpGained,
		"committed":      result.Committed,
		"wallet":         result.Wallet,
	})
}

// UpgradeSector buys the next level of a sector. Request: sector.
func (s *Service) UpgradeSector(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	sectorKey, err := fieldsOf(in).stringValue("sector")
	if err != nil {
		return nil, err
	}
	result, err := s.engine.UpgradeSector(ctx, play.UpgradeSectorRequest{
		UserID: requestctx.UserIDFromContext(ctx),
		Sector: sectorKey,
	})
	if err != nil {
		return nil, fail(ctx, err)
	}
	return toStruct(map[string]any{
		"sector":    string(result.Sector),
		"level":     result.Level,
		"cost":      result.Cost,
		"wallet":    result.Wallet,
		"next_cost": result.NextCost,
		"label":     result.Label,
	})
}

// GetProgress returns the caller's wallet, sectors and active run.
func (s *Service) GetProgress(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	progress, err := s.engine.GetProgress(ctx, requestctx.UserIDFromContext(ctx))
	if err != nil {
		return nil, fail(ctx, err)
	}
	doc := map[string]any{
		"user_id":      progress.UserID,
		"display_name": progress.DisplayName,
		"wallet":       progress.Wallet,
		"sectors": documents(len(progress.Sectors), func(i int) map[string]any {
			item := progress.Sectors[i]
			return map[string]any{
				"key":             string(item.Config.Key),
				"name":            item.Config.Name,
				"color":           item.Config.Color,
				"level":           item.Summary.Level,
				"label":           item.Summary.Label,
				"min":             item.Summary.Range.Min,
				"max":             item.Summary.Range.Max,
				"exp_reward":      item.Summary.ExpReward,
				"upgrade_cost":    item.Summary.UpgradeCost,
				"problems_solved": item.ProblemsSolved,
				"exp_earned":      item.ExpEarned,
			}
		}),
	}
	if progress.Run != nil {
		doc["run"] = runDocument(*progress.Run)
	}
	return toStruct(doc)
}

// ListSectors returns the sector catalog.
func (s *Service) ListSectors(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	sectors := s.engine.ListSectors()
	return toStruct(map[string]any{
		"sectors": documents(len(sectors), func(i int) map[string]any {
			return sectorDocument(sectors[i])
		}),
	})
}

// ListLeaderboard returns one page of a sector ranking.
// Request: sector, optional filter, page_size and page_token.
func (s *Service) ListLeaderboard(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	f := fieldsOf(in)
	sectorKey, err := f.stringValue("sector")
	if err != nil {
		return nil, err
	}
	filterText, err := f.stringValue("filter")
	if err != nil {
		return nil, err
	}
	pageToken, err := f.stringValue("page_token")
	if err != nil {
		return nil, err
	}
	pageSize, _, err := f.intValue("page_size")
	if err != nil {
		return nil, err
	}

	page, err := s.engine.ListLeaderboard(ctx, play.LeaderboardRequest{
		Sector:    sectorKey,
		Filter:    filterText,
		PageSize:  pageSize,
		PageToken: pageToken,
	})
	if err != nil {
		return nil, fail(ctx, err)
	}
	return toStruct(map[string]any{
		"entries": documents(len(page.Entries), func(i int) map[string]any {
			entry := page.Entries[i]
			return map[string]any{
				"rank":            entry.Rank,
				"user_id":         entry.UserID,
				"display_name":    entry.DisplayName,
				"level":           entry.Level,
				"problems_solved": entry.ProblemsSolved,
				"exp_earned":      entry.ExpEarned,
			}
		}),
		"next_page_token": page.NextPageToken,
	})
}
