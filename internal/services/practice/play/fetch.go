package play

import (
	"context"
	"fmt"
	"strconv"

	apperrors "github.com/SingularTensor/Mathly/internal/platform/errors"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/problem"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/progression"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/quiz"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// FetchProblemRequest asks for the next problem of a run.
type FetchProblemRequest struct {
	UserID string
	Sector string
	// Level selects the run level. Zero means the user's unlocked level.
	Level int
	// Restart discards the current run even when it could be resumed.
	Restart bool
}

// FetchProblemResult is the generated problem and the run it belongs to.
type FetchProblemResult struct {
	Problem  problem.Problem
	Run      quiz.Run
	FreshRun bool
	Label    string
}

// FetchProblem resumes or starts a run and replaces any pending problem with a
// newly generated one.
func (s *Service) FetchProblem(ctx context.Context, req FetchProblemRequest) (result FetchProblemResult, err error) {
	ctx, span := s.startSpan(ctx, "FetchProblem",
		attribute.String("sector", req.Sector),
		attribute.Int("level", req.Level),
	)
	defer func() { finishSpan(span, err) }()

	userID, err := requireUser(req.UserID)
	if err != nil {
		return FetchProblemResult{}, err
	}
	cfg, err := s.availableSector(req.Sector)
	if err != nil {
		return FetchProblemResult{}, err
	}
	now := s.now()
	if _, err := s.store.EnsureUser(ctx, userID, "", now); err != nil {
		return FetchProblemResult{}, storageError("ensure user", err)
	}
	progress, err := s.progressFor(ctx, userID, cfg.Key, now)
	if err != nil {
		return FetchProblemResult{}, err
	}

	level := req.Level
	if level == 0 {
		level = progress.Level
	}
	if level < 1 || level > progress.Level {
		return FetchProblemResult{}, apperrors.WithMetadata(apperrors.CodeInvalidLevel, fmt.Sprintf("level %d outside [1, %d]", level, progress.Level), map[string]string{
			"Sector":   string(cfg.Key),
			"Level":    strconv.Itoa(level),
			"MaxLevel": strconv.Itoa(progress.Level),
		})
	}

	session, err := s.loadSession(ctx, userID, now)
	if err != nil {
		return FetchProblemResult{}, err
	}
	fresh := quiz.NeedsFreshRun(session.Run, cfg.Key, level, req.Restart)
	if fresh {
		runID, err := s.newID()
		if err != nil {
			return FetchProblemResult{}, fmt.Errorf("generate run id: %w", err)
		}
		run := quiz.NewRun(runID, cfg.Key, level, now)
		session.Run = &run
	}

	seed, err := s.seeds()
	if err != nil {
		return FetchProblemResult{}, fmt.Errorf("draw seed: %w", err)
	}
	p, err := problem.Generate(cfg, level, seed)
	if err != nil {
		return FetchProblemResult{}, err
	}
	p.ID, err = s.newID()
	if err != nil {
		return FetchProblemResult{}, fmt.Errorf("generate problem id: %w", err)
	}
	p.CreatedAt = now
	session.Problem = &p

	stored, err := s.saveSession(ctx, session, now)
	if err != nil {
		return FetchProblemResult{}, err
	}
	span.SetAttributes(attribute.String("run_id", stored.Run.ID), attribute.Bool("fresh_run", fresh))
	if fresh {
		s.logger.Debug("run started",
			zap.String("user_id", userID),
			zap.String("sector", string(cfg.Key)),
			zap.Int("level", level),
			zap.String("run_id", stored.Run.ID),
		)
	}

	return FetchProblemResult{
		Problem:  p,
		Run:      *stored.Run,
		FreshRun: fresh,
		Label:    progression.DifficultyLabel(level),
	}, nil
}
