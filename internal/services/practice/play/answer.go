package play

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/SingularTensor/Mathly/internal/platform/errors"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/quiz"
	"github.com/SingularTensor/Mathly/internal/services/practice/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SubmitAnswerRequest answers the pending problem.
type SubmitAnswerRequest struct {
	UserID string
	// ProblemID, when set, must name the pending problem.
	ProblemID string
	Answer    int
}

// SubmitAnswerResult reports the effect of one answer.
type SubmitAnswerResult struct {
	Correct       bool
	CorrectAnswer int
	Result        quiz.Result
	Run           quiz.Run
	ExpGained     int
	// Committed is true when this answer completed the run and its reward was
	// credited.
	Committed bool
	Wallet    int
}

// SubmitAnswer consumes the pending problem and advances the run. Completing
// the run credits its accumulated experience once; failing it credits nothing.
func (s *Service) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (result SubmitAnswerResult, err error) {
	ctx, span := s.startSpan(ctx, "SubmitAnswer")
	defer func() { finishSpan(span, err) }()

	userID, err := requireUser(req.UserID)
	if err != nil {
		return SubmitAnswerResult{}, err
	}
	now := s.now()

	session, err := s.loadSession(ctx, userID, now)
	if err != nil {
		return SubmitAnswerResult{}, err
	}
	if session.Run == nil || !session.Run.Active() {
		return SubmitAnswerResult{}, apperrors.New(apperrors.CodeNoActiveRun, "no active run")
	}
	problemID := strings.TrimSpace(req.ProblemID)
	if session.Problem == nil || (problemID != "" && problemID != session.Problem.ID) {
		return SubmitAnswerResult{}, apperrors.New(apperrors.CodeNoActiveProblem, "no pending problem")
	}

	consumed, err := s.store.ConsumeProblem(ctx, userID, session.Problem.ID, now)
	if errors.Is(err, storage.ErrNotFound) {
		return SubmitAnswerResult{}, apperrors.New(apperrors.CodeNoActiveProblem, "pending problem was replaced")
	}
	if err != nil {
		return SubmitAnswerResult{}, storageError("consume problem", err)
	}
	if consumed.Problem == nil || consumed.Problem.ID != session.Problem.ID {
		return SubmitAnswerResult{}, apperrors.New(apperrors.CodeNoActiveProblem, "pending problem was replaced")
	}
	if consumed.Run == nil {
		return SubmitAnswerResult{}, apperrors.New(apperrors.CodeNoActiveRun, "no active run")
	}
	p := *consumed.Problem
	span.SetAttributes(
		attribute.String("sector", string(p.Sector)),
		attribute.Int("level", p.Level),
		attribute.String("run_id", consumed.Run.ID),
	)

	correct := p.IsCorrect(req.Answer)
	outcome, err := consumed.Run.Answer(correct, p.ExpReward, now)
	if err != nil {
		return SubmitAnswerResult{}, err
	}
	result = SubmitAnswerResult{
		Correct:       correct,
		CorrectAnswer: p.Answer,
		Result:        outcome.Result,
		Run:           outcome.Run,
		ExpGained:     outcome.ExpGained,
	}

	if outcome.Committable() {
		run := outcome.Run
		applied, err := s.store.CommitRun(ctx, storage.RunCommit{
			RunID:          run.ID,
			UserID:         userID,
			Sector:         run.Sector,
			ProblemsSolved: run.Total,
			Exp:            run.AccumulatedExp,
			CommittedAt:    now,
		})
		if err != nil {
			s.logger.Error("commit run failed", zap.String("user_id", userID), zap.String("run_id", run.ID), zap.Error(err))
			return SubmitAnswerResult{}, storageError("commit run", err)
		}
		result.Committed = applied
		s.logger.Info("run completed",
			zap.String("user_id", userID),
			zap.String("sector", string(run.Sector)),
			zap.Int("level", run.Level),
			zap.String("run_id", run.ID),
			zap.Int("exp", run.AccumulatedExp),
			zap.Bool("applied", applied),
		)
	}
	if outcome.Result == quiz.ResultFailed {
		s.logger.Info("run failed",
			zap.String("user_id", userID),
			zap.String("sector", string(outcome.Run.Sector)),
			zap.Int("level", outcome.Run.Level),
			zap.String("run_id", outcome.Run.ID),
			zap.Int("discarded_exp", outcome.Run.AccumulatedExp),
		)
	}

	consumed.Run = &result.Run
	consumed.Problem = nil
	if _, err := s.saveSession(ctx, consumed, now); err != nil {
		return SubmitAnswerResult{}, err
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return SubmitAnswerResult{}, storageError("get user", err)
	}
	result.Wallet = user.Wallet
	return result, nil
}
