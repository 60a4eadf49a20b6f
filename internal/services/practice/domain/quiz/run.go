// Package quiz implements the fixed-length practice run: a sequence of
// problems at one sector level, gated by lives.
package quiz

import (
	"time"

	apperrors "github.com/SingularTensor/Mathly/internal/platform/errors"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
)

const (
	// TotalProblems is the number of problems in a run.
	TotalProblems = 7
	// StartingLives is the number of wrong answers a run tolerates.
	StartingLives = 3
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Run is one practice run. Index is 1-based.
type Run struct {
	ID             string     `json:"id"`
	Sector         sector.Key `json:"sector"`
	Level          int        `json:"level"`
	Index          int        `json:"index"`
	Total          int        `json:"total"`
	Lives          int        `json:"lives"`
	AccumulatedExp int        `json:"accumulated_exp"`
	Status         Status     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewRun starts a fresh run.
func NewRun(id string, key sector.Key, level int, now time.Time) Run {
	now = now.UTC()
	return Run{
		ID:        id,
		Sector:    key,
		Level:     level,
		Index:     1,
		Total:     TotalProblems,
		Lives:     StartingLives,
		Status:    StatusInProgress,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Active reports whether the run accepts answers.
func (r Run) Active() bool {
	return r.Status == StatusInProgress && r.Lives > 0
}

// NeedsFreshRun reports whether a fetch for key at level must replace
// existing with a new run instead of resuming it.
func NeedsFreshRun(existing *Run, key sector.Key, level int, restart bool) bool {
	switch {
	case restart:
		return true
	case existing == nil:
		return true
	case existing.Sector != key || existing.Level != level:
		return true
	default:
		return !existing.Active()
	}
}

// Result classifies the effect of one answer.
type Result string

const (
	ResultCorrect   Result = "correct"
	ResultIncorrect Result = "incorrect"
	ResultCompleted Result = "completed"
	ResultFailed    Result = "failed"
)

// Outcome is the run state after an answer.
type Outcome struct {
	Result Result
	Run    Run
	// ExpGained is the reward credited to the run by this answer.
	ExpGained int
}

// Committable reports whether the outcome finished the run with a reward to
// persist.
func (o Outcome) Committable() bool {
	return o.Result == ResultCompleted
}

// Answer applies one answer to the run. reward is the problem's experience
// value. The receiver is not modified.
func (r Run) Answer(correct bool, reward int, now time.Time) (Outcome, error) {
	if !r.Active() {
		return Outcome{}, apperrors.WithMetadata(apperrors.CodeNoActiveRun, "no active run", map[string]string{
			"Sector": string(r.Sector),
		})
	}
	next := r
	next.UpdatedAt = now.UTC()

	if !correct {
		next.Lives--
		if next.Lives <= 0 {
			next.Lives = 0
			next.Status = StatusFailed
			return Outcome{Result: ResultFailed, Run: next}, nil
		}
		return Outcome{Result: ResultIncorrect, Run: next}, nil
	}

	next.AccumulatedExp += reward
	if next.Index >= next.Total {
		next.Index = next.Total
		next.Status = StatusCompleted
		return Outcome{Result: ResultCompleted, Run: next, ExpGained: reward}, nil
	}
	next.Index++
	return Outcome{Result: ResultCorrect, Run: next, ExpGained: reward}, nil
}
