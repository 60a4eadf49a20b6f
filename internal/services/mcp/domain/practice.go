package domain

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/SingularTensor/Mathly/internal/services/practice/domain/problem"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/quiz"
	"github.com/SingularTensor/Mathly/internal/services/practice/play"
)

// Tool names.
const (
	ToolFetchProblem  = "practice_fetch_problem"
	ToolSubmitAnswer  = "practice_submit_answer"
	ToolUpgradeSector = "practice_upgrade_sector"
	ToolProgress      = "practice_progress"
)

// ProblemResult is a problem as shown to the player.
type ProblemResult struct {
	ID         string `json:"id" jsonschema:"problem identifier to pass back when answering"`
	Sector     string `json:"sector" jsonschema:"sector key"`
	Level      int    `json:"level" jsonschema:"difficulty level"`
	Operation  string `json:"operation" jsonschema:"arithmetic operation"`
	Question   string `json:"question" jsonschema:"question text"`
	Operands   []int  `json:"operands" jsonschema:"problem operands"`
	Candidates []int  `json:"candidates" jsonschema:"four answer choices, one of them correct"`
	ExpReward  int    `json:"exp_reward" jsonschema:"experience earned by a correct answer"`
}

// RunResult is the state of a practice run.
type RunResult struct {
	ID             string `json:"id" jsonschema:"run identifier"`
	Sector         string `json:"sector" jsonschema:"sector key"`
	Level          int    `json:"level" jsonschema:"level the run is played at"`
	Index          int    `json:"index" jsonschema:"1-based index of the current problem"`
	Total          int    `json:"total" jsonschema:"number of problems in the run"`
	Lives          int    `json:"lives" jsonschema:"mistakes left before the run fails"`
	AccumulatedExp int    `json:"accumulated_exp" jsonschema:"experience credited when the run completes"`
	Status         string `json:"status" jsonschema:"run status (in_progress, completed, failed)"`
	StartedAt      string `json:"started_at" jsonschema:"RFC3339 timestamp when the run started"`
}

func problemResult(p problem.Problem) ProblemResult {
	return ProblemResult{
		ID:         p.ID,
		Sector:     string(p.Sector),
		Level:      p.Level,
		Operation:  p.Operation.String(),
		Question:   p.Question,
		Operands:   append([]int(nil), p.Operands...),
		Candidates: append([]int(nil), p.Candidates...),
		ExpReward:  p.ExpReward,
	}
}

func runResult(r quiz.Run) RunResult {
	return RunResult{
		ID:             r.ID,
		Sector:         string(r.Sector),
		Level:          r.Level,
		Index:          r.Index,
		Total:          r.Total,
		Lives:          r.Lives,
		AccumulatedExp: r.AccumulatedExp,
		Status:         string(r.Status),
		StartedAt:      formatTime(r.StartedAt),
	}
}

// FetchProblemInput is the input of practice_fetch_problem.
type FetchProblemInput struct {
	Sector  string `json:"sector" jsonschema:"sector key such as addition or division"`
	Level   int    `json:"level,omitempty" jsonschema:"level to play; omit for the highest unlocked level"`
	Restart bool   `json:"restart,omitempty" jsonschema:"discard the current run and start a new one"`
}

// FetchProblemResult is the output of practice_fetch_problem.
type FetchProblemResult struct {
	Problem  ProblemResult `json:"problem" jsonschema:"the problem to answer"`
	Run      RunResult     `json:"run" jsonschema:"the run the problem belongs to"`
	FreshRun bool          `json:"fresh_run" jsonschema:"true when a new run was started"`
	Label    string        `json:"label" jsonschema:"difficulty label of the level"`
}

// FetchProblemTool defines practice_fetch_problem.
func FetchProblemTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        ToolFetchProblem,
		Description: "Returns the next multiple-choice problem of a practice run, resuming the current run for the sector and level or starting a new one.",
	}
}

// FetchProblemHandler executes practice_fetch_problem.
func FetchProblemHandler(deps Deps) mcp.ToolHandlerFor[FetchProblemInput, FetchProblemResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input FetchProblemInput) (*mcp.CallToolResult, FetchProblemResult, error) {
		c, err := deps.begin(ctx, ToolFetchProblem)
		if err != nil {
			return nil, FetchProblemResult{}, deps.fail(nil, ToolFetchProblem, err)
		}
		defer c.cancel()

		fetched, err := deps.Engine.FetchProblem(c.ctx, play.FetchProblemRequest{
			UserID:  c.player.UserID,
			Sector:  input.Sector,
			Level:   input.Level,
			Restart: input.Restart,
		})
		if err != nil {
			return nil, FetchProblemResult{}, deps.fail(c, ToolFetchProblem, err)
		}
		return resultMeta(c), FetchProblemResult{
			Problem:  problemResult(fetched.Problem),
			Run:      runResult(fetched.Run),
			FreshRun: fetched.FreshRun,
			Label:    fetched.Label,
		}, nil
	}
}

// SubmitAnswerInput is the input of practice_submit_answer.
type SubmitAnswerInput struct {
	ProblemID string `json:"problem_id,omitempty" jsonschema:"identifier of the problem being answered"`
	Answer    int    `json:"answer" jsonschema:"the chosen answer"`
}

// SubmitAnswerResult is the output of practice_submit_answer.
type SubmitAnswerResult struct {
	Correct       bool      `json:"correct" jsonschema:"whether the answer was right"`
	CorrectAnswer int       `json:"correct_answer" jsonschema:"the right answer"`
	Result        string    `json:"result" jsonschema:"correct, incorrect, completed or failed"`
	Run           RunResult `json:"run" jsonschema:"run state after the answer"`
	ExpGained     int       `json:"exp_gained" jsonschema:"experience added to the run by this answer"`
	Committed     bool      `json:"committed" jsonschema:"true when the run completed and its experience was credited"`
	Wallet        int       `json:"wallet" jsonschema:"wallet balance after the answer"`
}

// SubmitAnswerTool defines practice_submit_answer.
func SubmitAnswerTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        ToolSubmitAnswer,
		Description: "Answers the pending problem. A completed run credits its experience to the wallet once; a failed run credits nothing.",
	}
}

// SubmitAnswerHandler executes practice_submit_answer.
func SubmitAnswerHandler(deps Deps) mcp.ToolHandlerFor[SubmitAnswerInput, SubmitAnswerResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SubmitAnswerInput) (*mcp.CallToolResult, SubmitAnswerResult, error) {
		c, err := deps.begin(ctx, ToolSubmitAnswer)
		if err != nil {
			return nil, SubmitAnswerResult{}, deps.fail(nil, ToolSubmitAnswer, err)
		}
		defer c.cancel()

		answered, err := deps.Engine.SubmitAnswer(c.ctx, play.SubmitAnswerRequest{
			UserID:    c.player.UserID,
			ProblemID: input.ProblemID,
			Answer:    input.Answer,
		})
		if err != nil {
			return nil, SubmitAnswerResult{}, deps.fail(c, ToolSubmitAnswer, err)
		}
		return resultMeta(c), SubmitAnswerResult{
			Correct:       answered.Correct,
			CorrectAnswer: answered.CorrectAnswer,
			Result:        string(answered.Result),
			Run:           runResult(answered.Run),
			ExpGained:     answered.ExpGained,
			Committed:     answered.Committed,
			Wallet:        answered.Wallet,
		}, nil
	}
}

// UpgradeSectorInput is the input of practice_upgrade_sector.
type UpgradeSectorInput struct {
	Sector string `json:"sector" jsonschema:"sector key to upgrade"`
}

// UpgradeSectorResult is the output of practice_upgrade_sector.
type UpgradeSectorResult struct {
	Sector   string `json:"sector" jsonschema:"sector key"`
	Level    int    `json:"level" jsonschema:"new unlocked level"`
	Cost     int    `json:"cost" jsonschema:"experience spent"`
	Wallet   int    `json:"wallet" jsonschema:"wallet balance after the upgrade"`
	NextCost int    `json:"next_cost" jsonschema:"cost of the following upgrade"`
	Label    string `json:"label" jsonschema:"difficulty label of the new level"`
}

// UpgradeSectorTool defines practice_upgrade_sector.
func UpgradeSectorTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        ToolUpgradeSector,
		Description: "Spends wallet experience to unlock the next level of a sector.",
	}
}

// UpgradeSectorHandler executes practice_upgrade_sector.
func UpgradeSectorHandler(deps Deps) mcp.ToolHandlerFor[UpgradeSectorInput, UpgradeSectorResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input UpgradeSectorInput) (*mcp.CallToolResult, UpgradeSectorResult, error) {
		c, err := deps.begin(ctx, ToolUpgradeSector)
		if err != nil {
			return nil, UpgradeSectorResult{}, deps.fail(nil, ToolUpgradeSector, err)
		}
		defer c.cancel()

		upgraded, err := deps.Engine.UpgradeSector(c.ctx, play.UpgradeSectorRequest{
			UserID: c.player.UserID,
			Sector: input.Sector,
		})
		if err != nil {
			return nil, UpgradeSectorResult{}, deps.fail(c, ToolUpgradeSector, err)
		}
		return resultMeta(c), UpgradeSectorResult{
			Sector:   string(upgraded.Sector),
			Level:    upgraded.Level,
			Cost:     upgraded.Cost,
			Wallet:   upgraded.Wallet,
			NextCost: upgraded.NextCost,
			Label:    upgraded.Label,
		}, nil
	}
}

// ProgressInput is the input of practice_progress.
type ProgressInput struct{}

// SectorProgressResult is one sector of the progress overview.
type SectorProgressResult struct {
	Key            string `json:"key" jsonschema:"sector key"`
	Name           string `json:"name" jsonschema:"display name"`
	Level          int    `json:"level" jsonschema:"unlocked level"`
	Label          string `json:"label" jsonschema:"difficulty label"`
	RangeMin       int    `json:"range_min" jsonschema:"smallest operand at this level"`
	RangeMax       int    `json:"range_max" jsonschema:"largest operand at this level"`
	ExpReward      int    `json:"exp_reward" jsonschema:"experience per correct answer"`
	UpgradeCost    int    `json:"upgrade_cost" jsonschema:"cost of the next upgrade"`
	ProblemsSolved int    `json:"problems_solved" jsonschema:"problems solved in completed runs"`
	ExpEarned      int    `json:"exp_earned" jsonschema:"experience earned in the sector"`
}

// ProgressResult is the output of practice_progress.
type ProgressResult struct {
	UserID      string                 `json:"user_id" jsonschema:"player identifier"`
	DisplayName string                 `json:"display_name,omitempty" jsonschema:"player display name"`
	Wallet      int                    `json:"wallet" jsonschema:"experience available to spend"`
	Sectors     []SectorProgressResult `json:"sectors" jsonschema:"standing in every available sector"`
	Run         *RunResult             `json:"run,omitempty" jsonschema:"active run, if any"`
}

// ProgressTool defines practice_progress.
func ProgressTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        ToolProgress,
		Description: "Returns the player's wallet, the standing in every available sector and the active run.",
	}
}

// ProgressHandler executes practice_progress.
func ProgressHandler(deps Deps) mcp.ToolHandlerFor[ProgressInput, ProgressResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ ProgressInput) (*mcp.CallToolResult, ProgressResult, error) {
		c, err := deps.begin(ctx, ToolProgress)
		if err != nil {
			return nil, ProgressResult{}, deps.fail(nil, ToolProgress, err)
		}
		defer c.cancel()

		progress, err := deps.Engine.GetProgress(c.ctx, c.player.UserID)
		if err != nil {
			return nil, ProgressResult{}, deps.fail(c, ToolProgress, err)
		}
		result := ProgressResult{
			UserID:      progress.UserID,
			DisplayName: progress.DisplayName,
			Wallet:      progress.Wallet,
			Sectors:     make([]SectorProgressResult, 0, len(progress.Sectors)),
		}
		for _, status := range progress.Sectors {
			result.Sectors = append(result.Sectors, SectorProgressResult{
				Key:            string(status.Config.Key),
				Name:           status.Config.Name,
				Level:          status.Summary.Level,
				Label:          status.Summary.Label,
				RangeMin:       status.Summary.Range.Min,
				RangeMax:       status.Summary.Range.Max,
				ExpReward:      status.Summary.ExpReward,
				UpgradeCost:    status.Summary.UpgradeCost,
				ProblemsSolved: status.ProblemsSolved,
				ExpEarned:      status.ExpEarned,
			})
		}
		if progress.Run != nil {
			run := runResult(*progress.Run)
			result.Run = &run
		}
		return resultMeta(c), result, nil
	}
}
