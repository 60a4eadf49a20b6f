// Package problem generates multiple-choice arithmetic problems from a seed.
//
// Generation is deterministic: the same sector configuration, level and seed
// always produce the same question, answer and candidate order.
package problem

import (
	"fmt"
	"math/rand"
	"time"

	apperrors "github.com/SingularTensor/Mathly/internal/platform/errors"
	"github.com/SingularTensor/Mathly/internal/platform/random"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/progression"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
)

// CandidateCount is the number of choices offered per problem.
const CandidateCount = 4

// MaxDistractorDraws bounds the distractor search.
const MaxDistractorDraws = 10000

// multiplyClampLevel is the highest level at which multiplication operands
// stay within the times table.
const multiplyClampLevel = 4

const timesTableMax = 12

// Problem is one generated question. ID and CreatedAt are assigned by the
// caller that stores it.
type Problem struct {
	ID         string           `json:"id"`
	Sector     sector.Key       `json:"sector"`
	Level      int              `json:"level"`
	Seed       int64            `json:"seed"`
	Operation  sector.Operation `json:"operation"`
	Question   string           `json:"question"`
	Operands   []int            `json:"operands"`
	Answer     int              `json:"answer"`
	Candidates []int            `json:"candidates"`
	ExpReward  int              `json:"exp_reward"`
	CreatedAt  time.Time        `json:"created_at"`
}

// IsCorrect reports whether answer matches the problem's answer.
func (p Problem) IsCorrect(answer int) bool {
	return answer == p.Answer
}

// Generate builds a problem for cfg at level from seed.
func Generate(cfg sector.Config, level int, seed int64) (Problem, error) {
	if level < 1 {
		return Problem{}, apperrors.WithMetadata(apperrors.CodeInvalidLevel, "level must be at least 1", map[string]string{
			"Level": fmt.Sprint(level),
		})
	}
	rng := random.NewRand(seed)
	r := progression.DifficultyRange(level)

	op := resolveOperation(rng, cfg.Operation)
	q := build(rng, op, level, r)

	distractors, err := drawDistractors(rng, q.answer, spreadFor(level), MaxDistractorDraws)
	if err != nil {
		return Problem{}, err
	}
	candidates := append(distractors, q.answer)
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	return Problem{
		Sector:     cfg.Key,
		Level:      level,
		Seed:       seed,
		Operation:  op,
		Question:   q.text,
		Operands:   q.operands,
		Answer:     q.answer,
		Candidates: candidates,
		ExpReward:  progression.SectorExpReward(cfg, level),
	}, nil
}

type question struct {
	text     string
	operands []int
	answer   int
}

var mixedOperations = []sector.Operation{
	sector.OperationAdd,
	sector.OperationSubtract,
	sector.OperationMultiply,
	sector.OperationDivide,
}

// resolveOperation maps a sector operation to the concrete operation that
// will be rendered. Kinds without an integer generator fall back to addition.
func resolveOperation(rng *rand.Rand, op sector.Operation) sector.Operation {
	switch op {
	case sector.OperationAdd,
		sector.OperationSubtract,
		sector.OperationMultiply,
		sector.OperationDivide,
		sector.OperationSolveForX:
		return op
	case sector.OperationMixed:
		return mixedOperations[rng.Intn(len(mixedOperations))]
	default:
		return sector.OperationAdd
	}
}

func build(rng *rand.Rand, op sector.Operation, level int, r progression.Range) question {
	switch op {
	case sector.OperationSubtract:
		a := random.IntBetween(rng, r.Min, r.Max)
		b := random.IntBetween(rng, r.Min, r.Max)
		if a < b {
			a, b = b, a
		}
		return question{text: fmt.Sprintf("%d − %d", a, b), operands: []int{a, b}, answer: a - b}
	case sector.OperationMultiply:
		mr := multiplyRange(level, r)
		a := random.IntBetween(rng, mr.Min, mr.Max)
		b := random.IntBetween(rng, mr.Min, mr.Max)
		return question{text: fmt.Sprintf("%d × %d", a, b), operands: []int{a, b}, answer: a * b}
	case sector.OperationDivide:
		lo := max(1, r.Min)
		hi := min(timesTableMax, r.Max)
		if hi < lo {
			hi = lo
		}
		b := random.IntBetween(rng, lo, hi)
		quotient := random.IntBetween(rng, 1, max(1, r.Max/b))
		a := quotient * b
		return question{text: fmt.Sprintf("%d / %d", a, b), operands: []int{a, b}, answer: quotient}
	case sector.OperationSolveForX:
		if rng.Intn(2) == 0 {
			x := random.IntBetween(rng, r.Min, r.Max)
			b := random.IntBetween(rng, r.Min, r.Max)
			return question{text: fmt.Sprintf("x + %d = %d", b, x+b), operands: []int{b, x + b}, answer: x}
		}
		mr := multiplyRange(level, r)
		a := random.IntBetween(rng, mr.Min, mr.Max)
		x := random.IntBetween(rng, mr.Min, mr.Max)
		return question{text: fmt.Sprintf("%d × x = %d", a, a*x), operands: []int{a, a * x}, answer: x}
	default:
		a := random.IntBetween(rng, r.Min, r.Max)
		b := random.IntBetween(rng, r.Min, r.Max)
		return question{text: fmt.Sprintf("%d + %d", a, b), operands: []int{a, b}, answer: a + b}
	}
}

func multiplyRange(level int, r progression.Range) progression.Range {
	if level <= multiplyClampLevel {
		return progression.Range{Min: 1, Max: min(timesTableMax, r.Max)}
	}
	return r
}

func spreadFor(level int) int {
	return max(5, 2*level)
}

// drawDistractors picks CandidateCount-1 distinct non-negative wrong answers
// near correct.
func drawDistractors(rng *rand.Rand, correct, spread, maxDraws int) ([]int, error) {
	want := CandidateCount - 1
	seen := make(map[int]struct{}, want)
	out := make([]int, 0, CandidateCount)
	for draws := 0; len(out) < want; draws++ {
		if draws >= maxDraws {
			return nil, apperrors.WithMetadata(apperrors.CodeGeneratorExhausted, "distractor search exhausted", map[string]string{
				"Answer": fmt.Sprint(correct),
				"Spread": fmt.Sprint(spread),
			})
		}
		offset := random.IntBetween(rng, -spread, spread)
		if offset == 0 {
			offset = 1
			if rng.Intn(2) == 0 {
				offset = -1
			}
		}
		candidate := correct + offset
		if candidate < 0 || candidate == correct {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	return out, nil
}
