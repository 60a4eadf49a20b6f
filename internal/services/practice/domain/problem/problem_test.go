package problem

import (
	"fmt"
	"strings"
	"testing"

	apperrors "github.com/SingularTensor/Mathly/internal/platform/errors"
	"github.com/SingularTensor/Mathly/internal/platform/random"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/progression"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
	"github.com/google/go-cmp/cmp"
)

func builtin(t *testing.T, key sector.Key) sector.Config {
	t.Helper()
	cfg, ok := sector.Builtin(key)
	if !ok {
		t.Fatalf("missing sector %q", key)
	}
	return cfg
}

func assertCandidates(t *testing.T, p Problem) {
	t.Helper()
	if len(p.Candidates) != CandidateCount {
		t.Fatalf("candidates = %v, want %d entries", p.Candidates, CandidateCount)
	}
	seen := map[int]bool{}
	correct := 0
	for _, c := range p.Candidates {
		if c < 0 {
			t.Fatalf("negative candidate in %v", p.Candidates)
		}
		if seen[c] {
			t.Fatalf("duplicate candidate in %v", p.Candidates)
		}
		seen[c] = true
		if c == p.Answer {
			correct++
		}
	}
	if correct != 1 {
		t.Fatalf("answer %d appears %d times in %v", p.Answer, correct, p.Candidates)
	}
}

func TestGenerateCandidateInvariants(t *testing.T) {
	t.Parallel()

	for _, key := range sector.Keys {
		cfg := builtin(t, key)
		for level := 1; level <= 15; level++ {
			for seed := int64(0); seed < 40; seed++ {
				p, err := Generate(cfg, level, seed)
				if err != nil {
					t.Fatalf("Generate(%s, %d, %d): %v", key, level, seed, err)
				}
				assertCandidates(t, p)
				if p.Sector != key || p.Level != level || p.Seed != seed {
					t.Fatalf("problem identity = %s/%d/%d", p.Sector, p.Level, p.Seed)
				}
				if p.ExpReward != progression.SectorExpReward(cfg, level) {
					t.Fatalf("exp reward = %d", p.ExpReward)
				}
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()

	cfg := builtin(t, sector.Mixed)
	first, err := Generate(cfg, 6, 1234)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := Generate(cfg, 6, 1234)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("same seed produced different problems (-first +second):\n%s", diff)
	}
}

func TestGenerateRejectsLevelBelowOne(t *testing.T) {
	t.Parallel()

	_, err := Generate(builtin(t, sector.Addition), 0, 1)
	if !apperrors.IsCode(err, apperrors.CodeInvalidLevel) {
		t.Fatalf("err = %v, want %s", err, apperrors.CodeInvalidLevel)
	}
}

func TestAdditionOperandsWithinRange(t *testing.T) {
	t.Parallel()

	cfg := builtin(t, sector.Addition)
	r := progression.DifficultyRange(1)
	for seed := int64(0); seed < 200; seed++ {
		p, _ := Generate(cfg, 1, seed)
		a, b := p.Operands[0], p.Operands[1]
		if a < r.Min || a > r.Max || b < r.Min || b > r.Max {
			t.Fatalf("operands %v outside %+v", p.Operands, r)
		}
		if p.Answer != a+b {
			t.Fatalf("answer = %d, want %d", p.Answer, a+b)
		}
		if p.Question != fmt.Sprintf("%d + %d", a, b) {
			t.Fatalf("question = %q", p.Question)
		}
	}
}

func TestSubtractionNeverNegative(t *testing.T) {
	t.Parallel()

	cfg := builtin(t, sector.Subtraction)
	for level := 1; level <= 20; level++ {
		for seed := int64(0); seed < 50; seed++ {
			p, _ := Generate(cfg, level, seed)
			if p.Answer < 0 {
				t.Fatalf("negative answer for %q", p.Question)
			}
			if p.Operands[0] < p.Operands[1] {
				t.Fatalf("operands not ordered: %v", p.Operands)
			}
			if !strings.Contains(p.Question, "−") {
				t.Fatalf("question = %q", p.Question)
			}
		}
	}
}

func TestMultiplicationClampedAtLowLevels(t *testing.T) {
	t.Parallel()

	cfg := builtin(t, sector.Multiplication)
	for level := 1; level <= 4; level++ {
		limit := min(12, progression.DifficultyRange(level).Max)
		for seed := int64(0); seed < 100; seed++ {
			p, _ := Generate(cfg, level, seed)
			for _, operand := range p.Operands {
				if operand < 1 || operand > limit {
					t.Fatalf("level %d operand %d outside [1,%d]", level, operand, limit)
				}
			}
			if p.Answer != p.Operands[0]*p.Operands[1] {
				t.Fatalf("answer = %d for %v", p.Answer, p.Operands)
			}
		}
	}
}

func TestDivisionExact(t *testing.T) {
	t.Parallel()

	cfg := builtin(t, sector.Division)
	for level := 1; level <= 20; level++ {
		r := progression.DifficultyRange(level)
		lo := max(1, r.Min)
		hi := max(lo, min(12, r.Max))
		for seed := int64(0); seed < 60; seed++ {
			p, _ := Generate(cfg, level, seed)
			dividend, divisor := p.Operands[0], p.Operands[1]
			if divisor < 1 {
				t.Fatalf("divisor = %d", divisor)
			}
			if divisor < lo || divisor > hi {
				t.Fatalf("level %d divisor %d outside [%d,%d]", level, divisor, lo, hi)
			}
			if dividend != p.Answer*divisor {
				t.Fatalf("%d != %d * %d", dividend, p.Answer, divisor)
			}
			if p.Answer < 1 || p.Answer > max(1, r.Max/divisor) {
				t.Fatalf("quotient %d out of bounds", p.Answer)
			}
		}
	}
}

func TestDivisionLevelFiveExample(t *testing.T) {
	t.Parallel()

	cfg := builtin(t, sector.Division)
	for seed := int64(0); seed < 10000; seed++ {
		p, err := Generate(cfg, 5, seed)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if p.Operands[1] != 7 || p.Answer != 3 {
			continue
		}
		if p.Question != "21 / 7" {
			t.Fatalf("question = %q, want 21 / 7", p.Question)
		}
		if p.Operands[0] != 21 {
			t.Fatalf("dividend = %d, want 21", p.Operands[0])
		}
		return
	}
	t.Fatal("no seed produced divisor 7 and quotient 3")
}

func TestSolveForX(t *testing.T) {
	t.Parallel()

	cfg := builtin(t, sector.FindValue)
	var sawAdd, sawMul bool
	for seed := int64(0); seed < 100; seed++ {
		p, _ := Generate(cfg, 3, seed)
		if p.Operation != sector.OperationSolveForX {
			t.Fatalf("operation = %v", p.Operation)
		}
		switch {
		case strings.HasPrefix(p.Question, "x + "):
			sawAdd = true
			if p.Answer+p.Operands[0] != p.Operands[1] {
				t.Fatalf("%q answer %d inconsistent", p.Question, p.Answer)
			}
		case strings.Contains(p.Question, "× x ="):
			sawMul = true
			if p.Operands[0]*p.Answer != p.Operands[1] {
				t.Fatalf("%q answer %d inconsistent", p.Question, p.Answer)
			}
		default:
			t.Fatalf("unexpected question %q", p.Question)
		}
	}
	if !sawAdd || !sawMul {
		t.Fatalf("forms seen add=%v mul=%v", sawAdd, sawMul)
	}
}

func TestMixedUsesEveryOperation(t *testing.T) {
	t.Parallel()

	cfg := builtin(t, sector.Mixed)
	seen := map[sector.Operation]bool{}
	for seed := int64(0); seed < 200; seed++ {
		p, _ := Generate(cfg, 5, seed)
		seen[p.Operation] = true
	}
	for _, op := range mixedOperations {
		if !seen[op] {
			t.Fatalf("mixed never produced %v", op)
		}
	}
}

func TestFallbackOperationsUseAddition(t *testing.T) {
	t.Parallel()

	for _, cfg := range []sector.Config{
		builtin(t, sector.Fractions),
		builtin(t, sector.Decimals),
		{Key: "custom", Operation: sector.OperationUnspecified, BaseExp: 1},
	} {
		p, err := Generate(cfg, 2, 99)
		if err != nil {
			t.Fatalf("Generate(%s): %v", cfg.Key, err)
		}
		if p.Operation != sector.OperationAdd {
			t.Fatalf("%s operation = %v, want add", cfg.Key, p.Operation)
		}
		if p.Answer != p.Operands[0]+p.Operands[1] {
			t.Fatalf("%s answer = %d", cfg.Key, p.Answer)
		}
	}
}

func TestDrawDistractorsExhausted(t *testing.T) {
	t.Parallel()

	_, err := drawDistractors(random.NewRand(1), 0, 5, 2)
	if !apperrors.IsCode(err, apperrors.CodeGeneratorExhausted) {
		t.Fatalf("err = %v, want %s", err, apperrors.CodeGeneratorExhausted)
	}
}

func TestDrawDistractorsStayWithinSpread(t *testing.T) {
	t.Parallel()

	rng := random.NewRand(42)
	for i := 0; i < 200; i++ {
		got, err := drawDistractors(rng, 3, 5, MaxDistractorDraws)
		if err != nil {
			t.Fatalf("drawDistractors: %v", err)
		}
		for _, d := range got {
			if d < 0 || d > 8 || d == 3 {
				t.Fatalf("distractor %d out of bounds", d)
			}
		}
	}
}

func TestIsCorrect(t *testing.T) {
	t.Parallel()

	p := Problem{Answer: 12}
	if !p.IsCorrect(12) || p.IsCorrect(13) {
		t.Fatal("IsCorrect mismatch")
	}
}

func TestCandidateOrderIsUniform(t *testing.T) {
	t.Parallel()

	const seeds = 12000
	cfg := builtin(t, sector.Addition)
	var positions [CandidateCount]int
	orderings := map[string]int{}
	for seed := int64(0); seed < seeds; seed++ {
		p, err := Generate(cfg, 3, seed)
		if err != nil {
			t.Fatalf("Generate(seed %d): %v", seed, err)
		}
		for i, c := range p.Candidates {
			if c == p.Answer {
				positions[i]++
			}
		}
		orderings[rankPattern(p.Candidates)]++
	}

	want := seeds / CandidateCount
	for i, got := range positions {
		if got < want*9/10 || got > want*11/10 {
			t.Fatalf("answer at position %d in %d of %d problems, want about %d (all: %v)", i, got, seeds, want, positions)
		}
	}
	if len(orderings) != 24 {
		t.Fatalf("saw %d candidate orderings, want 24", len(orderings))
	}
}

// rankPattern describes the order of candidates by value rank, e.g. "2031".
func rankPattern(candidates []int) string {
	var b strings.Builder
	for _, c := range candidates {
		rank := 0
		for _, other := range candidates {
			if other < c {
				rank++
			}
		}
		fmt.Fprintf(&b, "%d", rank)
	}
	return b.String()
}
