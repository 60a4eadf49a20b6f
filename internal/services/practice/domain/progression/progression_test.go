package progression

import (
	"testing"

	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
	"github.com/google/go-cmp/cmp"
)

func TestDifficultyRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level int
		want  Range
	}{
		{level: -2, want: Range{Min: 1, Max: 8}},
		{level: 0, want: Range{Min: 1, Max: 8}},
		{level: 1, want: Range{Min: 1, Max: 8}},
		{level: 3, want: Range{Min: 1, Max: 14}},
		{level: 4, want: Range{Min: 3, Max: 25}},
		{level: 5, want: Range{Min: 5, Max: 35}},
		{level: 6, want: Range{Min: 7, Max: 45}},
		{level: 7, want: Range{Min: 10, Max: 75}},
		{level: 10, want: Range{Min: 25, Max: 150}},
		{level: 11, want: Range{Min: 20, Max: 150}},
		{level: 12, want: Range{Min: 30, Max: 200}},
	}
	for _, tc := range tests {
		if got := DifficultyRange(tc.level); got != tc.want {
			t.Fatalf("DifficultyRange(%d) = %+v, want %+v", tc.level, got, tc.want)
		}
	}
}

func TestDifficultyRangeMinNotAboveMax(t *testing.T) {
	t.Parallel()

	for level := 1; level <= 200; level++ {
		r := DifficultyRange(level)
		if r.Min > r.Max {
			t.Fatalf("DifficultyRange(%d) = %+v, min above max", level, r)
		}
	}
}

func TestDifficultyRangeMaxNonDecreasing(t *testing.T) {
	t.Parallel()

	prev := DifficultyRange(1)
	for level := 2; level <= 200; level++ {
		cur := DifficultyRange(level)
		if cur.Max < prev.Max {
			t.Fatalf("max decreased at level %d: %d < %d", level, cur.Max, prev.Max)
		}
		prev = cur
	}
}

func TestExpRewardAtLeastOne(t *testing.T) {
	t.Parallel()

	for _, key := range sector.Keys {
		cfg, _ := sector.Builtin(key)
		for level := -1; level <= 50; level++ {
			if got := SectorExpReward(cfg, level); got < 1 {
				t.Fatalf("SectorExpReward(%s, %d) = %d, want >= 1", key, level, got)
			}
		}
	}
	if got := ExpReward(0, 1); got != 1 {
		t.Fatalf("ExpReward(0, 1) = %d, want 1", got)
	}
}

func TestUpgradeCost(t *testing.T) {
	t.Parallel()

	tests := map[int]int{1: 50, 2: 70, 4: 100, 9: 150, 10: 158}
	for level, want := range tests {
		if got := UpgradeCost(level); got != want {
			t.Fatalf("UpgradeCost(%d) = %d, want %d", level, got, want)
		}
	}

	prev := UpgradeCost(1)
	for level := 2; level <= 500; level++ {
		cur := UpgradeCost(level)
		if cur < prev {
			t.Fatalf("UpgradeCost(%d) = %d < UpgradeCost(%d) = %d", level, cur, level-1, prev)
		}
		prev = cur
	}
}

func TestDifficultyLabel(t *testing.T) {
	t.Parallel()

	tests := map[int]string{
		1:  "Beginner",
		2:  "Beginner",
		3:  "Easy",
		4:  "Easy",
		6:  "Medium",
		8:  "Hard",
		10: "Expert",
		11: "Master 1",
		12: "Master 2",
	}
	for level, want := range tests {
		if got := DifficultyLabel(level); got != want {
			t.Fatalf("DifficultyLabel(%d) = %q, want %q", level, got, want)
		}
	}
}

func TestAdditionLevelOne(t *testing.T) {
	t.Parallel()

	cfg, _ := sector.Builtin(sector.Addition)
	got := Describe(cfg, 1)
	want := Summary{
		Level:       1,
		Label:       "Beginner",
		Range:       Range{Min: 1, Max: 8},
		ExpReward:   2,
		UpgradeCost: 50,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Describe mismatch (-want +got):\n%s", diff)
	}
}

func TestMasterTier(t *testing.T) {
	t.Parallel()

	cfg, _ := sector.Builtin(sector.FindValue)
	got := Describe(cfg, 12)
	if got.Range != (Range{Min: 30, Max: 200}) {
		t.Fatalf("range = %+v", got.Range)
	}
	if got.Label != "Master 2" {
		t.Fatalf("label = %q, want Master 2", got.Label)
	}
	if got.ExpReward != 20 {
		t.Fatalf("reward = %d, want 20", got.ExpReward)
	}
}
