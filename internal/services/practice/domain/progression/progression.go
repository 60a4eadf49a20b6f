// Package progression computes difficulty parameters, rewards and upgrade
// costs for sector levels. Every function is pure.
package progression

import (
	"math"
	"strconv"

	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
)

// Range is the inclusive operand range for a level.
type Range struct {
	Min int
	Max int
}

// normalizeLevel clamps levels below 1 to 1.
func normalizeLevel(level int) int {
	if level < 1 {
		return 1
	}
	return level
}

// DifficultyRange returns the operand range for level.
func DifficultyRange(level int) Range {
	level = normalizeLevel(level)
	switch {
	case level <= 3:
		return Range{Min: 1, Max: 5 + 3*level}
	case level <= 6:
		return Range{Min: 1 + 2*(level-3), Max: 15 + 10*(level-3)}
	case level <= 10:
		return Range{Min: 5 + 5*(level-6), Max: 50 + 25*(level-6)}
	default:
		return Range{Min: 10 + 10*(level-10), Max: 100 + 50*(level-10)}
	}
}

// ExpReward returns the experience granted for one correct answer. It is
// never below 1.
func ExpReward(baseExp, level int) int {
	level = normalizeLevel(level)
	return max(1, baseExp+(level-1)-3)
}

// SectorExpReward is ExpReward for a sector configuration.
func SectorExpReward(cfg sector.Config, level int) int {
	return ExpReward(cfg.BaseExp, level)
}

// UpgradeCost returns the wallet cost to raise a sector from level to
// level+1.
func UpgradeCost(level int) int {
	level = normalizeLevel(level)
	return int(math.Floor(50 * math.Sqrt(float64(level))))
}

// DifficultyLabel names the tier of level.
func DifficultyLabel(level int) string {
	level = normalizeLevel(level)
	switch {
	case level <= 2:
		return "Beginner"
	case level <= 4:
		return "Easy"
	case level <= 6:
		return "Medium"
	case level <= 8:
		return "Hard"
	case level <= 10:
		return "Expert"
	default:
		return "Master " + strconv.Itoa(level-10)
	}
}

// Summary bundles the derived parameters of one sector level.
type Summary struct {
	Level       int
	Label       string
	Range       Range
	ExpReward   int
	UpgradeCost int
}

// Describe summarizes cfg at level.
func Describe(cfg sector.Config, level int) Summary {
	level = normalizeLevel(level)
	return Summary{
		Level:       level,
		Label:       DifficultyLabel(level),
		Range:       DifficultyRange(level),
		ExpReward:   SectorExpReward(cfg, level),
		UpgradeCost: UpgradeCost(level),
	}
}
