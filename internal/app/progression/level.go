// Package progression implements the pure calculators of the engine:
// the FP leveling curve and the burn-streak tracker. Both are side-effect
// free: identical inputs always yield identical outputs.
package progression

import (
	"fmt"
	"math"

	"github.com/healthrocket-labs/ignition/internal/domain"
)

// Leveling curve constants. Level 1 requires 0 FP, level 2 requires the
// base threshold, and each subsequent threshold is the previous one
// multiplied by the growth factor, rounded half-up. The chain multiplies
// the already-rounded integer so client and server never drift.
const (
	BaseThreshold = 20
	GrowthFactor  = 1.414
)

// LevelInfo is the derived leveling view for a given FP total.
type LevelInfo struct {
	Level          int   `json:"level"`
	CurrentLevelFP int64 `json:"current_level_fp"` // threshold of the current level
	NextLevelFP    int64 `json:"next_level_fp"`    // threshold of the next level
}

// roundHalfUp rounds to the nearest integer. Thresholds are always positive,
// so half-away-from-zero and half-up agree.
func roundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}

// FPForLevel returns the cumulative FP required to reach a level.
// Levels 0 and 1 require 0 FP. There is no upper bound.
func FPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	req := int64(BaseThreshold)
	for l := 2; l < level; l++ {
		req = roundHalfUp(float64(req) * GrowthFactor)
	}
	return req
}

// LevelFor computes the level for an FP total: the largest L such that
// FPForLevel(L) <= totalFP. Monotonically non-decreasing in totalFP.
// Negative totals are a contract violation.
func LevelFor(totalFP int64) (LevelInfo, error) {
	if totalFP < 0 {
		return LevelInfo{}, fmt.Errorf("%w: negative fuel points %d", domain.ErrInvalidInput, totalFP)
	}

	level := 1
	cur := int64(0)
	next := int64(BaseThreshold)
	for totalFP >= next {
		level++
		cur = next
		next = roundHalfUp(float64(next) * GrowthFactor)
	}

	return LevelInfo{Level: level, CurrentLevelFP: cur, NextLevelFP: next}, nil
}

// ProgressPct returns progress toward the next level (0.0–100.0).
func (li LevelInfo) ProgressPct(totalFP int64) float64 {
	span := li.NextLevelFP - li.CurrentLevelFP
	if span <= 0 {
		return 100.0
	}
	pct := float64(totalFP-li.CurrentLevelFP) / float64(span) * 100.0
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}

// AssessmentBonus is the FP awarded for a health assessment: 10% of the
// FP required for the next level, rounded.
func AssessmentBonus(nextLevelFP int64) int64 {
	return roundHalfUp(float64(nextLevelFP) * 0.1)
}
