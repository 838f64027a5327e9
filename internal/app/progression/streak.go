package progression

import (
	"time"

	"github.com/healthrocket-labs/ignition/internal/domain"
)

// Burn-streak bonus schedule: a step function over streak length.
// Each bonus is awarded once, on the day the threshold is first crossed,
// not repeated every day past it.
var streakBonuses = map[int]int64{
	3:  5,
	7:  10,
	21: 100,
}

// StreakResult is the derived burn-streak view for one instant.
type StreakResult struct {
	StreakDays int   `json:"streak_days"`
	BonusFP    int64 `json:"bonus_fp"` // bonus crossed on asOf's day, 0 otherwise
}

// BonusForDay returns the bonus FP awarded when a streak first reaches
// the given length, or 0 when the length is not a threshold.
func BonusForDay(streakDays int) int64 {
	return streakBonuses[streakDays]
}

// ComputeStreak derives the burn streak from a player's boost history.
// A day counts when at least one boost was completed on that calendar day
// in the reference timezone. The streak is the run of consecutive
// qualifying days ending at asOf (if today qualifies) or asOf minus one
// day; a single missed day resets the count.
//
// Pure over (history, asOf) so replays are idempotent.
func ComputeStreak(history []domain.ActionCompletion, asOf time.Time) StreakResult {
	loc := domain.ReferenceLocation()

	qualifying := make(map[string]bool)
	for _, c := range history {
		if c.Kind != domain.KindBoost {
			continue
		}
		qualifying[c.CompletedAt.In(loc).Format("2006-01-02")] = true
	}

	local := asOf.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	todayQualifies := qualifying[day.Format("2006-01-02")]
	if !todayQualifies {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for qualifying[day.Format("2006-01-02")] {
		streak++
		day = day.AddDate(0, 0, -1)
	}

	result := StreakResult{StreakDays: streak}
	if todayQualifies {
		result.BonusFP = BonusForDay(streak)
	}
	return result
}

// DaysUntilRotation returns the days left in the current 7-day boost
// rotation, anchored to the reference timezone week (Monday start).
func DaysUntilRotation(now time.Time) int {
	local := now.In(domain.ReferenceLocation())
	weekday := int(local.Weekday()) // Sunday = 0
	daysSinceMonday := (weekday + 6) % 7
	return domain.BoostRotationDays - daysSinceMonday
}
