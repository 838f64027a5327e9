// Package cooldown tracks per-action completion windows and answers
// "is this action currently available". Boosts repeat on a 7-day cycle,
// health assessments on a 30-day cadence; contest registration is
// credit-count based and never passes through this ledger.
package cooldown

import (
	"math"
	"sync"
	"time"

	"github.com/healthrocket-labs/ignition/internal/domain"
)

// Key identifies one cooldown window.
type Key struct {
	PlayerID string
	Kind     domain.ActionKind
	ActionID string
}

// Ledger holds the in-process view of cooldown windows, hydrated from the
// store at startup and written through on each completion by its caller.
// sync.Map gives per-key granularity: concurrent completions for different
// keys never contend on a single lock, and stores for the same key are
// linearized last-write-wins.
type Ledger struct {
	windows sync.Map // Key -> domain.CooldownWindow
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// DurationFor returns the fixed cooldown for an action kind.
// Kinds without a timed cooldown return 0.
func DurationFor(kind domain.ActionKind) time.Duration {
	switch kind {
	case domain.KindBoost:
		return domain.BoostCooldown
	case domain.KindAssessment:
		return domain.AssessmentCooldown
	default:
		return 0
	}
}

// IsAvailable reports whether the action may run at the given instant:
// now >= availableAfter, or true when no prior completion exists.
func (l *Ledger) IsAvailable(playerID string, kind domain.ActionKind, actionID string, now time.Time) bool {
	w, ok := l.Window(playerID, kind, actionID)
	if !ok {
		return true
	}
	return !now.Before(w.AvailableAfter)
}

// Window returns the current window for a key, if one exists.
func (l *Ledger) Window(playerID string, kind domain.ActionKind, actionID string) (domain.CooldownWindow, bool) {
	v, ok := l.windows.Load(Key{PlayerID: playerID, Kind: kind, ActionID: actionID})
	if !ok {
		return domain.CooldownWindow{}, false
	}
	return v.(domain.CooldownWindow), true
}

// RecordCompletion overwrites the window for the completed action and
// returns it. The only writer; windows are never deleted.
func (l *Ledger) RecordCompletion(playerID string, kind domain.ActionKind, actionID string, completedAt time.Time) domain.CooldownWindow {
	w := domain.CooldownWindow{
		PlayerID:       playerID,
		Kind:           kind,
		ActionID:       actionID,
		AvailableAfter: completedAt.Add(DurationFor(kind)),
	}
	l.windows.Store(Key{PlayerID: playerID, Kind: kind, ActionID: actionID}, w)
	return w
}

// Hydrate loads persisted windows, typically once at process start.
func (l *Ledger) Hydrate(windows []domain.CooldownWindow) {
	for _, w := range windows {
		l.windows.Store(Key{PlayerID: w.PlayerID, Kind: w.Kind, ActionID: w.ActionID}, w)
	}
}

// DaysRemaining returns whole days until the window opens, rounded up.
// Zero when the action is already available.
func (l *Ledger) DaysRemaining(playerID string, kind domain.ActionKind, actionID string, now time.Time) int {
	w, ok := l.Window(playerID, kind, actionID)
	if !ok || !now.Before(w.AvailableAfter) {
		return 0
	}
	return int(math.Ceil(w.AvailableAfter.Sub(now).Hours() / 24))
}
