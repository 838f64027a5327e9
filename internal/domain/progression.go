// Package domain holds the pure types of the progression engine.
// Fuel Points (FP) are the single reward currency; levels, burn streaks,
// and cooldown windows are all derived from the append-only completion
// history, never stored as independent truth.
package domain

import (
	"time"
	_ "time/tzdata" // reference timezone must resolve on hosts without a zone database
)

// ReferenceTimezone defines "a day" for every cooldown and reset boundary,
// independent of the acting device's local timezone.
const ReferenceTimezone = "America/New_York"

var referenceLocation = mustLoadReference()

func mustLoadReference() *time.Location {
	loc, err := time.LoadLocation(ReferenceTimezone)
	if err != nil {
		panic("load reference timezone: " + err.Error())
	}
	return loc
}

// ReferenceLocation returns the fixed reference timezone.
func ReferenceLocation() *time.Location { return referenceLocation }

// ─── Action Kinds ───────────────────────────────────────────────────────────

// ActionKind categorizes a player action.
type ActionKind string

const (
	KindBoost      ActionKind = "boost"
	KindChallenge  ActionKind = "challenge"
	KindQuest      ActionKind = "quest"
	KindAssessment ActionKind = "assessment"

	// KindStreakBonus entries credit the burn-streak milestone FP. They are
	// history like any other completion but never gate, cool down, or count
	// toward daily boost slots.
	KindStreakBonus ActionKind = "streak_bonus"
)

// FP awards per action kind.
const (
	FPBoostMin   int64 = 1
	FPBoostMax   int64 = 9
	FPChallenge  int64 = 50
	FPQuest      int64 = 150
	FPContestWin int64 = 100
)

// Cooldown and cadence constants.
const (
	BoostCooldown      = 7 * 24 * time.Hour
	AssessmentCooldown = 30 * 24 * time.Hour
	MaxDailyBoosts     = 3
	BoostRotationDays  = 7
)

// AssessmentActionID is the single cooldown key for health assessments.
// There is one assessment cadence per player, not one per form.
const AssessmentActionID = "health-assessment"

// ─── Progress Types ─────────────────────────────────────────────────────────

// PlayerProgress is a snapshot of a player's progression state.
// Level is derived from TotalFuelPoints on every read.
type PlayerProgress struct {
	PlayerID        string    `json:"player_id"`
	TotalFuelPoints int64     `json:"total_fuel_points"`
	Level           int       `json:"level"`
	BurnStreakDays  int       `json:"burn_streak_days"`
	LastActionDate  time.Time `json:"last_action_date"`
}

// ActionCompletion is one append-only history entry. Immutable once created.
type ActionCompletion struct {
	ID          string     `json:"id"`
	PlayerID    string     `json:"player_id"`
	Kind        ActionKind `json:"kind"`
	ActionID    string     `json:"action_id"`
	CompletedAt time.Time  `json:"completed_at"`
	AwardedFP   int64      `json:"awarded_fp"`
}

// CooldownWindow records when an action becomes available again.
// One per (player, kind, action) key, overwritten on each completion.
type CooldownWindow struct {
	PlayerID       string     `json:"player_id"`
	Kind           ActionKind `json:"kind"`
	ActionID       string     `json:"action_id"`
	AvailableAfter time.Time  `json:"available_after"`
}

// ContestCredit is the count-based entitlement for fee-free registration.
type ContestCredit struct {
	PlayerID         string `json:"player_id"`
	CreditsRemaining int    `json:"credits_remaining"`
	IsPreviewAccount bool   `json:"is_preview_account"`
}

// ─── Eligibility Types ──────────────────────────────────────────────────────

// IntentKind names the gated player action.
type IntentKind string

const (
	IntentStartBoost       IntentKind = "start_boost"
	IntentRegisterContest  IntentKind = "register_contest"
	IntentSubmitAssessment IntentKind = "submit_assessment"
)

// Intent is a request to perform a gated action. ActionID carries the boost
// or contest identifier; it is empty for assessment submissions.
type Intent struct {
	Kind     IntentKind `json:"kind"`
	ActionID string     `json:"action_id,omitempty"`
}

// DenyReason is a machine-readable denial code.
type DenyReason string

const (
	DenyCooldownActive     DenyReason = "cooldown_active"
	DenySlotLimitReached   DenyReason = "slot_limit_reached"
	DenyDeviceNotConnected DenyReason = "device_not_connected"
	DenyAlreadyRegistered  DenyReason = "already_registered"
)

// Decision is the outcome of an eligibility check. Denials are ordinary
// results, never errors; only programmer mistakes surface as errors.
type Decision struct {
	Admitted        bool       `json:"admitted"`
	Reason          DenyReason `json:"reason,omitempty"`
	Display         string     `json:"display,omitempty"`
	PaymentRequired bool       `json:"payment_required,omitempty"`
	ConsumeCredit   bool       `json:"consume_credit,omitempty"`
	DaysRemaining   int        `json:"days_remaining,omitempty"`
	DeviceName      string     `json:"device_name,omitempty"`
}

// Admit returns an unconditional admission.
func Admit() Decision { return Decision{Admitted: true} }
