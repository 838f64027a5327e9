package domain

import (
	"context"
	"time"
)

// External collaborators. The engine computes derived values and issues
// mutation requests through these narrow interfaces; it holds no
// authoritative copy of player state beyond one computation.

// ProgressStore owns PlayerProgress and the append-only completion history.
type ProgressStore interface {
	// GetProgress returns the player's progress snapshot, with Level
	// reconciled from TotalFuelPoints. Returns ErrUnknownPlayer when the
	// player does not exist.
	GetProgress(ctx context.Context, playerID string) (PlayerProgress, error)

	// AppendCompletion records one completion, credits its FP, and
	// overwrites the matching cooldown window.
	AppendCompletion(ctx context.Context, c ActionCompletion) error

	// Completions returns the player's history for one kind since the
	// given instant, ordered by completion time. A zero since returns
	// the full history.
	Completions(ctx context.Context, playerID string, kind ActionKind, since time.Time) ([]ActionCompletion, error)

	// CooldownWindows returns every persisted window, for ledger
	// hydration at process start.
	CooldownWindows(ctx context.Context) ([]CooldownWindow, error)

	// ResetStreaks zeroes the cached burn-streak counter of every player
	// whose last qualifying action predates yesterday in the reference
	// timezone. Idempotent: a second call for the same boundary affects
	// nothing. Returns the number of players reset.
	ResetStreaks(ctx context.Context) (int64, error)

	// RegistrationStatus returns the player's status for a contest, or
	// "" when no registration exists.
	RegistrationStatus(ctx context.Context, playerID, contestID string) (string, error)

	// RegisterContest records a registered status for the player.
	RegisterContest(ctx context.Context, playerID, contestID string) error
}

// CreditOracle answers credit and device-connection facts.
type CreditOracle interface {
	CheckCredits(ctx context.Context, playerID string) (ContestCredit, error)

	// CheckDeviceConnected reports whether the device the contest
	// requires is connected, and names that device either way.
	CheckDeviceConnected(ctx context.Context, playerID, contestID string) (connected bool, deviceName string, err error)

	// ConsumeCredit decrements the player's credit count transactionally.
	// Returns ErrNoCredits instead of going negative.
	ConsumeCredit(ctx context.Context, playerID, contestID string) error
}

// PaymentSessionCreator opens a checkout session for a paid registration.
// The engine treats the redirect target opaquely.
type PaymentSessionCreator interface {
	CreateSession(ctx context.Context, playerID, contestID string, entryFeeUSD int) (redirectURL string, err error)
}
