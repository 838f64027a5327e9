// Package eligibility composes the cooldown ledger with external credit
// and device facts to admit or deny gated player actions. Denials are
// normal results carrying a machine reason and a display string; the gate
// errors only on programmer mistakes such as an unknown player.
package eligibility

import (
	"context"
	"fmt"
	"time"

	"github.com/healthrocket-labs/ignition/internal/app/cooldown"
	"github.com/healthrocket-labs/ignition/internal/domain"
	"github.com/healthrocket-labs/ignition/internal/infra/metrics"
)

// Gate answers admit/deny for boost starts, contest registrations, and
// health-assessment submissions. Read-only: admitted mutations (FP award,
// credit consumption) are issued by the caller afterwards.
type Gate struct {
	store    domain.ProgressStore
	oracle   domain.CreditOracle
	ledger   *cooldown.Ledger
	contests map[string]domain.Contest
	loc      *time.Location

	now func() time.Time // injectable for tests
}

// New creates a gate over the given collaborators and contest catalog.
func New(store domain.ProgressStore, oracle domain.CreditOracle, ledger *cooldown.Ledger, contests []domain.Contest) *Gate {
	return &Gate{
		store:    store,
		oracle:   oracle,
		ledger:   ledger,
		contests: domain.ContestIndex(contests),
		loc:      domain.ReferenceLocation(),
		now:      time.Now,
	}
}

// Check evaluates an intent for a player.
func (g *Gate) Check(ctx context.Context, playerID string, intent domain.Intent) (domain.Decision, error) {
	// Unknown player is a contract violation, not a denial.
	if _, err := g.store.GetProgress(ctx, playerID); err != nil {
		return domain.Decision{}, fmt.Errorf("check %s for %s: %w", intent.Kind, playerID, err)
	}

	switch intent.Kind {
	case domain.IntentStartBoost:
		return g.checkBoost(ctx, playerID, intent.ActionID)
	case domain.IntentRegisterContest:
		return g.checkContest(ctx, playerID, intent.ActionID)
	case domain.IntentSubmitAssessment:
		return g.checkAssessment(playerID)
	default:
		return domain.Decision{}, fmt.Errorf("%w: intent kind %q", domain.ErrInvalidInput, intent.Kind)
	}
}

func (g *Gate) checkBoost(ctx context.Context, playerID, boostID string) (domain.Decision, error) {
	now := g.now()

	if !g.ledger.IsAvailable(playerID, domain.KindBoost, boostID, now) {
		days := g.ledger.DaysRemaining(playerID, domain.KindBoost, boostID, now)
		return g.deny(domain.Decision{
			Reason:        domain.DenyCooldownActive,
			DaysRemaining: days,
			Display:       fmt.Sprintf("This boost is cooling down. Available again in %d days.", days),
		}), nil
	}

	// At most 3 boost completions per reference-timezone day.
	local := now.In(g.loc)
	startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, g.loc)
	today, err := g.store.Completions(ctx, playerID, domain.KindBoost, startOfDay)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("count today's boosts: %w", err)
	}
	if len(today) >= domain.MaxDailyBoosts {
		return g.deny(domain.Decision{
			Reason:  domain.DenySlotLimitReached,
			Display: fmt.Sprintf("You've completed all %d Daily Boosts. More tomorrow!", domain.MaxDailyBoosts),
		}), nil
	}

	return domain.Admit(), nil
}

// checkContest applies the registration checks in order: connected-device
// fact, preview credits, entry fee, existing registration. The admit paths
// precede the already-registered check because the upstream flow disables
// registration for registered players and the credit consumption RPC is
// itself guarded.
func (g *Gate) checkContest(ctx context.Context, playerID, contestID string) (domain.Decision, error) {
	contest, ok := g.contests[contestID]
	if !ok {
		return domain.Decision{}, fmt.Errorf("%w: %q", domain.ErrUnknownContest, contestID)
	}

	connected, deviceName, err := g.oracle.CheckDeviceConnected(ctx, playerID, contestID)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("check device for %s: %w", contestID, err)
	}
	if !connected {
		return g.deny(domain.Decision{
			Reason:     domain.DenyDeviceNotConnected,
			DeviceName: deviceName,
			Display:    fmt.Sprintf("Required device not connected: %s", deviceName),
		}), nil
	}

	credits, err := g.oracle.CheckCredits(ctx, playerID)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("check credits: %w", err)
	}
	if credits.IsPreviewAccount && credits.CreditsRemaining > 0 {
		d := domain.Admit()
		d.ConsumeCredit = true
		return d, nil
	}

	if !contest.IsFree() {
		d := domain.Admit()
		d.PaymentRequired = true
		return d, nil
	}

	status, err := g.store.RegistrationStatus(ctx, playerID, contestID)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("registration status: %w", err)
	}
	if status == domain.StatusRegistered {
		return g.deny(domain.Decision{
			Reason:  domain.DenyAlreadyRegistered,
			Display: "You're already registered for this contest.",
		}), nil
	}

	return domain.Admit(), nil
}

func (g *Gate) checkAssessment(playerID string) (domain.Decision, error) {
	now := g.now()
	if g.ledger.IsAvailable(playerID, domain.KindAssessment, domain.AssessmentActionID, now) {
		return domain.Admit(), nil
	}

	days := g.ledger.DaysRemaining(playerID, domain.KindAssessment, domain.AssessmentActionID, now)
	return g.deny(domain.Decision{
		Reason:        domain.DenyCooldownActive,
		DaysRemaining: days,
		Display:       fmt.Sprintf("%d Days Until Available", days),
	}), nil
}

func (g *Gate) deny(d domain.Decision) domain.Decision {
	d.Admitted = false
	metrics.EligibilityDenials.WithLabelValues(string(d.Reason)).Inc()
	return d
}
