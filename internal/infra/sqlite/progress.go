package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/healthrocket-labs/ignition/internal/app/progression"
	"github.com/healthrocket-labs/ignition/internal/domain"
)

// ─── ProgressStore ──────────────────────────────────────────────────────────

// EnsurePlayer creates a player row if absent. Used by seeding and tests.
func (d *DB) EnsurePlayer(ctx context.Context, playerID string, isPreview bool, credits int) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO players (id, is_preview, credits_remaining) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		playerID, isPreview, credits,
	)
	return err
}

// GetProgress returns the player's snapshot. Level is never trusted from
// storage: it is recomputed from the FP total on every read.
func (d *DB) GetProgress(ctx context.Context, playerID string) (domain.PlayerProgress, error) {
	var p domain.PlayerProgress
	var lastDate string

	err := d.db.QueryRowContext(ctx,
		`SELECT id, total_fp, burn_streak, last_action_date FROM players WHERE id = ?`,
		playerID,
	).Scan(&p.PlayerID, &p.TotalFuelPoints, &p.BurnStreakDays, &lastDate)
	if err == sql.ErrNoRows {
		return p, fmt.Errorf("%w: %s", domain.ErrUnknownPlayer, playerID)
	}
	if err != nil {
		return p, fmt.Errorf("get progress: %w", err)
	}

	if lastDate != "" {
		p.LastActionDate, err = time.ParseInLocation("2006-01-02", lastDate, d.loc)
		if err != nil {
			return p, fmt.Errorf("parse last action date %q: %w", lastDate, err)
		}
	}

	li, err := progression.LevelFor(p.TotalFuelPoints)
	if err != nil {
		return p, err
	}
	p.Level = li.Level
	return p, nil
}

// AppendCompletion records one completion, credits its FP, bumps the cached
// burn streak on first boost of a new day, and overwrites the cooldown
// window, all in one transaction.
func (d *DB) AppendCompletion(ctx context.Context, c domain.ActionCompletion) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO completions (id, player_id, kind, action_id, completed_at, awarded_fp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.PlayerID, string(c.Kind), c.ActionID, c.CompletedAt.Unix(), c.AwardedFP,
	)
	if err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}

	// Only boosts qualify for the burn streak: they bump the cached counter
	// on the first completion of a new calendar day and advance
	// last_action_date. Other kinds must leave both alone or a challenge
	// could shield a stale streak from the nightly reset.
	var res sql.Result
	if c.Kind == domain.KindBoost {
		day := d.refDate(c.CompletedAt)
		var lastDate string
		if err := tx.QueryRowContext(ctx,
			`SELECT last_action_date FROM players WHERE id = ?`, c.PlayerID,
		).Scan(&lastDate); err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("%w: %s", domain.ErrUnknownPlayer, c.PlayerID)
			}
			return fmt.Errorf("read last action date: %w", err)
		}
		streakBump := 0
		if lastDate != day {
			streakBump = 1
		}
		res, err = tx.ExecContext(ctx,
			`UPDATE players
			 SET total_fp = total_fp + ?, burn_streak = burn_streak + ?, last_action_date = ?
			 WHERE id = ?`,
			c.AwardedFP, streakBump, day, c.PlayerID,
		)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE players SET total_fp = total_fp + ? WHERE id = ?`,
			c.AwardedFP, c.PlayerID,
		)
	}
	if err != nil {
		return fmt.Errorf("credit fuel points: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrUnknownPlayer, c.PlayerID)
	}

	if cd := cooldownFor(c.Kind); cd > 0 {
		availableAfter := c.CompletedAt.Add(cd)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO cooldown_windows (player_id, kind, action_id, available_after)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(player_id, kind, action_id) DO UPDATE SET available_after = excluded.available_after`,
			c.PlayerID, string(c.Kind), c.ActionID, availableAfter.Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert cooldown window: %w", err)
		}
	}

	return tx.Commit()
}

func cooldownFor(kind domain.ActionKind) time.Duration {
	switch kind {
	case domain.KindBoost:
		return domain.BoostCooldown
	case domain.KindAssessment:
		return domain.AssessmentCooldown
	default:
		return 0
	}
}

// Completions returns the player's history for one kind since the given
// instant, oldest first. A zero since returns everything.
func (d *DB) Completions(ctx context.Context, playerID string, kind domain.ActionKind, since time.Time) ([]domain.ActionCompletion, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, player_id, kind, action_id, completed_at, awarded_fp
		 FROM completions
		 WHERE player_id = ? AND kind = ? AND completed_at >= ?
		 ORDER BY completed_at ASC`,
		playerID, string(kind), since.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	var out []domain.ActionCompletion
	for rows.Next() {
		var c domain.ActionCompletion
		var kindStr string
		var ts int64
		if err := rows.Scan(&c.ID, &c.PlayerID, &kindStr, &c.ActionID, &ts, &c.AwardedFP); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		c.Kind = domain.ActionKind(kindStr)
		c.CompletedAt = time.Unix(ts, 0)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CooldownWindows returns every persisted window for ledger hydration.
func (d *DB) CooldownWindows(ctx context.Context) ([]domain.CooldownWindow, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT player_id, kind, action_id, available_after FROM cooldown_windows`,
	)
	if err != nil {
		return nil, fmt.Errorf("query windows: %w", err)
	}
	defer rows.Close()

	var out []domain.CooldownWindow
	for rows.Next() {
		var w domain.CooldownWindow
		var kindStr string
		var ts int64
		if err := rows.Scan(&w.PlayerID, &kindStr, &w.ActionID, &ts); err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		w.Kind = domain.ActionKind(kindStr)
		w.AvailableAfter = time.Unix(ts, 0)
		out = append(out, w)
	}
	return out, rows.Err()
}

// ResetStreaks zeroes the cached burn streak of every player whose last
// qualifying action predates yesterday in the reference timezone.
// Idempotent: a second call for the same boundary matches no rows.
func (d *DB) ResetStreaks(ctx context.Context) (int64, error) {
	yesterday := d.refDate(time.Now().AddDate(0, 0, -1))

	res, err := d.db.ExecContext(ctx,
		`UPDATE players SET burn_streak = 0
		 WHERE burn_streak > 0 AND (last_action_date = '' OR last_action_date < ?)`,
		yesterday,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: reset streaks: %v", domain.ErrTransientExternal, err)
	}
	return res.RowsAffected()
}

// RegistrationStatus returns the player's contest status, "" if none.
func (d *DB) RegistrationStatus(ctx context.Context, playerID, contestID string) (string, error) {
	var status string
	err := d.db.QueryRowContext(ctx,
		`SELECT status FROM registrations WHERE player_id = ? AND contest_id = ?`,
		playerID, contestID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("registration status: %w", err)
	}
	return status, nil
}

// RegisterContest records a registered status for the player.
func (d *DB) RegisterContest(ctx context.Context, playerID, contestID string) error {
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO registrations (player_id, contest_id, status, registered_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(player_id, contest_id) DO NOTHING`,
		playerID, contestID, domain.StatusRegistered, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("register contest: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAlreadyRegistered
	}
	return nil
}

// ─── CreditOracle ───────────────────────────────────────────────────────────

// CheckCredits returns the player's contest credit entitlement.
func (d *DB) CheckCredits(ctx context.Context, playerID string) (domain.ContestCredit, error) {
	var c domain.ContestCredit
	err := d.db.QueryRowContext(ctx,
		`SELECT id, credits_remaining, is_preview FROM players WHERE id = ?`,
		playerID,
	).Scan(&c.PlayerID, &c.CreditsRemaining, &c.IsPreviewAccount)
	if err == sql.ErrNoRows {
		return c, fmt.Errorf("%w: %s", domain.ErrUnknownPlayer, playerID)
	}
	if err != nil {
		return c, fmt.Errorf("check credits: %w", err)
	}
	return c, nil
}

// SetDeviceConnected records a device-connection fact for a player.
func (d *DB) SetDeviceConnected(ctx context.Context, playerID, deviceName string, connected bool) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO devices (player_id, device_name, connected) VALUES (?, ?, ?)
		 ON CONFLICT(player_id, device_name) DO UPDATE SET connected = excluded.connected`,
		playerID, deviceName, connected,
	)
	return err
}

// CheckDeviceConnected reports whether the contest's required device is
// connected for the player, naming the device either way.
func (d *DB) CheckDeviceConnected(ctx context.Context, playerID, contestID string) (bool, string, error) {
	contest, ok := d.contests[contestID]
	if !ok {
		return false, "", fmt.Errorf("%w: %q", domain.ErrUnknownContest, contestID)
	}
	if contest.RequiredDevice == "" {
		return true, "", nil
	}

	var connected bool
	err := d.db.QueryRowContext(ctx,
		`SELECT connected FROM devices WHERE player_id = ? AND device_name = ?`,
		playerID, contest.RequiredDevice,
	).Scan(&connected)
	if err == sql.ErrNoRows {
		return false, contest.RequiredDevice, nil
	}
	if err != nil {
		return false, contest.RequiredDevice, fmt.Errorf("check device: %w", err)
	}
	return connected, contest.RequiredDevice, nil
}

// ConsumeCredit registers the player and decrements their credit count in
// one transaction. The count never goes negative.
func (d *DB) ConsumeCredit(ctx context.Context, playerID, contestID string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO registrations (player_id, contest_id, status, registered_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(player_id, contest_id) DO NOTHING`,
		playerID, contestID, domain.StatusRegistered, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("register contest: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAlreadyRegistered
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE players SET credits_remaining = credits_remaining - 1
		 WHERE id = ? AND credits_remaining > 0`,
		playerID,
	)
	if err != nil {
		return fmt.Errorf("decrement credits: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNoCredits
	}

	return tx.Commit()
}
