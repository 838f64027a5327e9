// Package sqlite provides SQLite-backed implementations of the engine's
// ProgressStore and CreditOracle interfaces.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/healthrocket-labs/ignition/internal/domain"
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db       *sql.DB
	contests map[string]domain.Contest
	loc      *time.Location
}

// Open creates or opens the database at dir/state.db.
// Enables WAL mode, foreign keys, and a 5-second busy timeout.
// The contest catalog resolves required-device lookups.
func Open(dir string, contests []domain.Contest) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{
		db:       db,
		contests: domain.ContestIndex(contests),
		loc:      domain.ReferenceLocation(),
	}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id                TEXT PRIMARY KEY,
			total_fp          INTEGER NOT NULL DEFAULT 0,
			burn_streak       INTEGER NOT NULL DEFAULT 0,
			last_action_date  TEXT NOT NULL DEFAULT '',
			is_preview        BOOLEAN NOT NULL DEFAULT 0,
			credits_remaining INTEGER NOT NULL DEFAULT 0
		)`,

		// Append-only action history. Rows are never updated or deleted.
		`CREATE TABLE IF NOT EXISTS completions (
			id           TEXT PRIMARY KEY,
			player_id    TEXT NOT NULL,
			kind         TEXT NOT NULL,
			action_id    TEXT NOT NULL,
			completed_at INTEGER NOT NULL,
			awarded_fp   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_completions_player ON completions(player_id, kind, completed_at)`,

		// One window per (player, kind, action); overwritten, never deleted.
		`CREATE TABLE IF NOT EXISTS cooldown_windows (
			player_id       TEXT NOT NULL,
			kind            TEXT NOT NULL,
			action_id       TEXT NOT NULL,
			available_after INTEGER NOT NULL,
			PRIMARY KEY (player_id, kind, action_id)
		)`,

		`CREATE TABLE IF NOT EXISTS registrations (
			player_id     TEXT NOT NULL,
			contest_id    TEXT NOT NULL,
			status        TEXT NOT NULL,
			registered_at INTEGER NOT NULL,
			PRIMARY KEY (player_id, contest_id)
		)`,

		`CREATE TABLE IF NOT EXISTS devices (
			player_id   TEXT NOT NULL,
			device_name TEXT NOT NULL,
			connected   BOOLEAN NOT NULL DEFAULT 0,
			PRIMARY KEY (player_id, device_name)
		)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// refDate formats an instant as a reference-timezone calendar date.
func (d *DB) refDate(t time.Time) string {
	return t.In(d.loc).Format("2006-01-02")
}
