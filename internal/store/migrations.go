package store

import (
	"database/sql"
	"fmt"
	"time"
)

// migrations is the ordered DDL list. Append only; never edit an applied
// entry.
var migrations = []string{
	// Per-activity index row (tss and efficiency_factor are written back by
	// the analytics run)
	`CREATE TABLE IF NOT EXISTS tb_activity (
		id INTEGER PRIMARY KEY,
		external_id TEXT,
		athlete_id INTEGER NOT NULL,
		upload_fit_url TEXT,
		tss INTEGER NOT NULL DEFAULT 0,
		tss_updated INTEGER NOT NULL DEFAULT 0,
		efficiency_factor REAL,
		start_date TEXT NOT NULL,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tb_activity_athlete_start ON tb_activity(athlete_id, start_date)`,

	// Athlete profile plus rolling fitness state
	`CREATE TABLE IF NOT EXISTS tb_athlete (
		id INTEGER PRIMARY KEY,
		ftp INTEGER,
		w_balance INTEGER,
		max_heartrate INTEGER,
		threshold_heartrate INTEGER,
		is_threshold_active INTEGER NOT NULL DEFAULT 0,
		weight REAL,
		atl INTEGER NOT NULL DEFAULT 0,
		ctl INTEGER NOT NULL DEFAULT 0,
		tsb INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	)`,

	// Wide per-athlete records row, generated from the window list
	powerRecordsDDL(),

	// One rollup row per athlete-day
	`CREATE TABLE IF NOT EXISTS tb_athlete_daily_state (
		athlete_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		fitness INTEGER NOT NULL DEFAULT 0,
		fatigue INTEGER NOT NULL DEFAULT 0,
		daily_status INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (athlete_id, date)
	)`,

	// Index over the on-disk result cache files
	`CREATE TABLE IF NOT EXISTS tb_activity_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL,
		cache_key TEXT NOT NULL,
		file_path TEXT NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		expires_at TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		cache_metadata TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tb_activity_cache_active ON tb_activity_cache(activity_id, is_active)`,

	// Provider tokens per client device
	`CREATE TABLE IF NOT EXISTS tb_oauth_token (
		device_id TEXT PRIMARY KEY,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		update_time TEXT NOT NULL
	)`,
}

// migrate applies any migrations past the recorded schema version, all in
// one transaction
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	var applied int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&applied); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if applied >= len(migrations) {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for i := applied; i < len(migrations); i++ {
		if _, err := tx.Exec(migrations[i]); err != nil {
			return fmt.Errorf("applying migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", i+1, now,
		); err != nil {
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}
