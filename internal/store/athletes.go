package store

import (
	"database/sql"
	"errors"
)

// GetAthlete retrieves an athlete profile by ID
func (db *DB) GetAthlete(id int64) (*Athlete, error) {
	row := db.QueryRow(`
		SELECT id, ftp, w_balance, max_heartrate, threshold_heartrate,
			is_threshold_active, weight, atl, ctl, tsb
		FROM tb_athlete
		WHERE id = ?
	`, id)

	var a Athlete
	var thresholdActive int
	err := row.Scan(
		&a.ID, &a.FTP, &a.WBalance, &a.MaxHeartrate, &a.ThresholdHeartrate,
		&thresholdActive, &a.Weight, &a.ATL, &a.CTL, &a.TSB,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAthleteNotFound
	}
	if err != nil {
		return nil, err
	}
	a.IsThresholdActive = thresholdActive == 1
	return &a, nil
}

// UpsertAthlete inserts or updates an athlete profile. The rollup state
// columns keep their stored values; use UpdateAthleteRollup for those.
func (db *DB) UpsertAthlete(a *Athlete) error {
	_, err := db.Exec(`
		INSERT INTO tb_athlete (
			id, ftp, w_balance, max_heartrate, threshold_heartrate,
			is_threshold_active, weight, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			ftp = excluded.ftp,
			w_balance = excluded.w_balance,
			max_heartrate = excluded.max_heartrate,
			threshold_heartrate = excluded.threshold_heartrate,
			is_threshold_active = excluded.is_threshold_active,
			weight = excluded.weight,
			updated_at = CURRENT_TIMESTAMP
	`,
		a.ID, a.FTP, a.WBalance, a.MaxHeartrate, a.ThresholdHeartrate,
		boolToInt(a.IsThresholdActive), a.Weight,
	)
	return err
}

// UpdateAthleteRollup writes the rolling fitness state
func (db *DB) UpdateAthleteRollup(id int64, atl, ctl, tsb int) error {
	result, err := db.Exec(`
		UPDATE tb_athlete
		SET atl = ?, ctl = ?, tsb = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, atl, ctl, tsb, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAthleteNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
