package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertActivity inserts or updates an activity index row. On conflict the
// identity columns are refreshed; tss and efficiency_factor keep their
// stored values and are changed only through their dedicated updates.
func (db *DB) UpsertActivity(a *Activity) error {
	_, err := db.Exec(`
		INSERT INTO tb_activity (
			id, external_id, athlete_id, upload_fit_url, start_date, updated_at
		) VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			external_id = excluded.external_id,
			athlete_id = excluded.athlete_id,
			upload_fit_url = excluded.upload_fit_url,
			start_date = excluded.start_date,
			updated_at = CURRENT_TIMESTAMP
	`,
		a.ID, a.ExternalID, a.AthleteID, a.UploadFitURL,
		a.StartDate.UTC().Format(time.RFC3339),
	)
	return err
}

// GetActivity retrieves an activity by ID
func (db *DB) GetActivity(id int64) (*Activity, error) {
	row := db.QueryRow(`
		SELECT id, external_id, athlete_id, upload_fit_url, tss, tss_updated,
			efficiency_factor, start_date
		FROM tb_activity
		WHERE id = ?
	`, id)

	var a Activity
	var externalID, uploadURL *string
	var tssUpdated int
	var startDate string

	err := row.Scan(
		&a.ID, &externalID, &a.AthleteID, &uploadURL, &a.TSS, &tssUpdated,
		&a.EfficiencyFactor, &startDate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}

	if externalID != nil {
		a.ExternalID = *externalID
	}
	if uploadURL != nil {
		a.UploadFitURL = *uploadURL
	}
	a.TSSUpdated = tssUpdated == 1

	a.StartDate, err = time.Parse(time.RFC3339, startDate)
	if err != nil {
		return nil, fmt.Errorf("parsing start_date %q: %w", startDate, err)
	}
	return &a, nil
}

// UpdateActivityTSS writes the computed training stress score and marks it
// as up to date
func (db *DB) UpdateActivityTSS(id int64, tss int) error {
	result, err := db.Exec(`
		UPDATE tb_activity
		SET tss = ?, tss_updated = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, tss, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrActivityNotFound
	}
	return nil
}

// UpdateActivityEfficiencyFactor writes the computed efficiency factor
func (db *DB) UpdateActivityEfficiencyFactor(id int64, ef float64) error {
	result, err := db.Exec(`
		UPDATE tb_activity
		SET efficiency_factor = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, ef, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrActivityNotFound
	}
	return nil
}

// SumTSS totals the positive stress scores of an athlete's activities with
// start dates inside [from, to]
func (db *DB) SumTSS(athleteID int64, from, to time.Time) (int, error) {
	var total int
	err := db.QueryRow(`
		SELECT COALESCE(SUM(tss), 0)
		FROM tb_activity
		WHERE athlete_id = ? AND tss > 0 AND start_date >= ? AND start_date <= ?
	`, athleteID,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	).Scan(&total)
	return total, err
}
