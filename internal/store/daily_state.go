package store

import (
	"database/sql"
	"errors"
)

// UpsertDailyState writes the rollup output for one athlete-day
func (db *DB) UpsertDailyState(s *DailyState) error {
	_, err := db.Exec(`
		INSERT INTO tb_athlete_daily_state (
			athlete_id, date, fitness, fatigue, daily_status, updated_at
		) VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(athlete_id, date) DO UPDATE SET
			fitness = excluded.fitness,
			fatigue = excluded.fatigue,
			daily_status = excluded.daily_status,
			updated_at = CURRENT_TIMESTAMP
	`, s.AthleteID, s.Date, s.Fitness, s.Fatigue, s.DailyStatus)
	return err
}

// GetDailyState retrieves the rollup row for one athlete-day, or nil when
// no row exists
func (db *DB) GetDailyState(athleteID int64, date string) (*DailyState, error) {
	row := db.QueryRow(`
		SELECT athlete_id, date, fitness, fatigue, daily_status
		FROM tb_athlete_daily_state
		WHERE athlete_id = ? AND date = ?
	`, athleteID, date)

	var s DailyState
	err := row.Scan(&s.AthleteID, &s.Date, &s.Fitness, &s.Fatigue, &s.DailyStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
