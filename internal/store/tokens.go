package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetOAuthToken retrieves the stored provider tokens for a device
func (db *DB) GetOAuthToken(deviceID string) (*OAuthToken, error) {
	row := db.QueryRow(`
		SELECT device_id, access_token, refresh_token, update_time
		FROM tb_oauth_token
		WHERE device_id = ?
	`, deviceID)

	var t OAuthToken
	var updateTime string
	err := row.Scan(&t.DeviceID, &t.AccessToken, &t.RefreshToken, &updateTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}

	t.UpdateTime, err = time.Parse(time.RFC3339, updateTime)
	if err != nil {
		return nil, fmt.Errorf("parsing update_time %q: %w", updateTime, err)
	}
	return &t, nil
}

// SaveOAuthToken stores or replaces the tokens for a device
func (db *DB) SaveOAuthToken(t *OAuthToken) error {
	_, err := db.Exec(`
		INSERT INTO tb_oauth_token (device_id, access_token, refresh_token, update_time)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			update_time = excluded.update_time
	`, t.DeviceID, t.AccessToken, t.RefreshToken, t.UpdateTime.UTC().Format(time.RFC3339))
	return err
}
