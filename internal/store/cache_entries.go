package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const cacheEntryColumns = `id, activity_id, cache_key, file_path, file_size,
	created_at, updated_at, expires_at, is_active, cache_metadata`

// SaveCacheEntry deactivates any active rows for the activity, whatever
// their key, then inserts e as the single active row. e.ID and the
// timestamps are set on success.
func (db *DB) SaveCacheEntry(e *CacheEntry) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Truncate(time.Second)
	nowStr := now.Format(time.RFC3339)

	if _, err := tx.Exec(`
		UPDATE tb_activity_cache
		SET is_active = 0, updated_at = ?
		WHERE activity_id = ? AND is_active = 1
	`, nowStr, e.ActivityID); err != nil {
		return fmt.Errorf("deactivating previous entries: %w", err)
	}

	result, err := tx.Exec(`
		INSERT INTO tb_activity_cache (
			activity_id, cache_key, file_path, file_size,
			created_at, updated_at, expires_at, is_active, cache_metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
	`,
		e.ActivityID, e.CacheKey, e.FilePath, e.FileSize,
		nowStr, nowStr, formatTimePtr(e.ExpiresAt), e.Metadata,
	)
	if err != nil {
		return fmt.Errorf("inserting cache entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	e.ID = id
	e.CreatedAt = now
	e.UpdatedAt = now
	e.IsActive = true
	return nil
}

// GetCacheEntry retrieves the active entry for an activity and cache key
func (db *DB) GetCacheEntry(activityID int64, cacheKey string) (*CacheEntry, error) {
	row := db.QueryRow(`
		SELECT `+cacheEntryColumns+`
		FROM tb_activity_cache
		WHERE activity_id = ? AND cache_key = ? AND is_active = 1
		ORDER BY id DESC
		LIMIT 1
	`, activityID, cacheKey)
	return scanCacheEntry(row)
}

// LatestCacheEntry retrieves the most recently updated active entry for an
// activity, regardless of cache key
func (db *DB) LatestCacheEntry(activityID int64) (*CacheEntry, error) {
	row := db.QueryRow(`
		SELECT `+cacheEntryColumns+`
		FROM tb_activity_cache
		WHERE activity_id = ? AND is_active = 1
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
	`, activityID)
	return scanCacheEntry(row)
}

// DeactivateCacheEntries marks all active entries for an activity inactive
// and returns their file paths
func (db *DB) DeactivateCacheEntries(activityID int64) ([]string, error) {
	return db.deactivateEntries("WHERE activity_id = ? AND is_active = 1", activityID)
}

// DeactivateAllCacheEntries marks every active entry inactive and returns
// the file paths
func (db *DB) DeactivateAllCacheEntries() ([]string, error) {
	return db.deactivateEntries("WHERE is_active = 1")
}

func (db *DB) deactivateEntries(where string, args ...any) ([]string, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query("SELECT file_path FROM tb_activity_cache "+where, args...)
	if err != nil {
		return nil, err
	}

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, err
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	updateArgs := append([]any{now}, args...)
	if _, err := tx.Exec(
		"UPDATE tb_activity_cache SET is_active = 0, updated_at = ? "+where, updateArgs...,
	); err != nil {
		return nil, fmt.Errorf("deactivating entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return paths, nil
}

// CountActiveCacheEntries returns the number of active index rows
func (db *DB) CountActiveCacheEntries() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM tb_activity_cache WHERE is_active = 1").Scan(&count)
	return count, err
}

// scanCacheEntry scans a single cache entry from a row
func scanCacheEntry(row *sql.Row) (*CacheEntry, error) {
	var e CacheEntry
	var createdAt, updatedAt string
	var expiresAt, metadata *string
	var isActive int

	err := row.Scan(
		&e.ID, &e.ActivityID, &e.CacheKey, &e.FilePath, &e.FileSize,
		&createdAt, &updatedAt, &expiresAt, &isActive, &metadata,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	e.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	e.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at %q: %w", updatedAt, err)
	}
	if expiresAt != nil {
		t, err := time.Parse(time.RFC3339, *expiresAt)
		if err != nil {
			return nil, fmt.Errorf("parsing expires_at %q: %w", *expiresAt, err)
		}
		e.ExpiresAt = &t
	}
	if metadata != nil {
		e.Metadata = *metadata
	}
	e.IsActive = isActive == 1
	return &e, nil
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
