package cache

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"powerlab/internal/store"
)

// ResultCache stores assembled analysis responses as JSON files and indexes
// them in the database, one active entry per activity. Writing a new entry
// supersedes whatever request shape was cached before.
type ResultCache struct {
	db       *store.DB
	dir      string
	settings *Settings
}

// NewResultCache creates a result cache writing files under dir.
func NewResultCache(db *store.DB, dir string, settings *Settings) *ResultCache {
	return &ResultCache{db: db, dir: dir, settings: settings}
}

// GenerateKey builds the digest naming one request shape for an activity.
// Stream keys are canonicalized by sorting, so request order does not split
// the cache.
func GenerateKey(activityID int64, keys []string, resolution string) string {
	var parts []string
	if len(keys) > 0 {
		sorted := append([]string(nil), keys...)
		sort.Strings(sorted)
		parts = append(parts, "keys="+strings.Join(sorted, ","))
	}
	if resolution != "" {
		parts = append(parts, "resolution="+resolution)
	}
	sort.Strings(parts)

	sum := md5.Sum([]byte(fmt.Sprintf("activity_%d_%s", activityID, strings.Join(parts, "&"))))
	return fmt.Sprintf("%x", sum)
}

// Enabled reports the process-wide cache switch.
func (rc *ResultCache) Enabled() bool { return rc.settings.Enabled() }

// SetEnabled flips the cache switch and persists it.
func (rc *ResultCache) SetEnabled(v bool) error { return rc.settings.SetEnabled(v) }

// Get returns the stored document for one request shape. A nil document
// means no usable cache: the switch is off, the index row is missing, or
// the file is gone.
func (rc *ResultCache) Get(activityID int64, key string) (json.RawMessage, error) {
	if !rc.settings.Enabled() {
		return nil, nil
	}
	entry, err := rc.db.GetCacheEntry(activityID, key)
	if errors.Is(err, store.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up cache entry: %w", err)
	}

	data, err := os.ReadFile(entry.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}
	return json.RawMessage(data), nil
}

// Set serializes doc under the cache directory and records it as the
// activity's single active entry. metadata is stored alongside the index
// row for inspection.
func (rc *ResultCache) Set(activityID int64, key string, doc any, metadata string) error {
	if !rc.settings.Enabled() {
		return nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding cached document: %w", err)
	}

	if err := os.MkdirAll(rc.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	path := filepath.Join(rc.dir, fmt.Sprintf("%d_%s.json", activityID, key))

	// Write-temp-and-rename so concurrent readers never see a partial file.
	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing cache file: %w", err)
	}

	entry := &store.CacheEntry{
		ActivityID: activityID,
		CacheKey:   key,
		FilePath:   path,
		FileSize:   int64(len(data)),
		Metadata:   metadata,
	}
	if err := rc.db.SaveCacheEntry(entry); err != nil {
		return fmt.Errorf("indexing cache entry: %w", err)
	}
	return nil
}

// CachedMetric returns one named section of the activity's latest cached
// document, nil when no usable cache exists or the section is absent.
func (rc *ResultCache) CachedMetric(activityID int64, name string) (json.RawMessage, error) {
	if !rc.settings.Enabled() {
		return nil, nil
	}
	entry, err := rc.db.LatestCacheEntry(activityID)
	if errors.Is(err, store.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up cache entry: %w", err)
	}

	data, err := os.ReadFile(entry.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding cached document: %w", err)
	}
	return doc[name], nil
}

// Invalidate deactivates the activity's index rows and removes their files
// best-effort. Returns the number of rows deactivated.
func (rc *ResultCache) Invalidate(activityID int64) (int, error) {
	paths, err := rc.db.DeactivateCacheEntries(activityID)
	if err != nil {
		return 0, fmt.Errorf("deactivating cache entries: %w", err)
	}
	removeFiles(paths)
	return len(paths), nil
}

// InvalidateAll deactivates every index row and removes the files
// best-effort.
func (rc *ResultCache) InvalidateAll() (int, error) {
	paths, err := rc.db.DeactivateAllCacheEntries()
	if err != nil {
		return 0, fmt.Errorf("deactivating cache entries: %w", err)
	}
	removeFiles(paths)
	return len(paths), nil
}

// Status reports the switch state and the number of active index rows.
type Status struct {
	Enabled       bool   `json:"enabled"`
	ActiveEntries int    `json:"active_entries"`
	Dir           string `json:"cache_dir"`
}

func (rc *ResultCache) Status() (Status, error) {
	count, err := rc.db.CountActiveCacheEntries()
	if err != nil {
		return Status{}, fmt.Errorf("counting cache entries: %w", err)
	}
	return Status{
		Enabled:       rc.settings.Enabled(),
		ActiveEntries: count,
		Dir:           rc.dir,
	}, nil
}

func removeFiles(paths []string) {
	for _, p := range paths {
		os.Remove(p)
	}
}
