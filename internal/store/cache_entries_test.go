package store

import (
	"errors"
	"testing"
	"time"
)

func TestSaveCacheEntry_SupersedesActive(t *testing.T) {
	db := NewTestStore(t)

	first := &CacheEntry{ActivityID: 101, CacheKey: "abc", FilePath: "/tmp/101_abc.json", FileSize: 512}
	if err := db.SaveCacheEntry(first); err != nil {
		t.Fatalf("SaveCacheEntry failed: %v", err)
	}
	if first.ID == 0 {
		t.Error("Expected ID to be set on save")
	}
	if !first.IsActive {
		t.Error("Expected saved entry to be active")
	}

	second := &CacheEntry{ActivityID: 101, CacheKey: "abc", FilePath: "/tmp/101_abc_v2.json", FileSize: 600}
	if err := db.SaveCacheEntry(second); err != nil {
		t.Fatalf("Second SaveCacheEntry failed: %v", err)
	}

	got, err := db.GetCacheEntry(101, "abc")
	if err != nil {
		t.Fatalf("GetCacheEntry failed: %v", err)
	}
	if got.FilePath != "/tmp/101_abc_v2.json" {
		t.Errorf("Expected the superseding file path, got %q", got.FilePath)
	}

	var active int
	err = db.QueryRow(
		"SELECT COUNT(*) FROM tb_activity_cache WHERE activity_id = 101 AND cache_key = 'abc' AND is_active = 1",
	).Scan(&active)
	if err != nil {
		t.Fatalf("Counting active rows failed: %v", err)
	}
	if active != 1 {
		t.Errorf("Expected exactly 1 active row, got %d", active)
	}
}

func TestLatestCacheEntry(t *testing.T) {
	db := NewTestStore(t)

	db.SaveCacheEntry(&CacheEntry{ActivityID: 101, CacheKey: "k1", FilePath: "/tmp/a.json"})
	db.SaveCacheEntry(&CacheEntry{ActivityID: 101, CacheKey: "k2", FilePath: "/tmp/b.json"})

	got, err := db.LatestCacheEntry(101)
	if err != nil {
		t.Fatalf("LatestCacheEntry failed: %v", err)
	}
	if got.CacheKey != "k2" {
		t.Errorf("Expected latest entry k2, got %q", got.CacheKey)
	}

	// Saving k2 deactivated the k1 row; one active row per activity.
	if _, err := db.GetCacheEntry(101, "k1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected k1 to be superseded, got %v", err)
	}

	if _, err := db.LatestCacheEntry(999); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for unknown activity, got %v", err)
	}
}

func TestDeactivateCacheEntries(t *testing.T) {
	db := NewTestStore(t)

	db.SaveCacheEntry(&CacheEntry{ActivityID: 101, CacheKey: "k1", FilePath: "/tmp/a.json"})
	db.SaveCacheEntry(&CacheEntry{ActivityID: 102, CacheKey: "k1", FilePath: "/tmp/b.json"})

	paths, err := db.DeactivateCacheEntries(101)
	if err != nil {
		t.Fatalf("DeactivateCacheEntries failed: %v", err)
	}
	if len(paths) != 1 || paths[0] != "/tmp/a.json" {
		t.Errorf("Expected [/tmp/a.json], got %v", paths)
	}

	if _, err := db.GetCacheEntry(101, "k1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after deactivation, got %v", err)
	}
	if _, err := db.GetCacheEntry(102, "k1"); err != nil {
		t.Errorf("Entry for another activity should survive, got %v", err)
	}

	count, err := db.CountActiveCacheEntries()
	if err != nil {
		t.Fatalf("CountActiveCacheEntries failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 active entry, got %d", count)
	}
}

func TestDeactivateAllCacheEntries(t *testing.T) {
	db := NewTestStore(t)

	db.SaveCacheEntry(&CacheEntry{ActivityID: 101, CacheKey: "k1", FilePath: "/tmp/a.json"})
	db.SaveCacheEntry(&CacheEntry{ActivityID: 102, CacheKey: "k1", FilePath: "/tmp/b.json"})

	paths, err := db.DeactivateAllCacheEntries()
	if err != nil {
		t.Fatalf("DeactivateAllCacheEntries failed: %v", err)
	}
	if len(paths) != 2 {
		t.Errorf("Expected 2 paths, got %v", paths)
	}

	count, err := db.CountActiveCacheEntries()
	if err != nil {
		t.Fatalf("CountActiveCacheEntries failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 active entries, got %d", count)
	}
}

func TestCacheEntry_ExpiresAtRoundTrip(t *testing.T) {
	db := NewTestStore(t)

	expires := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	e := &CacheEntry{ActivityID: 101, CacheKey: "k", FilePath: "/tmp/x.json", ExpiresAt: &expires}
	if err := db.SaveCacheEntry(e); err != nil {
		t.Fatalf("SaveCacheEntry failed: %v", err)
	}

	got, err := db.GetCacheEntry(101, "k")
	if err != nil {
		t.Fatalf("GetCacheEntry failed: %v", err)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(expires) {
		t.Errorf("Expected expires_at %v, got %v", expires, got.ExpiresAt)
	}
	if got.Metadata != "" {
		t.Errorf("Expected empty metadata, got %q", got.Metadata)
	}
}
