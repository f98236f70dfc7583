package store

import (
	"path/filepath"
	"testing"
)

// NewTestStore opens a store backed by a temp-file database with migrations
// applied. The file is removed with the test's temp dir.
func NewTestStore(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}
