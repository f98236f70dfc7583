package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSettings_DefaultEnabled(t *testing.T) {
	s := NewSettings("", nil)
	if !s.Enabled() {
		t.Error("expected the cache to default to enabled")
	}
}

func TestSettings_FileState(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".cache_config")
	if err := os.WriteFile(path, []byte("enabled=false\n"), 0o644); err != nil {
		t.Fatalf("writing state file failed: %v", err)
	}

	if NewSettings(path, nil).Enabled() {
		t.Error("state file should disable the cache")
	}

	// An explicit override beats the file.
	on := true
	if !NewSettings(path, &on).Enabled() {
		t.Error("override should win over the state file")
	}
	off := false
	if NewSettings(filepath.Join(t.TempDir(), "missing"), &off).Enabled() {
		t.Error("override should apply without a state file")
	}
}

func TestSettings_SetEnabledPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".cache_config")

	s := NewSettings(path, nil)
	if err := s.SetEnabled(false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}
	if s.Enabled() {
		t.Error("switch should be off after SetEnabled(false)")
	}

	if NewSettings(path, nil).Enabled() {
		t.Error("a fresh Settings should read the persisted state")
	}

	if err := s.SetEnabled(true); err != nil {
		t.Fatalf("SetEnabled(true) failed: %v", err)
	}
	if !NewSettings(path, nil).Enabled() {
		t.Error("re-enabling should persist too")
	}
}
