package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Settings holds the process-wide result-cache switch. The switch survives
// restarts through a small key=value state file.
type Settings struct {
	mu      sync.Mutex
	path    string
	enabled bool
}

// NewSettings resolves the initial switch state: an explicit override wins,
// then the state file, then enabled. Pass the override from the
// environment so a deployment can pin the switch.
func NewSettings(path string, override *bool) *Settings {
	s := &Settings{path: path, enabled: true}
	if v, ok := readEnabledFile(path); ok {
		s.enabled = v
	}
	if override != nil {
		s.enabled = *override
	}
	return s
}

// Enabled reports the current switch state.
func (s *Settings) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetEnabled flips the switch and persists it to the state file.
func (s *Settings) SetEnabled(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = v
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(fmt.Sprintf("enabled=%t\n", v)), 0o644); err != nil {
		return fmt.Errorf("writing cache config: %w", err)
	}
	return nil
}

func readEnabledFile(path string) (value, ok bool) {
	if path == "" {
		return false, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, false
	}
	for _, line := range strings.Split(string(data), "\n") {
		rest, found := strings.CutPrefix(strings.TrimSpace(line), "enabled=")
		if !found {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(rest))
		if err != nil {
			return false, false
		}
		return b, true
	}
	return false, false
}
