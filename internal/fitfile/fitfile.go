// Package fitfile decodes binary activity recordings into sample tables.
package fitfile

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"powerlab/internal/streams"
)

// DefaultTimeout bounds fetching a recording from its upload URL.
const DefaultTimeout = 30 * time.Second

// Ingest loads activity recordings from local paths or upload URLs.
type Ingest struct {
	client *http.Client
}

// NewIngest creates a loader whose remote fetches time out after timeout.
func NewIngest(timeout time.Duration) *Ingest {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Ingest{client: &http.Client{Timeout: timeout}}
}

// Load reads the recording at source, either a local file path or an
// http(s) upload URL, and decodes it into a table plus the optional
// session summary embedded in the file.
func (ing *Ingest) Load(ctx context.Context, source string) (*streams.Table, *streams.SessionSummary, error) {
	if isRemote(source) {
		return ing.loadRemote(ctx, source)
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, nil, fmt.Errorf("opening recording: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func (ing *Ingest) loadRemote(ctx context.Context, url string) (*streams.Table, *streams.SessionSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("building recording request: %w", err)
	}
	resp, err := ing.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching recording: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fetching recording: status %d", resp.StatusCode)
	}
	return Decode(resp.Body)
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
