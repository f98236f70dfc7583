package cache

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"powerlab/internal/store"
	"powerlab/internal/streams"
)

// Default policies for the in-process stream cache.
const (
	DefaultTTL        = time.Hour
	DefaultMaxEntries = 100
	DefaultSweepEvery = 5 * time.Minute
)

// Loaders supplies the underlying fetch functions the cache falls back to
// on a miss. Loader errors are returned to the caller and nothing is
// stored, so a later access retries.
type Loaders struct {
	Table   func(ctx context.Context, activityID int64) (*streams.Table, error)
	Session func(ctx context.Context, activityID int64, url string) (*streams.SessionSummary, error)
	Athlete func(ctx context.Context, activityID int64) (*store.Athlete, error)
}

// Options tune the cache. Zero values select the defaults above.
type Options struct {
	TTL        time.Duration
	MaxEntries int
	SweepEvery time.Duration
}

// StreamCache keeps decoded sample tables, session summaries and athlete
// rows in memory so repeated requests for one activity skip the fetch and
// decode work. A single mutex covers all three maps and the timestamps.
type StreamCache struct {
	mu       sync.Mutex
	tables   map[int64]*streams.Table
	sessions map[int64]*streams.SessionSummary
	athletes map[int64]*store.Athlete
	stamps   map[string]time.Time
	hits     int64
	misses   int64

	loaders    Loaders
	ttl        time.Duration
	maxEntries int
	sweepEvery time.Duration
	now        func() time.Time
}

const (
	kindTable   = "table"
	kindSession = "session"
	kindAthlete = "athlete"
)

func stampKey(kind string, activityID int64) string {
	return fmt.Sprintf("%s:%d", kind, activityID)
}

// NewStreamCache creates a cache around the given loaders.
func NewStreamCache(loaders Loaders, opts Options) *StreamCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.SweepEvery <= 0 {
		opts.SweepEvery = DefaultSweepEvery
	}
	return &StreamCache{
		tables:     make(map[int64]*streams.Table),
		sessions:   make(map[int64]*streams.SessionSummary),
		athletes:   make(map[int64]*store.Athlete),
		stamps:     make(map[string]time.Time),
		loaders:    loaders,
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		sweepEvery: opts.SweepEvery,
		now:        time.Now,
	}
}

// GetTable returns the full-resolution sample table for an activity,
// loading it on a miss or after the entry's TTL has passed.
func (c *StreamCache) GetTable(ctx context.Context, activityID int64) (*streams.Table, error) {
	key := stampKey(kindTable, activityID)

	c.mu.Lock()
	if t, ok := c.tables[activityID]; ok && c.freshLocked(key) {
		c.hits++
		c.mu.Unlock()
		return t, nil
	}
	c.misses++
	c.mu.Unlock()

	t, err := c.loaders.Table(ctx, activityID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tables[activityID] = t
	c.stamps[key] = c.now()
	c.mu.Unlock()
	return t, nil
}

// GetStreams returns the selected columns of an activity's table at the
// requested resolution. The cached table stays at full resolution; only
// the returned view is downsampled.
func (c *StreamCache) GetStreams(ctx context.Context, activityID int64, keys []string, res streams.Resolution) (map[string][]any, error) {
	t, err := c.GetTable(ctx, activityID)
	if err != nil {
		return nil, err
	}
	return t.SelectStreams(keys, res)
}

// GetSession returns the activity's session summary, which may be nil when
// the source file carries none. The nil result is cached too.
func (c *StreamCache) GetSession(ctx context.Context, activityID int64, url string) (*streams.SessionSummary, error) {
	key := stampKey(kindSession, activityID)

	c.mu.Lock()
	if s, ok := c.sessions[activityID]; ok && c.freshLocked(key) {
		c.hits++
		c.mu.Unlock()
		return s, nil
	}
	c.misses++
	c.mu.Unlock()

	s, err := c.loaders.Session(ctx, activityID, url)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sessions[activityID] = s
	c.stamps[key] = c.now()
	c.mu.Unlock()
	return s, nil
}

// GetAthlete returns the athlete owning an activity, nil when the loader
// reports none.
func (c *StreamCache) GetAthlete(ctx context.Context, activityID int64) (*store.Athlete, error) {
	key := stampKey(kindAthlete, activityID)

	c.mu.Lock()
	if a, ok := c.athletes[activityID]; ok && c.freshLocked(key) {
		c.hits++
		c.mu.Unlock()
		return a, nil
	}
	c.misses++
	c.mu.Unlock()

	a, err := c.loaders.Athlete(ctx, activityID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.athletes[activityID] = a
	c.stamps[key] = c.now()
	c.mu.Unlock()
	return a, nil
}

// Invalidate drops every cached entry for one activity.
func (c *StreamCache) Invalidate(activityID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, activityID)
	delete(c.sessions, activityID)
	delete(c.athletes, activityID)
	delete(c.stamps, stampKey(kindTable, activityID))
	delete(c.stamps, stampKey(kindSession, activityID))
	delete(c.stamps, stampKey(kindAthlete, activityID))
}

// InvalidateAll empties the cache.
func (c *StreamCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = make(map[int64]*streams.Table)
	c.sessions = make(map[int64]*streams.SessionSummary)
	c.athletes = make(map[int64]*store.Athlete)
	c.stamps = make(map[string]time.Time)
}

// Stats is a point-in-time snapshot of the cache.
type Stats struct {
	Tables     int   `json:"tables"`
	Sessions   int   `json:"sessions"`
	Athletes   int   `json:"athletes"`
	Size       int   `json:"size"`
	MaxEntries int   `json:"max_entries"`
	TTLSeconds int   `json:"ttl_seconds"`
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
}

func (c *StreamCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Tables:     len(c.tables),
		Sessions:   len(c.sessions),
		Athletes:   len(c.athletes),
		Size:       c.sizeLocked(),
		MaxEntries: c.maxEntries,
		TTLSeconds: int(c.ttl / time.Second),
		Hits:       c.hits,
		Misses:     c.misses,
	}
}

// Sweep drops expired entries, then evicts oldest-first while the cache
// holds more than its entry limit. Returns the number of entries removed.
func (c *StreamCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()
	for key, ts := range c.stamps {
		if now.Sub(ts) > c.ttl {
			c.removeLocked(key)
			removed++
		}
	}

	if c.sizeLocked() > c.maxEntries {
		type aged struct {
			key string
			ts  time.Time
		}
		entries := make([]aged, 0, len(c.stamps))
		for key, ts := range c.stamps {
			entries = append(entries, aged{key, ts})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].ts.Before(entries[j].ts) })
		for _, e := range entries {
			if c.sizeLocked() <= c.maxEntries {
				break
			}
			c.removeLocked(e.key)
			removed++
		}
	}
	return removed
}

// Run sweeps on the configured interval until ctx is canceled. It blocks,
// so call it from its own goroutine.
func (c *StreamCache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func (c *StreamCache) freshLocked(key string) bool {
	ts, ok := c.stamps[key]
	return ok && c.now().Sub(ts) <= c.ttl
}

func (c *StreamCache) sizeLocked() int {
	return len(c.tables) + len(c.sessions) + len(c.athletes)
}

func (c *StreamCache) removeLocked(key string) {
	kind, id := splitStampKey(key)
	switch kind {
	case kindTable:
		delete(c.tables, id)
	case kindSession:
		delete(c.sessions, id)
	case kindAthlete:
		delete(c.athletes, id)
	}
	delete(c.stamps, key)
}

func splitStampKey(key string) (kind string, activityID int64) {
	kind, rest, _ := strings.Cut(key, ":")
	activityID, _ = strconv.ParseInt(rest, 10, 64)
	return kind, activityID
}
