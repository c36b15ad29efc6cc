package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"aistack/internal/logging"
	"aistack/pkg/fileops"
)

// CacheFile is the name of the cache inside the cache directory.
const CacheFile = "registry_cache.json"

type cacheEntry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// diskCache keeps every response in one JSON file. An empty dir disables it.
type diskCache struct {
	mu      sync.Mutex
	dir     string
	ttl     time.Duration
	now     func() time.Time
	logger  *logging.AppLogger
	entries map[string]cacheEntry
}

func newDiskCache(dir string, ttl time.Duration, now func() time.Time, logger *logging.AppLogger) *diskCache {
	c := &diskCache{dir: dir, ttl: ttl, now: now, logger: logger, entries: map[string]cacheEntry{}}
	c.load()
	return c
}

func (c *diskCache) path() string {
	return filepath.Join(c.dir, CacheFile)
}

func (c *diskCache) load() {
	if c.dir == "" {
		return
	}
	data, err := os.ReadFile(c.path())
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		c.logger.Warn("Registry cache is corrupted, starting fresh", "path", c.path(), "error", err)
		c.entries = map[string]cacheEntry{}
	}
}

// get decodes the entry for key into out and reports whether it existed and
// whether it is still within the TTL.
func (c *diskCache) get(key string, out any) (found, fresh bool) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return false, false
	}
	if err := json.Unmarshal(entry.Data, out); err != nil {
		return false, false
	}
	return true, c.now().Sub(entry.Timestamp) < c.ttl
}

func (c *diskCache) put(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{Data: data, Timestamp: c.now()}
	c.saveLocked()
}

func (c *diskCache) saveLocked() {
	if c.dir == "" {
		return
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return
	}
	if err := fileops.EnsureDirectoryExists(c.dir); err != nil {
		c.logger.Error("Failed to create registry cache directory", "dir", c.dir, "error", err)
		return
	}
	if err := fileops.AtomicWrite(c.path(), data, 0o644); err != nil {
		c.logger.Error("Failed to save registry cache", "path", c.path(), "error", err)
	}
}

func (c *diskCache) clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]cacheEntry{}
	if c.dir == "" {
		return nil
	}
	if err := os.Remove(c.path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
