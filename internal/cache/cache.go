// Package cache implements the Result Cache (RC): a fingerprinted,
// TTL-bound JSON cache for agent query results stored under
// <root>/.cgrep/cache/search/<fingerprint>.json. Grounded on
// original_source/src/cache.rs's SearchCache/CacheKey/CacheEntry, in the
// teacher's file-based store idiom (internal/index/metadata.go's
// read-whole-file-then-decode pattern).
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cgrep/cgrep/internal/errs"
	"github.com/cgrep/cgrep/internal/hashutil"
)

// DefaultTTL matches the original's 10-minute cache lifetime.
const DefaultTTL = 600 * time.Second

// Key is every parameter that distinguishes one cached query from another;
// its JSON encoding is hashed to form both the cache filename and the
// stored key_hash used to detect stale/colliding entries.
type Key struct {
	Query          string `json:"query"`
	Mode           string `json:"mode"`
	MaxResults     int    `json:"max_results"`
	Context        int    `json:"context"`
	FileType       string `json:"file_type,omitempty"`
	Glob           string `json:"glob,omitempty"`
	Exclude        string `json:"exclude,omitempty"`
	Profile        string `json:"profile,omitempty"`
	IndexHash      string `json:"index_hash,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	SearchRoot     string `json:"search_root,omitempty"`
}

// Hash returns the 32-hex-char BLAKE3 fingerprint of the key's JSON
// encoding. A Key that fails to marshal (it never should, all fields are
// plain JSON-safe types) hashes its zero value instead of panicking.
func (k Key) Hash() string {
	data, err := json.Marshal(k)
	if err != nil {
		data = nil
	}
	return hashutil.Truncated(data, 32)
}

// Entry is one cache record: the cached payload plus the bookkeeping
// needed to validate and report on it.
type Entry struct {
	Data        json.RawMessage `json:"data"`
	CreatedAtMs int64           `json:"created_at_ms"`
	KeyHash     string          `json:"key_hash"`
	Mode        string          `json:"mode"`
}

func (e Entry) isValid(ttl time.Duration, now time.Time) bool {
	age := now.UnixMilli() - e.CreatedAtMs
	if age < 0 {
		age = 0
	}
	return age < ttl.Milliseconds()
}

// Stats summarizes the cache directory's contents.
type Stats struct {
	TotalEntries int
	Expired      int
	TotalBytes   int64
}

// Cache is a directory-backed store of Entry files keyed by Key.Hash.
type Cache struct {
	dir string
	ttl time.Duration
}

// New creates the cache directory (if absent) under root and returns a
// Cache with the given TTL. ttl <= 0 falls back to DefaultTTL.
func New(root string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	dir := filepath.Join(root, ".cgrep", "cache", "search")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrIO, "create cache dir", err)
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

func (c *Cache) path(key Key) string {
	return filepath.Join(c.dir, key.Hash()+".json")
}

// Get returns the cached payload for key, or (nil, false) on a miss.
// Expired or hash-mismatched entries are deleted and treated as misses.
func (c *Cache) Get(key Key) (json.RawMessage, bool, error) {
	path := c.path(key)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Wrap(errs.ErrIO, "read cache entry", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, errs.Wrap(errs.ErrSchema, "parse cache entry", err)
	}

	if !entry.isValid(c.ttl, time.Now()) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	if entry.KeyHash != key.Hash() {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// Put writes data under key, pretty-printed, stamped with the current time.
func (c *Cache) Put(key Key, data json.RawMessage) error {
	entry := Entry{
		Data:        data,
		CreatedAtMs: time.Now().UnixMilli(),
		KeyHash:     key.Hash(),
		Mode:        key.Mode,
	}
	encoded, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return errs.Wrap(errs.ErrSchema, "encode cache entry", err)
	}
	if err := os.WriteFile(c.path(key), encoded, 0o644); err != nil {
		return errs.Wrap(errs.ErrIO, "write cache entry", err)
	}
	return nil
}

// Clear deletes every cached entry and returns the count removed.
func (c *Cache) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, errs.Wrap(errs.ErrIO, "read cache dir", err)
	}
	count := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return count, errs.Wrap(errs.ErrIO, "remove cache entry", err)
		}
		count++
	}
	return count, nil
}

// Prune deletes entries whose on-disk mtime age exceeds the TTL, without
// needing to parse their contents, and returns the count removed.
func (c *Cache) Prune() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, errs.Wrap(errs.ErrIO, "read cache dir", err)
	}
	now := time.Now()
	count := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > c.ttl {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
				return count, errs.Wrap(errs.ErrIO, "remove expired cache entry", err)
			}
			count++
		}
	}
	return count, nil
}

// Stats reports aggregate counts and sizes across the cache directory.
func (c *Cache) Stats() (Stats, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return Stats{}, errs.Wrap(errs.ErrIO, "read cache dir", err)
	}
	now := time.Now()
	var stats Stats
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.TotalEntries++
		stats.TotalBytes += info.Size()
		if now.Sub(info.ModTime()) > c.ttl {
			stats.Expired++
		}
	}
	return stats, nil
}
