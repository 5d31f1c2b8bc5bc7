package httputil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// ErrExpired is returned by [Cache.Get] when an entry exists but is older
// than the TTL. The data is still on disk and [Cache.GetStale] returns it.
var ErrExpired = errors.New("cache entry expired")

// Cache stores JSON-encoded responses on disk, one file per key. File names
// are SHA-256 hashes of the key, so any string is a valid key.
//
// A Cache is not goroutine-safe; several instances may share a directory.
// Entries age by file modification time. A TTL of 0 means entries never
// expire.
type Cache struct {
	dir    string
	ttl    time.Duration
	prefix string
}

// NewCache creates a Cache in dir. An empty dir means ~/.cache/zonemap/http.
// The directory is created if needed.
func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".cache", "zonemap", "http")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// TTL returns the time-to-live of entries.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get decodes the entry for key into v.
//
//   - (true, nil): fresh hit, v is filled
//   - (false, nil): no entry
//   - (false, ErrExpired): entry older than the TTL, v untouched
//   - (false, err): I/O or decode failure
func (c *Cache) Get(key string, v any) (bool, error) {
	path := c.keyPath(c.prefix + key)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
		return false, ErrExpired
	}
	return c.read(path, v)
}

// GetStale decodes the entry for key into v regardless of its age. It
// returns the entry's age alongside the hit.
func (c *Cache) GetStale(key string, v any) (bool, time.Duration, error) {
	path := c.keyPath(c.prefix + key)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	ok, err := c.read(path, v)
	return ok, time.Since(info.ModTime()), err
}

func (c *Cache) read(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores v under key, resetting its age.
func (c *Cache) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(c.keyPath(c.prefix+key), data, 0o644)
}

// Namespace returns a view of the cache whose keys are prefixed with
// prefix. Views share the directory and TTL and can be chained.
func (c *Cache) Namespace(prefix string) *Cache {
	return &Cache{
		dir:    c.dir,
		ttl:    c.ttl,
		prefix: c.prefix + prefix,
	}
}

func (c *Cache) keyPath(key string) string {
	h := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(h[:]))
}
