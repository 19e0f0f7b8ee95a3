package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/snappy"

	"github.com/rileyhilliard/whm/internal/errors"
)

// CacheKey is the fixed session cache key of the live report.
const CacheKey = "report"

// SessionCache is a small client-local key/value store.
type SessionCache interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, data []byte) error
	Clear() error
}

// FileCache keeps one snappy-compressed file per key in a directory.
type FileCache struct {
	dir string
}

// NewFileCache returns a cache rooted at dir. An empty dir means
// <user cache dir>/whm/session.
func NewFileCache(dir string) (*FileCache, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't locate the user cache directory",
				"Set cache.dir in .whm.yaml")
		}
		dir = filepath.Join(base, "whm", "session")
	}
	return &FileCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string {
	return c.dir
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key+".json.sz")
}

// Get implements SessionCache.
func (c *FileCache) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(c.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	decoded, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, false, errors.WrapWithCode(err, errors.ErrData,
			"Cached entry "+key+" is corrupt", "Run 'whm logout' to clear the cache")
	}
	return decoded, true, nil
}

// Set writes through a temp file and rename so a reader never sees a
// partial entry.
func (c *FileCache) Set(key string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(snappy.Encode(nil, data)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, c.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (c *FileCache) Clear() error {
	err := os.RemoveAll(c.dir)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemoryCache is an in-process SessionCache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// NewMemoryCache returns an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

// Get implements SessionCache.
func (c *MemoryCache) Get(key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	return data, ok, nil
}

// Set implements SessionCache.
func (c *MemoryCache) Set(key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append([]byte(nil), data...)
	return nil
}

// Clear implements SessionCache.
func (c *MemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
	return nil
}
