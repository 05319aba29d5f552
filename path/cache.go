package path

import (
	"sync"
	"sync/atomic"
)

// Cache memoises parsed paths. Only successful parses are stored. An
// unbounded cache keeps every distinct path string it sees, so callers that
// build paths from data should use NewBoundedCache.
type Cache struct {
	paths sync.Map // map[string]Path
	size  atomic.Int64
	limit int64
}

// NewCache creates an unbounded path cache
func NewCache() *Cache {
	return &Cache{}
}

// NewBoundedCache creates a cache that stops storing new paths once it
// holds about limit entries. Paths past the limit are parsed on every use.
// A limit of zero or less means unbounded.
func NewBoundedCache(limit int) *Cache {
	return &Cache{limit: int64(limit)}
}

// Get returns the parsed form of pathStr, parsing it on first use
func (c *Cache) Get(pathStr string) (Path, error) {
	if cached, ok := c.paths.Load(pathStr); ok {
		return cached.(Path), nil
	}

	parsed, err := Parse(pathStr)
	if err != nil {
		return Path{}, err
	}

	if c.limit > 0 && c.size.Load() >= c.limit {
		return parsed, nil
	}
	if _, loaded := c.paths.LoadOrStore(pathStr, parsed); !loaded {
		c.size.Add(1)
	}
	return parsed, nil
}

// Size returns the number of cached paths
func (c *Cache) Size() int {
	return int(c.size.Load())
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.paths.Clear()
	c.size.Store(0)
}
