package dataset

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes loaded tables by source identity. An entry is reused only
// while the file's size and modification time are unchanged.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
	hits    int
	misses  int
}

type signature struct {
	size int64
	mod  time.Time
}

type cacheEntry struct {
	sig   signature
	table *Table
}

// CacheStats reports cache activity.
type CacheStats struct {
	Entries int
	Hits    int
	Misses  int
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

func cacheKey(absPath, schema string, opt ReadOptions) string {
	return fmt.Sprintf("%s|%s|%q|%s|%d|%d", absPath, schema, opt.Delimiter, opt.SheetName, opt.SheetIndex, opt.MaxRows)
}

func (c *Cache) get(key string, sig signature, load func() (*Table, error)) (*Table, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && e.sig.size == sig.size && e.sig.mod.Equal(sig.mod) {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return e.table, true, nil
	}

	flight := fmt.Sprintf("%s|%d|%d", key, sig.size, sig.mod.UnixNano())
	v, err, _ := c.group.Do(flight, func() (any, error) {
		t, err := load()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{sig: sig, table: t}
		c.misses++
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Table), false, nil
}

// Invalidate drops every entry for the given absolute path.
func (c *Cache) Invalidate(absPath string) {
	prefix := absPath + "|"
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}
