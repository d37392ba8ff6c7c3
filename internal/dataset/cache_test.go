package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheHitReturnsSameTable(t *testing.T) {
	path := writeFile(t, "churn.csv", strings.Join(churnRows, "\n"))
	cache := NewCache()
	l := NewLoader(ReadOptions{}, cache, nil)

	a, err := l.Load(path, ChurnSchema)
	require.NoError(t, err)
	b, err := l.Load(path, ChurnSchema)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, CacheStats{Entries: 1, Hits: 1, Misses: 1}, cache.Stats())
}

func TestCacheMissWhenSourceChanges(t *testing.T) {
	path := writeFile(t, "churn.csv", strings.Join(churnRows, "\n"))
	cache := NewCache()
	l := NewLoader(ReadOptions{}, cache, nil)

	a, err := l.Load(path, ChurnSchema)
	require.NoError(t, err)

	shorter := strings.Join(churnRows[:3], "\n")
	require.NoError(t, os.WriteFile(path, []byte(shorter), 0o644))
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	b, err := l.Load(path, ChurnSchema)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 2, cache.Stats().Misses)
}

func TestCacheKeyedBySchemaAndInvalidate(t *testing.T) {
	path := writeFile(t, "churn.csv", strings.Join(churnRows, "\n"))
	cache := NewCache()
	l := NewLoader(ReadOptions{}, cache, nil)
	_, err := l.Load(path, ChurnSchema)
	require.NoError(t, err)

	other := NewLoader(ReadOptions{MaxRows: 1}, cache, nil)
	_, err = other.Load(path, ChurnSchema)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Stats().Entries)

	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	cache.Invalidate(abs)
	assert.Equal(t, 0, cache.Stats().Entries)

	_, err = l.Load(path, ChurnSchema)
	require.NoError(t, err)
	cache.Purge()
	assert.Equal(t, 0, cache.Stats().Entries)
}

func TestCacheConcurrentLoads(t *testing.T) {
	path := writeFile(t, "churn.csv", strings.Join(churnRows, "\n"))
	cache := NewCache()
	l := NewLoader(ReadOptions{}, cache, nil)

	var wg sync.WaitGroup
	tables := make([]*Table, 8)
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tbl, err := l.Load(path, ChurnSchema)
			if err == nil {
				tables[i] = tbl
			}
		}(i)
	}
	wg.Wait()
	for _, tbl := range tables {
		require.NotNil(t, tbl)
		assert.Equal(t, tables[0].Len(), tbl.Len())
	}
	assert.Equal(t, 1, cache.Stats().Entries)
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	path := writeFile(t, "partial.csv", "tenure\n1\n")
	cache := NewCache()
	_, err := NewLoader(ReadOptions{}, cache, nil).Load(path, ChurnSchema)
	require.Error(t, err)
	assert.Equal(t, 0, cache.Stats().Entries)
}
