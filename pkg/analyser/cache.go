package analyser

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/japaniel/goodthings/pkg/apperr"
	"github.com/japaniel/goodthings/pkg/dictionary"
)

// DefaultCacheSize bounds the number of analyzers kept alive. Each one holds
// a full system dictionary in memory.
const DefaultCacheSize = 4

type cacheKey struct {
	system string
	digest string
}

// Cache reuses analyzers across runs that share a system dictionary and an
// identical compiled user dictionary.
type Cache struct {
	mu     sync.Mutex
	lru    *lru.Cache[cacheKey, *Analyzer]
	hits   int
	misses int

	// build is swapped in tests.
	build func(string, *dictionary.Compiled) (*Analyzer, error)
}

// NewCache returns a cache holding at most size analyzers.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	l, err := lru.New[cacheKey, *Analyzer](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l, build: NewAnalyzer}, nil
}

// Get returns the analyzer for (systemDictionary, compiled), building it on a
// miss. Concurrent misses for the same key build once.
func (c *Cache) Get(systemDictionary string, compiled *dictionary.Compiled) (*Analyzer, error) {
	if compiled == nil {
		return c.build(systemDictionary, nil)
	}
	key := cacheKey{system: systemDictionary, digest: compiled.Digest}

	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.lru.Get(key); ok {
		c.hits++
		return a, nil
	}
	c.misses++
	a, err := c.build(systemDictionary, compiled)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.ErrTokenizerUnavailable
	}
	c.lru.Add(key, a)
	return a, nil
}

// Invalidate drops the analyzer for one key.
func (c *Cache) Invalidate(systemDictionary, digest string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(cacheKey{system: systemDictionary, digest: digest})
}

// Purge drops every cached analyzer.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len reports the number of cached analyzers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// CacheStats counts lookups since the cache was created. Every miss is an
// analyzer build.
type CacheStats struct {
	Hits   int
	Misses int
	Len    int
}

// Stats returns the lookup counters and current size.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Len: c.lru.Len()}
}
