// Package astcache caches parsed panel definitions keyed by the SHA-256
// digest of their source bytes. Keys are content-addressed, so entries can
// never go stale; LRU eviction alone bounds memory.
package astcache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"

	"github.com/conneroisu/nxml/internal/types"
)

// DefaultMaxEntries bounds the cache when no size is configured.
const DefaultMaxEntries = 1024

// Key returns the cache key for source.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Cache is a bounded, thread-safe LRU cache of parsed panels.
type Cache struct {
	mutex      sync.RWMutex
	entries    map[string]*entry
	maxEntries int

	// LRU doubly-linked list with dummy head and tail
	head *entry
	tail *entry

	// Statistics tracking (atomic so stat reads skip the mutex)
	hits      int64
	misses    int64
	evictions int64
}

type entry struct {
	key   string
	panel *types.Panel
	prev  *entry
	next  *entry
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	Evictions  int64   `json:"evictions"`
	HitRate    float64 `json:"hit_rate"`
}

// New creates a cache holding at most maxEntries panels. Non-positive
// sizes fall back to DefaultMaxEntries.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &Cache{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
	}
	c.head = &entry{}
	c.tail = &entry{}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the cached panel for key. The returned panel is shared
// across all hits for the same source and must be treated as immutable.
func (c *Cache) Get(key string) (*types.Panel, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.entries[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	c.moveToFront(e)
	atomic.AddInt64(&c.hits, 1)
	return e.panel, true
}

// Put stores panel under key, evicting the least recently used entry
// when the cache is full.
func (c *Cache) Put(key string, panel *types.Panel) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if e, ok := c.entries[key]; ok {
		e.panel = panel
		c.moveToFront(e)
		return
	}

	for len(c.entries) >= c.maxEntries && c.tail.prev != c.head {
		lru := c.tail.prev
		c.removeFromList(lru)
		delete(c.entries, lru.key)
		atomic.AddInt64(&c.evictions, 1)
	}

	e := &entry{key: key, panel: panel}
	c.entries[key] = e
	c.addToFront(e)
}

// Clear drops all entries and resets statistics.
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*entry)
	c.head.next = c.tail
	c.tail.prev = c.head

	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.evictions, 0)
}

// Len returns the number of cached panels.
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// Hits returns the cumulative hit count.
func (c *Cache) Hits() int64 {
	return atomic.LoadInt64(&c.hits)
}

// Misses returns the cumulative miss count.
func (c *Cache) Misses() int64 {
	return atomic.LoadInt64(&c.misses)
}

// Evictions returns the cumulative eviction count.
func (c *Cache) Evictions() int64 {
	return atomic.LoadInt64(&c.evictions)
}

// HitRate returns hits/(hits+misses) in the range 0.0 to 1.0.
func (c *Cache) HitRate() float64 {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	total := hits + misses
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}

// Snapshot returns all counters consistently.
func (c *Cache) Snapshot() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return Stats{
		Entries:    len(c.entries),
		MaxEntries: c.maxEntries,
		Hits:       atomic.LoadInt64(&c.hits),
		Misses:     atomic.LoadInt64(&c.misses),
		Evictions:  atomic.LoadInt64(&c.evictions),
		HitRate:    c.HitRate(),
	}
}

// LRU doubly-linked list operations

func (c *Cache) addToFront(e *entry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *Cache) removeFromList(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (c *Cache) moveToFront(e *entry) {
	c.removeFromList(e)
	c.addToFront(e)
}

var (
	defaultCache *Cache
	defaultOnce  sync.Once
)

// Default returns the shared process-wide cache, constructed exactly once
// on first use. New code should prefer constructing and injecting a Cache
// explicitly; Default exists for callers without a composition root.
func Default() *Cache {
	defaultOnce.Do(func() {
		defaultCache = New(DefaultMaxEntries)
	})
	return defaultCache
}
