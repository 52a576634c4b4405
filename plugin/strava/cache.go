package strava

import (
	"container/list"
	"sync"
	"time"
)

// IndexCache is an LRU cache of activity indexes keyed by athlete ID.
// A rebuild always swaps in a whole new index, so concurrent readers never
// observe a partially built one.
type IndexCache struct {
	capacity   int
	defaultTTL time.Duration
	mu         sync.RWMutex

	cache map[int64]*indexEntry
	order *list.List
}

type indexEntry struct {
	athleteID int64
	index     *ActivityIndex
	stats     *AthleteStats
	expiresAt time.Time
	element   *list.Element
}

// NewIndexCache creates a new index cache.
func NewIndexCache(capacity int, defaultTTL time.Duration) *IndexCache {
	if capacity <= 0 {
		capacity = 100
	}
	if defaultTTL <= 0 {
		defaultTTL = 15 * time.Minute
	}

	return &IndexCache{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		cache:      make(map[int64]*indexEntry),
		order:      list.New(),
	}
}

// Get retrieves the cached index and stats for an athlete.
func (c *IndexCache) Get(athleteID int64) (*ActivityIndex, *AthleteStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache[athleteID]
	if !ok {
		return nil, nil, false
	}

	if time.Now().After(e.expiresAt) {
		c.removeEntry(e)
		return nil, nil, false
	}

	c.order.MoveToFront(e.element)
	return e.index, e.stats, true
}

// Set stores a freshly built index and stats for an athlete, replacing any
// previous value wholesale.
func (c *IndexCache) Set(athleteID int64, index *ActivityIndex, stats *AthleteStats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.cache[athleteID]; ok {
		e.index = index
		e.stats = stats
		e.expiresAt = time.Now().Add(c.defaultTTL)
		c.order.MoveToFront(e.element)
		return
	}

	for len(c.cache) >= c.capacity {
		c.evictOldest()
	}

	e := &indexEntry{
		athleteID: athleteID,
		index:     index,
		stats:     stats,
		expiresAt: time.Now().Add(c.defaultTTL),
	}
	e.element = c.order.PushFront(e)
	c.cache[athleteID] = e
}

// Invalidate drops the cached index for an athlete.
func (c *IndexCache) Invalidate(athleteID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.cache[athleteID]; ok {
		c.removeEntry(e)
	}
}

// Size returns the number of cached athletes.
func (c *IndexCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// evictOldest removes the least recently used entry.
// Must be called with lock held.
func (c *IndexCache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.removeEntry(oldest.Value.(*indexEntry))
}

// removeEntry removes an entry from the cache.
// Must be called with lock held.
func (c *IndexCache) removeEntry(e *indexEntry) {
	c.order.Remove(e.element)
	delete(c.cache, e.athleteID)
}
