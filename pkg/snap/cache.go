package snap

import "sync"

// Cache maps snap IDs to records. The first record stored for an ID wins;
// later inserts of the same ID return the stored one unchanged.
type Cache struct {
	mu      sync.RWMutex
	records map[string]Record
	order   []string
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{records: make(map[string]Record)}
}

// Lookup returns the cached record for id
func (c *Cache) Lookup(id string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[id]
	return r, ok
}

// Contains reports whether id has been cached
func (c *Cache) Contains(id string) bool {
	_, ok := c.Lookup(id)
	return ok
}

// InsertIfAbsent stores r unless its ID is already cached, and returns
// whichever record is cached afterwards.
func (c *Cache) InsertIfAbsent(r Record) Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.records[r.ID]; ok {
		return existing
	}
	c.records[r.ID] = r
	c.order = append(c.order, r.ID)
	return r
}

// All returns every record in insertion order
func (c *Cache) All() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Record, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.records[id])
	}
	return out
}

// Len returns the number of cached records
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
