package retrieval

import "sync"

// embedCache is a small fixed-capacity cache for query embeddings. Eviction
// is oldest-inserted-first; repeated queries within a session are the common
// case and a real LRU is not worth the bookkeeping.
type embedCache struct {
	mu    sync.Mutex
	cap   int
	order []string
	vecs  map[string][]float32
}

func newEmbedCache(capacity int) *embedCache {
	return &embedCache{
		cap:  capacity,
		vecs: make(map[string][]float32, capacity),
	}
}

func (c *embedCache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vecs[key]
	return v, ok
}

func (c *embedCache) put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.vecs[key]; ok {
		return
	}
	if len(c.order) >= c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.vecs, oldest)
	}
	c.order = append(c.order, key)
	c.vecs[key] = vec
}
