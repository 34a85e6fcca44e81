package vector

import (
	"container/list"
	"sync"

	"github.com/hyperjump/kensaku/internal/index"
)

// DefaultCacheSize is the number of (document, field) term vectors kept by a
// Reconstructor.
const DefaultCacheSize = 4096

type cacheKey struct {
	docID int
	field string
}

type cacheEntry struct {
	key      cacheKey
	postings []index.Posting
}

// postingsCache is an LRU of per-field term vectors. Cached slices are shared
// and must not be modified.
type postingsCache struct {
	capacity int
	entries  map[cacheKey]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

func newPostingsCache(capacity int) *postingsCache {
	return &postingsCache{
		capacity: capacity,
		entries:  make(map[cacheKey]*list.Element),
		lru:      list.New(),
	}
}

func (c *postingsCache) get(docID int, field string) ([]index.Posting, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[cacheKey{docID, field}]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).postings, true
	}
	return nil, false
}

// set stores postings, evicting the least recently used entry at capacity.
func (c *postingsCache) set(docID int, field string, postings []index.Posting) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{docID, field}
	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).postings = postings
		return
	}
	c.entries[key] = c.lru.PushFront(&cacheEntry{key: key, postings: postings})
	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

func (c *postingsCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
