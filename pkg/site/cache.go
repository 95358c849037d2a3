package site

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// renderedPage is a finished response body kept by the page cache
type renderedPage struct {
	contentType string
	body        []byte
}

// PageCache is an LRU of rendered pages keyed by path and query
type PageCache struct {
	mu       sync.Mutex
	capacity int
	list     *list.List
	cache    map[string]*list.Element

	// gen advances on every purge so renders that started before it are
	// not stored afterwards
	gen    uint64
	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	key  string
	page *renderedPage
}

// NewPageCache creates a cache holding up to capacity pages. A capacity
// below one disables caching.
func NewPageCache(capacity int) *PageCache {
	return &PageCache{
		capacity: capacity,
		list:     list.New(),
		cache:    make(map[string]*list.Element),
	}
}

// Get returns the cached page for key
func (lru *PageCache) Get(key string) (*renderedPage, bool) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if element, exists := lru.cache[key]; exists {
		lru.list.MoveToFront(element)
		lru.hits.Add(1)
		return element.Value.(*cacheEntry).page, true
	}
	lru.misses.Add(1)
	return nil, false
}

// Generation returns the purge counter to hand back to Put
func (lru *PageCache) Generation() uint64 {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	return lru.gen
}

// Put stores a page rendered during generation gen, evicting the least
// recently used page when full. Pages from an older generation are dropped.
func (lru *PageCache) Put(key string, page *renderedPage, gen uint64) {
	if lru.capacity < 1 {
		return
	}
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if gen != lru.gen {
		return
	}

	if element, exists := lru.cache[key]; exists {
		element.Value.(*cacheEntry).page = page
		lru.list.MoveToFront(element)
		return
	}

	element := lru.list.PushFront(&cacheEntry{key: key, page: page})
	lru.cache[key] = element

	if lru.list.Len() > lru.capacity {
		lru.evictOldest()
	}
}

func (lru *PageCache) evictOldest() {
	element := lru.list.Back()
	if element != nil {
		entry := element.Value.(*cacheEntry)
		delete(lru.cache, entry.key)
		lru.list.Remove(element)
	}
}

// Purge drops every cached page
func (lru *PageCache) Purge() {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	lru.list.Init()
	lru.cache = make(map[string]*list.Element)
	lru.gen++
}

// Len returns the number of cached pages
func (lru *PageCache) Len() int {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	return lru.list.Len()
}

// Stats returns the hit and miss counts since the cache was created
func (lru *PageCache) Stats() (hits, misses int64) {
	return lru.hits.Load(), lru.misses.Load()
}
