package jobserver

import (
	"container/list"
	"sync"
	"time"
)

// Default values
const (
	defaultMaxSize = 1000
	defaultMaxAge  = 600 * time.Second
)

type cacheEntry[T any] struct {
	key       string
	value     T
	timestamp time.Time
	element   *list.Element // pointer to the element in the list
}

// Cache is a size- and age-bounded key/value store. One instance holds final
// job results, another the progress records; both are read by polling clients
// long after the producing worker moved on.
type Cache[T any] struct {
	lock    sync.Mutex
	entries map[string]*cacheEntry[T]
	order   *list.List // oldest at Front, newest at Back
	maxSize int
	maxAge  time.Duration
}

// NewCache creates a new Cache with the specified maxSize and maxAge
func NewCache[T any](maxSize int, maxAge time.Duration) *Cache[T] {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	c := &Cache[T]{
		entries: make(map[string]*cacheEntry[T]),
		order:   list.New(),
		maxSize: maxSize,
		maxAge:  maxAge,
	}
	go c.periodicCleanup()
	return c
}

func (c *Cache[T]) Set(key string, value T) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if entry, exists := c.entries[key]; exists {
		// Update and move to back
		entry.value = value
		entry.timestamp = time.Now()
		c.order.MoveToBack(entry.element)
		return
	}
	// New entry
	entry := &cacheEntry[T]{
		key:       key,
		value:     value,
		timestamp: time.Now(),
	}
	entry.element = c.order.PushBack(entry)
	c.entries[key] = entry
	// Evict if over size
	for len(c.entries) > c.maxSize {
		oldest := c.order.Front()
		if oldest != nil {
			oldestEntry := oldest.Value.(*cacheEntry[T])
			delete(c.entries, oldestEntry.key)
			c.order.Remove(oldest)
		}
	}
}

func (c *Cache[T]) Get(key string) (T, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	var zero T
	entry, exists := c.entries[key]
	if !exists {
		return zero, false
	}
	// If expired, remove
	if c.maxAge > 0 && time.Since(entry.timestamp) > c.maxAge {
		c.order.Remove(entry.element)
		delete(c.entries, key)
		return zero, false
	}
	return entry.value, true
}

func (c *Cache[T]) periodicCleanup() {
	ticker := time.NewTicker(c.maxAge / 2)
	defer ticker.Stop()
	for range ticker.C {
		c.cleanupExpired()
	}
}

func (c *Cache[T]) cleanupExpired() {
	c.lock.Lock()
	defer c.lock.Unlock()
	now := time.Now()
	for e := c.order.Front(); e != nil; {
		next := e.Next()
		entry := e.Value.(*cacheEntry[T])
		if c.maxAge > 0 && now.Sub(entry.timestamp) > c.maxAge {
			delete(c.entries, entry.key)
			c.order.Remove(e)
		}
		e = next
	}
}
