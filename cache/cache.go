// Package cache holds recently scraped pages in memory so repeated
// sync runs within the TTL skip the fetch entirely.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/rpblab/beyscout/models"
)

type entry struct {
	page      *models.ScrapedPage
	createdAt time.Time
}

// Cache is a bounded in-memory TTL cache. Safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	done       chan struct{}
}

// New creates a Cache with the given capacity and TTL. A background
// goroutine evicts expired entries periodically; call Stop to end it.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		done:       make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Key derives a cache key from the URL, fetch strategy, and target
// language, since all three change the assembled page.
func Key(url, strategy, targetLang string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte{'|'})
	h.Write([]byte(strategy))
	h.Write([]byte{'|'})
	h.Write([]byte(targetLang))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached page and whether it was a fresh hit.
func (c *Cache) Get(key string) (*models.ScrapedPage, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || time.Since(e.createdAt) > c.ttl {
		return nil, false
	}
	return e.page, true
}

// Set stores a page. At capacity one arbitrary entry is evicted to make
// room (map iteration order is random in Go).
func (c *Cache) Set(key string, page *models.ScrapedPage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry{page: page, createdAt: time.Now()}
}

// Stop terminates the background cleanup goroutine.
func (c *Cache) Stop() {
	close(c.done)
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-c.ttl)
			c.mu.Lock()
			for k, e := range c.store {
				if e.createdAt.Before(cutoff) {
					delete(c.store, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
