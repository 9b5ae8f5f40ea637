package cache

import (
	"sync"
	"time"
)

// safetyMargin keeps a cached URL from being handed out moments before
// its signature expires.
const safetyMargin = time.Minute

type urlEntry struct {
	url       string
	expiresAt time.Time
}

// URLCache maps an object key to a presigned playback URL until shortly
// before the URL expires.
type URLCache struct {
	mu      sync.RWMutex
	entries map[string]urlEntry
	now     func() time.Time
}

func NewURLCache() *URLCache {
	return &URLCache{
		entries: make(map[string]urlEntry),
		now:     time.Now,
	}
}

func (c *URLCache) Get(key string) (string, bool) {
	c.mu.RLock()
	entry, found := c.entries[key]
	c.mu.RUnlock()

	if found && c.now().Before(entry.expiresAt) {
		return entry.url, true
	}
	return "", false
}

// Set stores url for key. URLs that expire within the safety margin are
// not cached at all.
func (c *URLCache) Set(key, url string, expiresAt time.Time) {
	usableUntil := expiresAt.Add(-safetyMargin)
	if !c.now().Before(usableUntil) {
		return
	}

	c.mu.Lock()
	c.entries[key] = urlEntry{url: url, expiresAt: usableUntil}
	c.mu.Unlock()
}

func (c *URLCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Sweep removes expired entries and returns how many were dropped.
func (c *URLCache) Sweep() int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	return removed
}

func (c *URLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
