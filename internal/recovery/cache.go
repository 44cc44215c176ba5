package recovery

import (
	"strings"
	"time"

	"photo-recovery/internal/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// thumbnailCache keeps recently served thumbnails in memory.
type thumbnailCache struct {
	lru *expirable.LRU[string, []byte]
}

func newThumbnailCache(size int, ttl time.Duration) *thumbnailCache {
	if size <= 0 {
		return nil
	}
	return &thumbnailCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func cacheKey(sessionID, name string) string {
	return sessionID + "/" + name
}

func (c *thumbnailCache) get(sessionID, name string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	data, ok := c.lru.Get(cacheKey(sessionID, name))
	if ok {
		metrics.ThumbnailCacheHits.Inc()
		return data, true
	}
	metrics.ThumbnailCacheMisses.Inc()
	return nil, false
}

func (c *thumbnailCache) set(sessionID, name string, data []byte) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey(sessionID, name), data)
}

// purge drops every cached thumbnail of a session.
func (c *thumbnailCache) purge(sessionID string) {
	if c == nil {
		return
	}
	prefix := sessionID + "/"
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
		}
	}
}
