package cache

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/devfolio/internal/monitoring"
	"github.com/gin-gonic/gin"
)

// CacheItem represents a cached item with expiration
type CacheItem struct {
	Data        []byte    `json:"data"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsExpired checks if the cache item has expired
func (c *CacheItem) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// Cache provides thread-safe caching with TTL
type Cache struct {
	mu    sync.RWMutex
	items map[string]*CacheItem
	ttl   time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewCache creates a new cache with the specified TTL
func NewCache(ttl time.Duration) *Cache {
	cache := &Cache{
		items: make(map[string]*CacheItem),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// cleanup removes expired items periodically
func (c *Cache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, item := range c.items {
		if item.IsExpired() {
			delete(c.items, key)
		}
	}
}

// Close stops the cleanup goroutine
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// generateKey creates a consistent key from the input
func (c *Cache) generateKey(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// Get retrieves an item from the cache
func (c *Cache) Get(key string) ([]byte, bool) {
	item, ok := c.getItem(key)
	if !ok {
		return nil, false
	}
	return item.Data, true
}

func (c *Cache) getItem(key string) (*CacheItem, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if item.IsExpired() {
		c.Delete(key)
		return nil, false
	}
	return item, true
}

// Set stores an item in the cache
func (c *Cache) Set(key string, data []byte) {
	c.setItem(key, data, "")
}

func (c *Cache) setItem(key string, data []byte, contentType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &CacheItem{
		Data:        data,
		ContentType: contentType,
		ExpiresAt:   time.Now().Add(c.ttl),
	}
}

// Delete removes an item from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*CacheItem)
}

// Size returns the number of items in the cache
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Stats returns cache statistics
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	totalItems := len(c.items)
	expiredItems := 0

	for _, item := range c.items {
		if item.IsExpired() {
			expiredItems++
		}
	}

	return map[string]interface{}{
		"total_items":   totalItems,
		"expired_items": expiredItems,
		"active_items":  totalItems - expiredItems,
		"ttl_seconds":   c.ttl.Seconds(),
	}
}

// Middleware caches successful GET responses keyed by the request URI.
// Writers must call Clear after mutating the data behind cached routes.
func (c *Cache) Middleware(metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodGet {
			ctx.Next()
			return
		}

		cacheKey := c.generateKey(ctx.Request.URL.RequestURI())

		if item, found := c.getItem(cacheKey); found {
			slog.Debug("Cache hit", "key", cacheKey[:8]+"...", "path", ctx.Request.URL.Path)
			if metrics != nil {
				metrics.IncrementCacheHit()
			}
			ctx.Header("X-Cache", "HIT")
			ctx.Data(http.StatusOK, item.ContentType, item.Data)
			ctx.Abort()
			return
		}

		slog.Debug("Cache miss", "key", cacheKey[:8]+"...", "path", ctx.Request.URL.Path)
		if metrics != nil {
			metrics.IncrementCacheMiss()
		}

		wrapper := &responseWriter{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = wrapper
		ctx.Header("X-Cache", "MISS")
		ctx.Next()

		if wrapper.Status() == http.StatusOK {
			c.setItem(cacheKey, wrapper.body.Bytes(), wrapper.Header().Get("Content-Type"))
		}
	}
}

// responseWriter wraps gin.ResponseWriter to capture response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
