package cache

import (
	"strconv"
	"sync"
	"time"

	"musiccatalog/pkg/models"
)

// CacheEntry represents a cached item with expiration
type CacheEntry struct {
	Value      interface{}
	Expiration time.Time
}

// IsExpired checks if the cache entry has expired
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expiration)
}

// MemoryCache implements a simple in-memory TTL cache
type MemoryCache struct {
	items map[string]*CacheEntry
	mutex sync.RWMutex
	ttl   time.Duration
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryCache creates a new memory cache. Close stops its janitor.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cache := &MemoryCache{
		items: make(map[string]*CacheEntry),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}

	go cache.cleanupExpired(time.Minute)

	return cache
}

// Set stores a value in the cache
func (c *MemoryCache) Set(key string, value interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &CacheEntry{
		Value:      value,
		Expiration: time.Now().Add(c.ttl),
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.items[key]
	if !exists || entry.IsExpired() {
		return nil, false
	}

	return entry.Value, true
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[string]*CacheEntry)
}

// Size returns the number of items in the cache
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemoryCache) cleanupExpired(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mutex.Lock()
			for key, entry := range c.items {
				if entry.IsExpired() {
					delete(c.items, key)
				}
			}
			c.mutex.Unlock()
		}
	}
}

// UserCache caches user records by ID for identity resolution
type UserCache struct {
	*MemoryCache
}

// NewUserCache creates a user cache with the given TTL
func NewUserCache(ttl time.Duration) *UserCache {
	return &UserCache{MemoryCache: NewMemoryCache(ttl)}
}

// SetUser caches a user under its ID
func (uc *UserCache) SetUser(user *models.User) {
	uc.Set(userKey(user.ID), user)
}

// GetUser retrieves a cached user
func (uc *UserCache) GetUser(id int64) (*models.User, bool) {
	value, exists := uc.Get(userKey(id))
	if !exists {
		return nil, false
	}

	user, ok := value.(*models.User)
	return user, ok
}

// ForgetUser drops a cached user
func (uc *UserCache) ForgetUser(id int64) {
	uc.Delete(userKey(id))
}

func userKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}
