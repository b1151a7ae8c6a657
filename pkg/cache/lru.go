package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// lruItem carries its own deadline: the expirable LRU evicts on a single
// package-wide TTL, while the interface allows a TTL per entry.
type lruItem struct {
	value      interface{}
	expiration time.Time
}

// lruCache is a size-bounded in-process backend.
type lruCache struct {
	config LocalConfig
	cache  *expirable.LRU[string, lruItem]
	mu     sync.Mutex // serializes Increment read-modify-write
}

// NewLRUCache creates a size-bounded cache backed by an expirable LRU.
func NewLRUCache(config LocalConfig) Cache {
	config = config.withDefaults()
	return &lruCache{
		config: config,
		cache:  expirable.NewLRU[string, lruItem](config.MaxSize, nil, config.DefaultExpiration),
	}
}

func (lc *lruCache) Get(ctx context.Context, key string) (interface{}, bool) {
	item, ok := lc.cache.Get(key)
	if !ok {
		return nil, false
	}
	if !item.expiration.IsZero() && time.Now().After(item.expiration) {
		lc.cache.Remove(key)
		return nil, false
	}
	return item.value, true
}

func (lc *lruCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	var deadline time.Time
	if expiration > 0 {
		deadline = time.Now().Add(expiration)
	}
	lc.cache.Add(key, lruItem{value: value, expiration: deadline})
	return nil
}

func (lc *lruCache) Delete(ctx context.Context, key string) error {
	lc.cache.Remove(key)
	return nil
}

func (lc *lruCache) Exists(ctx context.Context, key string) bool {
	_, ok := lc.Get(ctx, key)
	return ok
}

func (lc *lruCache) Increment(ctx context.Context, key string, value int64) (int64, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	current := int64(0)
	if v, ok := lc.Get(ctx, key); ok {
		if n, isInt := v.(int64); isInt {
			current = n
		}
	}
	current += value
	lc.cache.Add(key, lruItem{value: current})
	return current, nil
}

func (lc *lruCache) Clear(ctx context.Context) error {
	lc.cache.Purge()
	return nil
}

func (lc *lruCache) Close() error { return nil }
