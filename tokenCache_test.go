package main

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock hands out strictly increasing instants so creation order is
// deterministic.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	c.current = c.current.Add(time.Second)
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestTokenCache(ttl time.Duration) (*tokenCache, *fakeClock) {
	clock := &fakeClock{current: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := newTokenCache(ttl)
	cache.now = clock.now
	return cache, clock
}

func TestTokenCachePutAndGet(t *testing.T) {
	cache, _ := newTestTokenCache(defaultTokenTTL)

	cache.put("10.0.0.1:admin", "token-1")

	token, ok := cache.get("10.0.0.1:admin")
	assert.True(t, ok)
	assert.Equal(t, "token-1", token)

	_, ok = cache.get("10.0.0.2:admin")
	assert.False(t, ok, "Unknown key should miss.")
}

func TestTokenCacheExpiredTokenIsNeverServed(t *testing.T) {
	cache, clock := newTestTokenCache(time.Minute)

	cache.put("10.0.0.1:admin", "token-1")
	clock.advance(2 * time.Minute)

	_, ok := cache.get("10.0.0.1:admin")
	assert.False(t, ok, "Expired token should be purged on lookup.")
	assert.Equal(t, 0, cache.size(), "Expired entry should be removed.")
}

func TestTokenCacheEvictsOldestWhenFull(t *testing.T) {
	cache, _ := newTestTokenCache(time.Hour)

	for i := 1; i <= maxCachedTokens; i++ {
		cache.put(fmt.Sprintf("10.0.0.%d:admin", i), fmt.Sprintf("token-%d", i))
	}
	assert.Equal(t, maxCachedTokens, cache.size())

	cache.put("10.0.0.6:admin", "token-6")

	assert.Equal(t, maxCachedTokens, cache.size(), "Cache should never exceed its cap.")
	_, ok := cache.get("10.0.0.1:admin")
	assert.False(t, ok, "The entry with the oldest creation time should have been evicted.")
	token, ok := cache.get("10.0.0.6:admin")
	assert.True(t, ok)
	assert.Equal(t, "token-6", token)
}

func TestTokenCacheRefreshingExistingKeyDoesNotEvict(t *testing.T) {
	cache, _ := newTestTokenCache(time.Hour)

	for i := 1; i <= maxCachedTokens; i++ {
		cache.put(fmt.Sprintf("10.0.0.%d:admin", i), fmt.Sprintf("token-%d", i))
	}

	cache.put("10.0.0.3:admin", "token-3-refreshed")

	assert.Equal(t, maxCachedTokens, cache.size())
	for i := 1; i <= maxCachedTokens; i++ {
		_, ok := cache.get(fmt.Sprintf("10.0.0.%d:admin", i))
		assert.True(t, ok, "Refreshing a cached key should not evict anything.")
	}
}

func TestTokenCacheRelease(t *testing.T) {
	cache, _ := newTestTokenCache(time.Hour)

	cache.put("10.0.0.1:admin", "token-1")
	cache.release("10.0.0.1:admin")

	_, ok := cache.get("10.0.0.1:admin")
	assert.False(t, ok, "Released token should be gone.")
}
