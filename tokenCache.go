package main

import (
	"sync"
	"time"

	log "github.com/Financial-Times/go-logger"
)

const (
	// maxCachedTokens caps the cache at the commander platform's
	// concurrent session limit.
	maxCachedTokens = 5

	// defaultTokenTTL stays below the commander's own inactivity timer
	// so a cached token is refreshed before the server side drops it.
	defaultTokenTTL = 20 * time.Minute
)

type authToken struct {
	value     string
	createdAt time.Time
	expiresAt time.Time
}

// tokenCache holds session tokens keyed by "address:username". Expired
// entries are purged lazily on lookup and never served; when the cache
// is full, the entry with the oldest creation time is evicted.
type tokenCache struct {
	sync.Mutex
	tokens map[string]authToken
	ttl    time.Duration
	now    func() time.Time
}

func newTokenCache(ttl time.Duration) *tokenCache {
	return &tokenCache{
		tokens: make(map[string]authToken),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (c *tokenCache) get(key string) (string, bool) {
	c.Lock()
	defer c.Unlock()

	token, ok := c.tokens[key]
	if !ok {
		return "", false
	}

	if !c.now().Before(token.expiresAt) {
		log.Debugf("Cached token expired for %s", key)
		delete(c.tokens, key)
		return "", false
	}

	return token.value, true
}

func (c *tokenCache) put(key string, value string) {
	c.Lock()
	defer c.Unlock()

	if _, exists := c.tokens[key]; !exists && len(c.tokens) >= maxCachedTokens {
		c.evictOldest()
	}

	now := c.now()
	c.tokens[key] = authToken{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(c.ttl),
	}
}

// evictOldest removes the entry with the earliest creation time. The
// caller must hold the lock.
func (c *tokenCache) evictOldest() {
	var oldestKey string
	var oldestCreation time.Time

	for key, token := range c.tokens {
		if oldestKey == "" || token.createdAt.Before(oldestCreation) {
			oldestKey = key
			oldestCreation = token.createdAt
		}
	}

	if oldestKey != "" {
		log.Debugf("Token cache full, evicting oldest entry for %s", oldestKey)
		delete(c.tokens, oldestKey)
	}
}

// release drops a token before its TTL, for callers that know the
// session is no longer needed.
func (c *tokenCache) release(key string) {
	c.Lock()
	delete(c.tokens, key)
	c.Unlock()
}

func (c *tokenCache) size() int {
	c.Lock()
	defer c.Unlock()
	return len(c.tokens)
}
