// ABOUTME: Process-wide cache of access credentials keyed by caller identity.
// ABOUTME: Decides whether a refresh-token grant is needed for a request.
package auth

import (
	"sync"
	"time"
)

// Credential is the last-known-good access credential for one identity.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the credential is no longer usable at the given time.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// CacheStatus describes one identity's cache entry for the admin surface.
type CacheStatus struct {
	Exists    bool       `json:"exists"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	IsExpired *bool      `json:"is_expired,omitempty"`
}

// Cache maps identity keys to cached credentials. Safe for concurrent use.
// Concurrent refreshes for the same identity are not de-duplicated; the last
// writer wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Credential
	now     func() time.Time
}

// NewCache creates an empty credential cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]Credential),
		now:     time.Now,
	}
}

// Get returns the cached credential for key, if any.
func (c *Cache) Get(key string) (Credential, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cred, ok := c.entries[key]
	return cred, ok
}

// GetValid returns the cached credential only if it is present and unexpired.
func (c *Cache) GetValid(key string) (Credential, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cred, ok := c.entries[key]
	if !ok || cred.Expired(c.now()) {
		return Credential{}, false
	}
	return cred, true
}

// Put stores or overwrites the credential for key.
func (c *Cache) Put(key string, cred Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cred
}

// Invalidate removes the credential for key, reporting whether one existed.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Status returns the cache status for one identity.
func (c *Cache) Status(key string) CacheStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statusLocked(key)
}

// StatusAll returns the status of every cached identity.
func (c *Cache) StatusAll() map[string]CacheStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	all := make(map[string]CacheStatus, len(c.entries))
	for key := range c.entries {
		all[key] = c.statusLocked(key)
	}
	return all
}

func (c *Cache) statusLocked(key string) CacheStatus {
	cred, ok := c.entries[key]
	if !ok {
		return CacheStatus{Exists: false}
	}
	expiresAt := cred.ExpiresAt
	expired := cred.Expired(c.now())
	return CacheStatus{Exists: true, ExpiresAt: &expiresAt, IsExpired: &expired}
}
