// ABOUTME: Tests for the per-identity credential cache.
// ABOUTME: Covers expiry handling, invalidation, and admin status reporting.
package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePutGet(t *testing.T) {
	c := NewCache()

	_, ok := c.Get("alice:server1")
	assert.False(t, ok)

	cred := Credential{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	c.Put("alice:server1", cred)

	got, ok := c.Get("alice:server1")
	require.True(t, ok)
	assert.Equal(t, cred, got)
}

func TestCacheGetValidSkipsExpired(t *testing.T) {
	base := time.Now()
	c := NewCache()
	c.now = func() time.Time { return base }

	c.Put("alice:server1", Credential{
		AccessToken: "stale",
		ExpiresAt:   base.Add(-time.Minute),
	})

	_, ok := c.GetValid("alice:server1")
	assert.False(t, ok)

	// The expired entry is still visible to Get.
	_, ok = c.Get("alice:server1")
	assert.True(t, ok)

	c.Put("alice:server1", Credential{
		AccessToken: "fresh",
		ExpiresAt:   base.Add(time.Hour),
	})
	got, ok := c.GetValid("alice:server1")
	require.True(t, ok)
	assert.Equal(t, "fresh", got.AccessToken)
}

func TestCacheExpiryBoundary(t *testing.T) {
	base := time.Now()
	cred := Credential{ExpiresAt: base}

	// Expiry is inclusive: a credential expiring exactly now is unusable.
	assert.True(t, cred.Expired(base))
	assert.False(t, cred.Expired(base.Add(-time.Second)))
	assert.True(t, cred.Expired(base.Add(time.Second)))
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache()

	assert.False(t, c.Invalidate("alice:server1"))

	c.Put("alice:server1", Credential{AccessToken: "at"})
	assert.True(t, c.Invalidate("alice:server1"))

	_, ok := c.Get("alice:server1")
	assert.False(t, ok)
}

func TestCacheStatus(t *testing.T) {
	base := time.Now()
	c := NewCache()
	c.now = func() time.Time { return base }

	st := c.Status("alice:server1")
	assert.False(t, st.Exists)
	assert.Nil(t, st.ExpiresAt)
	assert.Nil(t, st.IsExpired)

	expires := base.Add(time.Hour)
	c.Put("alice:server1", Credential{AccessToken: "at", ExpiresAt: expires})

	st = c.Status("alice:server1")
	require.True(t, st.Exists)
	require.NotNil(t, st.ExpiresAt)
	assert.Equal(t, expires, *st.ExpiresAt)
	require.NotNil(t, st.IsExpired)
	assert.False(t, *st.IsExpired)

	c.Put("bob:server1", Credential{AccessToken: "at", ExpiresAt: base.Add(-time.Minute)})
	st = c.Status("bob:server1")
	require.True(t, st.Exists)
	require.NotNil(t, st.IsExpired)
	assert.True(t, *st.IsExpired)
}

func TestCacheStatusAll(t *testing.T) {
	c := NewCache()
	c.Put("alice:server1", Credential{ExpiresAt: time.Now().Add(time.Hour)})
	c.Put("bob:server2", Credential{ExpiresAt: time.Now().Add(time.Hour)})

	all := c.StatusAll()
	assert.Len(t, all, 2)
	assert.True(t, all["alice:server1"].Exists)
	assert.True(t, all["bob:server2"].Exists)
}
