// ABOUTME: Tests for the core data models.
// ABOUTME: Covers identity keys, refresh preconditions, and record creation.
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallerContextKey(t *testing.T) {
	c := &CallerContext{UserID: "alice", ServerID: "server1"}
	assert.Equal(t, "alice:server1", c.Key())

	// Missing IDs still produce a key; both missing yields the shared ":".
	assert.Equal(t, "alice:", (&CallerContext{UserID: "alice"}).Key())
	assert.Equal(t, ":server1", (&CallerContext{ServerID: "server1"}).Key())
	assert.Equal(t, ":", (&CallerContext{}).Key())
}

func TestCallerContextHasIdentity(t *testing.T) {
	assert.True(t, (&CallerContext{UserID: "alice"}).HasIdentity())
	assert.True(t, (&CallerContext{ServerID: "server1"}).HasIdentity())
	assert.False(t, (&CallerContext{AccessToken: "at"}).HasIdentity())
}

func TestCallerContextCanRefresh(t *testing.T) {
	full := &CallerContext{ClientID: "cid", ClientSecret: "cs", RefreshToken: "rt"}
	assert.True(t, full.CanRefresh())

	assert.False(t, (&CallerContext{ClientID: "cid", ClientSecret: "cs"}).CanRefresh())
	assert.False(t, (&CallerContext{ClientID: "cid", RefreshToken: "rt"}).CanRefresh())
	assert.False(t, (&CallerContext{ClientSecret: "cs", RefreshToken: "rt"}).CanRefresh())
}

func TestNewPostRecord(t *testing.T) {
	rec := NewPostRecord("123", "https://x.com/tester/status/123", "alice", "server1", "hello", "99")
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", rec.ID.String())
	assert.Equal(t, "123", rec.TweetID)
	assert.Equal(t, "hello", rec.Text)
	assert.Equal(t, "99", rec.ReplyToID)
	assert.False(t, rec.CreatedAt.IsZero())
}
