// ABOUTME: Core data models for tweet requests, caller identity, and post history.
// ABOUTME: Provides the composite identity key and validator-tagged request shapes.
package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxTweetLength is the platform limit for a single tweet's text.
const MaxTweetLength = 280

// TweetRequest is the payload for a single tweet.
type TweetRequest struct {
	Text           string   `json:"text" validate:"required,max=280"`
	ReplyToTweetID string   `json:"reply_to_tweet_id,omitempty"`
	Images         []string `json:"images,omitempty"`
	Videos         []string `json:"videos,omitempty"`
}

// ThreadRequest is an ordered sequence of tweets posted as a reply chain.
type ThreadRequest struct {
	Tweets []TweetRequest `json:"tweets" validate:"required,min=1,dive"`
}

// CallerContext carries the per-request identity and OAuth material supplied
// out-of-band by the caller (HTTP headers in server mode, config in stdio mode).
type CallerContext struct {
	UserID          string
	ServerID        string
	ClientID        string
	ClientSecret    string
	RefreshToken    string
	AccessToken     string
	UpdateConfigURL string
}

// Key returns the composite identity key scoping cache and pacing state.
// Both IDs empty yields the degenerate shared key ":".
func (c *CallerContext) Key() string {
	return c.UserID + ":" + c.ServerID
}

// HasIdentity reports whether the caller supplied any identity at all.
func (c *CallerContext) HasIdentity() bool {
	return c.UserID != "" || c.ServerID != ""
}

// CanRefresh reports whether the caller supplied everything needed for a
// refresh-token grant.
func (c *CallerContext) CanRefresh() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// PostRecord is a locally stored record of a successfully posted tweet.
type PostRecord struct {
	ID        uuid.UUID
	TweetID   string
	URL       string
	UserID    string
	ServerID  string
	Text      string
	ReplyToID string
	CreatedAt time.Time
}

// NewPostRecord creates a post record with generated UUID and timestamp.
func NewPostRecord(tweetID, url, userID, serverID, text, replyToID string) *PostRecord {
	return &PostRecord{
		ID:        uuid.New(),
		TweetID:   tweetID,
		URL:       url,
		UserID:    userID,
		ServerID:  serverID,
		Text:      text,
		ReplyToID: replyToID,
		CreatedAt: time.Now(),
	}
}
