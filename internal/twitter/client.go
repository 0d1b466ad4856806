// ABOUTME: HTTP client for the X/Twitter v2 posting API.
// ABOUTME: Posts tweets, uploads media, and resolves the caller's profile.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIBaseURL is the X API v2 base URL.
const DefaultAPIBaseURL = "https://api.twitter.com"

// DefaultUploadURL is the media upload endpoint.
const DefaultUploadURL = "https://upload.twitter.com/1.1/media/upload.json"

// Client posts tweets to the platform on behalf of one access token.
type Client struct {
	baseURL   string
	uploadURL string
	bearer    string
	client    *http.Client
}

// NewClient creates a platform client with the given access token.
func NewClient(baseURL, uploadURL, accessToken string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if uploadURL == "" {
		uploadURL = DefaultUploadURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		uploadURL: uploadURL,
		bearer:    accessToken,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

// tweetPayload is the JSON body sent to POST /2/tweets.
type tweetPayload struct {
	Text  string      `json:"text"`
	Reply *tweetReply `json:"reply,omitempty"`
	Media *tweetMedia `json:"media,omitempty"`
}

type tweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

// tweetResponse maps the created tweet from the API response.
type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// apiError is the X API v2 error envelope.
type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

// Profile is the authenticated user's public profile.
type Profile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type profileResponse struct {
	Data Profile `json:"data"`
}

// mediaUploadResponse maps the upload endpoint's response.
type mediaUploadResponse struct {
	MediaIDString string `json:"media_id_string"`
	MediaID       int64  `json:"media_id"`
}

// PostTweet creates a tweet, optionally as a reply, optionally with media.
// Returns the new tweet's identifier.
func (c *Client) PostTweet(ctx context.Context, text, replyToID string, mediaIDs []string) (string, error) {
	payload := tweetPayload{Text: text}
	if replyToID != "" {
		payload.Reply = &tweetReply{InReplyToTweetID: replyToID}
	}
	if len(mediaIDs) > 0 {
		payload.Media = &tweetMedia{MediaIDs: mediaIDs}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", WrapError(KindInternal, err, "failed to marshal tweet")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", WrapError(KindInternal, err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", WrapError(KindPlatform, err, "tweet request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", c.statusError(resp)
	}

	var tweetResp tweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&tweetResp); err != nil {
		return "", WrapError(KindPlatform, err, "failed to decode tweet response")
	}
	if tweetResp.Data.ID == "" {
		return "", NewError(KindPlatform, "platform returned no tweet id")
	}
	return tweetResp.Data.ID, nil
}

// UploadMedia uploads one media item and returns its platform identifier.
func (c *Client) UploadMedia(ctx context.Context, data []byte, mimeType string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("media", "media")
	if err != nil {
		return "", WrapError(KindInternal, err, "failed to build upload form")
	}
	if _, err := part.Write(data); err != nil {
		return "", WrapError(KindInternal, err, "failed to build upload form")
	}
	if mimeType != "" {
		_ = w.WriteField("media_type", mimeType)
	}
	if err := w.Close(); err != nil {
		return "", WrapError(KindInternal, err, "failed to build upload form")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.uploadURL, &buf)
	if err != nil {
		return "", WrapError(KindInternal, err, "failed to create request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", WrapError(KindPlatform, err, "media upload request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", c.statusError(resp)
	}

	var uploadResp mediaUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", WrapError(KindPlatform, err, "failed to decode upload response")
	}
	if uploadResp.MediaIDString != "" {
		return uploadResp.MediaIDString, nil
	}
	if uploadResp.MediaID != 0 {
		return fmt.Sprintf("%d", uploadResp.MediaID), nil
	}
	return "", NewError(KindPlatform, "platform returned no media id")
}

// Me resolves the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/2/users/me", nil)
	if err != nil {
		return nil, WrapError(KindInternal, err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, WrapError(KindPlatform, err, "profile request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, c.statusError(resp)
	}

	var profResp profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profResp); err != nil {
		return nil, WrapError(KindPlatform, err, "failed to decode profile response")
	}
	return &profResp.Data, nil
}

// statusError converts a non-2xx platform response into a classified error.
func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var apiErr apiError
	detail := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Detail != "" {
		detail = apiErr.Detail
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return NewError(KindRateLimited, "rate limit exceeded: %s", detail)
	}
	return NewError(KindPlatform, "platform returned %d: %s", resp.StatusCode, detail)
}

// ShareURL builds the public URL for a posted tweet.
func ShareURL(username, tweetID string) string {
	return fmt.Sprintf("https://x.com/%s/status/%s", username, tweetID)
}
