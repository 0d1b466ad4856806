// ABOUTME: Media source resolution for tweet attachments.
// ABOUTME: Fetches remote URLs or decodes inline base64 data URIs into bytes.
package twitter

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// MaxImagesPerTweet is the platform limit on attached images.
const MaxImagesPerTweet = 4

// MaxVideosPerTweet is the platform limit on attached videos.
const MaxVideosPerTweet = 1

// maxMediaBytes caps how much we will download for a single media item.
const maxMediaBytes = 50 << 20

var dataURIPattern = regexp.MustCompile(`^data:([a-zA-Z0-9.+/-]+);base64,(.+)$`)

// defaultMediaClient fetches remote media sources.
var defaultMediaClient = &http.Client{Timeout: 60 * time.Second}

// ResolveMediaSource turns a media source string into raw bytes and a MIME type.
// Sources are either http(s) URLs or base64 data URIs.
func ResolveMediaSource(ctx context.Context, client *http.Client, src string) ([]byte, string, error) {
	if client == nil {
		client = defaultMediaClient
	}

	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return fetchMedia(ctx, client, src)
	}

	if m := dataURIPattern.FindStringSubmatch(src); m != nil {
		data, err := base64.StdEncoding.DecodeString(m[2])
		if err != nil {
			return nil, "", fmt.Errorf("failed to decode base64 media: %w", err)
		}
		return data, m[1], nil
	}

	return nil, "", fmt.Errorf("unrecognized media source (expected URL or data URI)")
}

func fetchMedia(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("media fetch failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("media fetch returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read media body: %w", err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return data, mimeType, nil
}
