// ABOUTME: MCP tool implementations for posting tweets and threads.
// ABOUTME: Registers post_tweet and post_tweet_thread with JSON schemas.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/tern/internal/models"
	"github.com/2389-research/tern/internal/twitter"
)

func (s *Server) registerTweetTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "post_tweet",
		Description: "Post a single tweet, optionally as a reply and with attached images or videos.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"text": {"type": "string", "description": "The text of the tweet.", "minLength": 1, "maxLength": 280},
				"reply_to_tweet_id": {"type": "string", "description": "ID of the tweet to reply to (optional)"},
				"images": {"type": "array", "items": {"type": "string"}, "description": "Up to 4 image sources: URLs or base64 data URIs"},
				"videos": {"type": "array", "items": {"type": "string"}, "description": "Up to 1 video source: URL or base64 data URI"}
			},
			"required": ["text"]
		}`),
	}, s.handlePostTweet)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "post_tweet_thread",
		Description: "Post an ordered sequence of tweets as a thread; each tweet replies to the previous one.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"tweets": {
					"type": "array",
					"minItems": 1,
					"items": {
						"type": "object",
						"properties": {
							"text": {"type": "string", "minLength": 1, "maxLength": 280},
							"images": {"type": "array", "items": {"type": "string"}},
							"videos": {"type": "array", "items": {"type": "string"}}
						},
						"required": ["text"]
					},
					"description": "The tweets of the thread, in order."
				}
			},
			"required": ["tweets"]
		}`),
	}, s.handlePostThread)
}

func (s *Server) handlePostTweet(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args models.TweetRequest
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	caller := s.caller(ctx)
	if caller == nil {
		return toolError("missing credentials: supply twitter_client_id, twitter_client_secret, and twitter_refresh_token headers or configure them on the server"), nil
	}

	result, err := s.poster.PostTweet(ctx, &args, caller)
	if err != nil {
		if twitter.IsKind(err, twitter.KindRateLimited) {
			return softText("Rate limited by the platform: %v. Try again shortly.", err), nil
		}
		return toolError("failed to post tweet: %v", err), nil
	}

	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{
			Text: fmt.Sprintf("Posted tweet %s\n%s", result.TweetID, result.URL),
		}},
	}, nil
}

func (s *Server) handlePostThread(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args models.ThreadRequest
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	caller := s.caller(ctx)
	if caller == nil {
		return toolError("missing credentials: supply twitter_client_id, twitter_client_secret, and twitter_refresh_token headers or configure them on the server"), nil
	}

	results, err := s.poster.PostThread(ctx, args.Tweets, caller)
	if err != nil {
		if twitter.IsKind(err, twitter.KindRateLimited) {
			return softText("Rate limited by the platform after %d of %d tweets: %v. The posted tweets remain published.", len(results), len(args.Tweets), err), nil
		}
		return toolError("thread failed after %d of %d tweets: %v", len(results), len(args.Tweets), err), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Posted thread of %d tweets:\n", len(results)))
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, r.URL))
	}
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: sb.String()}},
	}, nil
}

// toolError creates an error result for MCP tool responses.
func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// softText renders a failure as plain text rather than a protocol-level
// fault, so callers can display it gracefully.
func softText(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}
