// ABOUTME: Extraction of caller identity and OAuth headers into the context.
// ABOUTME: Middleware bridging HTTP transport headers to MCP tool handlers.
package mcp

import (
	"context"
	"net/http"

	"github.com/2389-research/tern/internal/models"
)

// Header names carrying caller credentials on the HTTP transport.
const (
	HeaderClientID        = "twitter_client_id"
	HeaderClientSecret    = "twitter_client_secret"
	HeaderRefreshToken    = "twitter_refresh_token"
	HeaderAccessToken     = "access_token"
	HeaderUserID          = "user_id"
	HeaderServerID        = "server_id"
	HeaderUpdateConfigURL = "update_config_url"
)

type callerContextKey struct{}

// CallerFromHeaders builds a CallerContext from HTTP headers. Returns nil
// when no credential or identity header is present at all.
func CallerFromHeaders(h http.Header) *models.CallerContext {
	c := &models.CallerContext{
		ClientID:        h.Get(HeaderClientID),
		ClientSecret:    h.Get(HeaderClientSecret),
		RefreshToken:    h.Get(HeaderRefreshToken),
		AccessToken:     h.Get(HeaderAccessToken),
		UserID:          h.Get(HeaderUserID),
		ServerID:        h.Get(HeaderServerID),
		UpdateConfigURL: h.Get(HeaderUpdateConfigURL),
	}
	if *c == (models.CallerContext{}) {
		return nil
	}
	return c
}

// ContextWithCaller returns a context carrying the caller.
func ContextWithCaller(ctx context.Context, c *models.CallerContext) context.Context {
	return context.WithValue(ctx, callerContextKey{}, c)
}

// CallerFromContext returns the caller stored in ctx, or nil.
func CallerFromContext(ctx context.Context) *models.CallerContext {
	c, _ := ctx.Value(callerContextKey{}).(*models.CallerContext)
	return c
}

// CallerHeaderMiddleware lifts credential headers into the request context so
// tool handlers invoked under this request can read them.
func CallerHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c := CallerFromHeaders(r.Header); c != nil {
			r = r.WithContext(ContextWithCaller(r.Context(), c))
		}
		next.ServeHTTP(w, r)
	})
}
