// ABOUTME: OAuth2 refresh-token grant against the platform token endpoint.
// ABOUTME: Fans rotated refresh tokens out to the paired external config stores.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/2389-research/tern/internal/metrics"
)

// DefaultTokenURL is the X OAuth2 token endpoint.
const DefaultTokenURL = "https://api.twitter.com/2/oauth2/token"

// defaultExpiry is assumed when the platform omits expires_in.
const defaultExpiry = time.Hour

// OAuthConfig is the caller's OAuth2 client credential pair.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
}

// Token is the result of a successful refresh.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenRefreshError is a failed refresh-token grant, carrying the platform's
// error code and description when available.
type TokenRefreshError struct {
	Code        string
	Description string
	Err         error
}

func (e *TokenRefreshError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("token refresh failed: %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *TokenRefreshError) Unwrap() error {
	return e.Err
}

// PropagationOverrides pins the config-update endpoints, taking precedence
// over the caller-supplied URL and its derived sibling.
type PropagationOverrides struct {
	PrimaryURL string
	SiblingURL string
}

// RefresherConfig configures a Refresher.
type RefresherConfig struct {
	// TokenURL is the OAuth2 token endpoint (default: DefaultTokenURL).
	TokenURL string

	// Overrides pin the propagation endpoints when set.
	Overrides PropagationOverrides

	// HTTPClient is used for the grant and propagation calls.
	HTTPClient *http.Client

	// Logger for propagation failures (nil uses the default logger).
	Logger *slog.Logger
}

// Refresher exchanges refresh tokens for access tokens and propagates
// rotated refresh tokens downstream.
type Refresher struct {
	tokenURL  string
	overrides PropagationOverrides
	client    *http.Client
	logger    *slog.Logger
	now       func() time.Time
}

// NewRefresher creates a Refresher with the given configuration.
func NewRefresher(cfg RefresherConfig) *Refresher {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		tokenURL:  tokenURL,
		overrides: cfg.Overrides,
		client:    client,
		logger:    logger,
		now:       time.Now,
	}
}

// Refresh performs the refresh-token grant. On success the rotated refresh
// token (if any) is propagated to the config stores; propagation failures are
// logged and never surface to the caller.
func (r *Refresher) Refresh(ctx context.Context, oc OAuthConfig, refreshToken, userID, serverID, configURL string) (*Token, error) {
	conf := &oauth2.Config{
		ClientID:     oc.ClientID,
		ClientSecret: oc.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  r.tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, &TokenRefreshError{Code: re.ErrorCode, Description: re.ErrorDescription, Err: err}
		}
		return nil, &TokenRefreshError{Err: err}
	}
	metrics.TokenRefreshes.WithLabelValues("success").Inc()

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = r.now().Add(defaultExpiry)
	}

	result := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
	}

	// The platform rotates refresh tokens; the new one must reach the config
	// stores before this process forgets it. The oauth2 package backfills the
	// supplied token when the response omits refresh_token, so only a token
	// that actually differs counts as a rotation.
	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		r.propagate(ctx, userID, serverID, configURL, tok.RefreshToken)
	}

	return result, nil
}
