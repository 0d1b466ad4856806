// ABOUTME: Credential validation via a real OAuth2 refresh-token grant.
// ABOUTME: Returns the rotated refresh token so setup can persist it.
package tui

import (
	"context"
	"fmt"

	"github.com/2389-research/tern/internal/auth"
)

// TokenURL is the token endpoint used for validation. Variable so tests can
// point it at a local server.
var TokenURL = auth.DefaultTokenURL

// ValidateCredentials performs a refresh-token grant with the entered
// credentials. The platform rotates the refresh token on success, so the new
// token is returned for the caller to persist. The context allows
// cancellation when the user quits during validation.
func ValidateCredentials(ctx context.Context, clientID, clientSecret, refreshToken string) (string, error) {
	refresher := auth.NewRefresher(auth.RefresherConfig{TokenURL: TokenURL})

	tok, err := refresher.Refresh(ctx,
		auth.OAuthConfig{ClientID: clientID, ClientSecret: clientSecret},
		refreshToken, "", "", "")
	if err != nil {
		return "", fmt.Errorf("refresh failed: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("platform returned no access token")
	}
	return tok.RefreshToken, nil
}
