// ABOUTME: Fan-out of rotated refresh tokens to the paired config endpoints.
// ABOUTME: Derives the sibling URL by toggling the -dev host naming convention.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/2389-research/tern/internal/metrics"
)

// configUpdate is the JSON body sent to a config-update endpoint.
type configUpdate struct {
	UserID      string            `json:"user_id"`
	MCPServerID string            `json:"mcp_server_id"`
	Config      map[string]string `json:"config"`
	Scope       string            `json:"scope"`
}

// propagate posts the rotated refresh token to both config endpoints
// concurrently. Failures are logged and swallowed: the access token already
// obtained stays usable regardless of downstream durability.
func (r *Refresher) propagate(ctx context.Context, userID, serverID, configURL, refreshToken string) {
	targets := r.propagationTargets(configURL)
	if len(targets) == 0 {
		return
	}

	update := configUpdate{
		UserID:      userID,
		MCPServerID: serverID,
		Config:      map[string]string{"TWITTER_REFRESH_TOKEN": refreshToken},
		Scope:       "private",
	}
	body, err := json.Marshal(update)
	if err != nil {
		r.logger.Warn("config propagation skipped", "error", err)
		return
	}

	var g errgroup.Group
	for _, target := range targets {
		g.Go(func() error {
			if err := r.postConfigUpdate(ctx, target, body); err != nil {
				metrics.PropagationFailures.Inc()
				r.logger.Warn("config propagation failed", "url", target, "user_id", userID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// propagationTargets resolves the pair of config-update URLs, preferring
// explicit overrides from process configuration.
func (r *Refresher) propagationTargets(configURL string) []string {
	primary := r.overrides.PrimaryURL
	if primary == "" {
		primary = configURL
	}

	sibling := r.overrides.SiblingURL
	if sibling == "" && configURL != "" {
		derived, err := SiblingConfigURL(configURL)
		if err != nil {
			r.logger.Warn("failed to derive sibling config URL", "url", configURL, "error", err)
		} else {
			sibling = derived
		}
	}

	var targets []string
	if primary != "" {
		targets = append(targets, primary)
	}
	if sibling != "" && sibling != primary {
		targets = append(targets, sibling)
	}
	return targets
}

func (r *Refresher) postConfigUpdate(ctx context.Context, target string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("config update request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return fmt.Errorf("config endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SiblingConfigURL derives the paired environment's config-update URL by
// toggling a "-dev" suffix on the first host label, so a rotated token
// reaches both the dev and prod account stores.
func SiblingConfigURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid config URL: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("config URL has no host: %s", raw)
	}

	label, rest, found := strings.Cut(host, ".")
	if strings.HasSuffix(label, "-dev") {
		label = strings.TrimSuffix(label, "-dev")
	} else {
		label += "-dev"
	}
	sibling := label
	if found {
		sibling += "." + rest
	}
	if port := u.Port(); port != "" {
		sibling += ":" + port
	}
	u.Host = sibling
	return u.String(), nil
}
