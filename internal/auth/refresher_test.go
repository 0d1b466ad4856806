// ABOUTME: Tests for the OAuth2 refresh-token grant and rotated-token fan-out.
// ABOUTME: Uses httptest servers standing in for the token and config endpoints.
package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenEndpoint returns a test server answering the refresh-token grant.
func tokenEndpoint(t *testing.T, status int, body map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
}

// configSink records config-update posts it receives.
type configSink struct {
	mu      sync.Mutex
	updates []configUpdate
	status  int
}

func (s *configSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var update configUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.updates = append(s.updates, update)
	s.mu.Unlock()
	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func (s *configSink) received() []configUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]configUpdate(nil), s.updates...)
}

func TestRefreshSuccess(t *testing.T) {
	ts := tokenEndpoint(t, http.StatusOK, map[string]any{
		"access_token":  "at-new",
		"refresh_token": "rt-new",
		"token_type":    "bearer",
		"expires_in":    7200,
	})
	defer ts.Close()

	sink := &configSink{}
	cs := httptest.NewServer(sink)
	defer cs.Close()

	r := NewRefresher(RefresherConfig{
		TokenURL: ts.URL,
		Overrides: PropagationOverrides{
			PrimaryURL: cs.URL,
			SiblingURL: cs.URL,
		},
		Logger: slog.New(slog.DiscardHandler),
	})

	tok, err := r.Refresh(context.Background(), OAuthConfig{ClientID: "cid", ClientSecret: "cs"}, "rt-old", "alice", "server1", "")
	require.NoError(t, err)
	assert.Equal(t, "at-new", tok.AccessToken)
	assert.Equal(t, "rt-new", tok.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), tok.ExpiresAt, 30*time.Second)

	// Identical primary and sibling collapse to one propagation target.
	updates := sink.received()
	require.Len(t, updates, 1)
	assert.Equal(t, "alice", updates[0].UserID)
	assert.Equal(t, "server1", updates[0].MCPServerID)
	assert.Equal(t, "private", updates[0].Scope)
	assert.Equal(t, "rt-new", updates[0].Config["TWITTER_REFRESH_TOKEN"])
}

func TestRefreshDefaultExpiry(t *testing.T) {
	ts := tokenEndpoint(t, http.StatusOK, map[string]any{
		"access_token": "at-new",
		"token_type":   "bearer",
	})
	defer ts.Close()

	r := NewRefresher(RefresherConfig{TokenURL: ts.URL, Logger: slog.New(slog.DiscardHandler)})

	tok, err := r.Refresh(context.Background(), OAuthConfig{ClientID: "cid"}, "rt-old", "alice", "server1", "")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, 30*time.Second)
	// The oauth2 package carries the supplied refresh token forward when the
	// response omits one, so the caller keeps a usable token.
	assert.Equal(t, "rt-old", tok.RefreshToken)
}

func TestRefreshWithoutRotationSkipsPropagation(t *testing.T) {
	ts := tokenEndpoint(t, http.StatusOK, map[string]any{
		"access_token": "at-new",
		"token_type":   "bearer",
		"expires_in":   3600,
	})
	defer ts.Close()

	sink := &configSink{}
	cs := httptest.NewServer(sink)
	defer cs.Close()

	r := NewRefresher(RefresherConfig{
		TokenURL:  ts.URL,
		Overrides: PropagationOverrides{PrimaryURL: cs.URL, SiblingURL: cs.URL},
		Logger:    slog.New(slog.DiscardHandler),
	})

	tok, err := r.Refresh(context.Background(), OAuthConfig{ClientID: "cid"}, "rt-old", "alice", "server1", "")
	require.NoError(t, err)
	assert.Equal(t, "rt-old", tok.RefreshToken)

	// An unrotated token never goes back out to the config stores.
	assert.Empty(t, sink.received())
}

func TestRefreshEchoedTokenSkipsPropagation(t *testing.T) {
	ts := tokenEndpoint(t, http.StatusOK, map[string]any{
		"access_token":  "at-new",
		"refresh_token": "rt-old",
		"token_type":    "bearer",
		"expires_in":    3600,
	})
	defer ts.Close()

	sink := &configSink{}
	cs := httptest.NewServer(sink)
	defer cs.Close()

	r := NewRefresher(RefresherConfig{
		TokenURL:  ts.URL,
		Overrides: PropagationOverrides{PrimaryURL: cs.URL, SiblingURL: cs.URL},
		Logger:    slog.New(slog.DiscardHandler),
	})

	_, err := r.Refresh(context.Background(), OAuthConfig{ClientID: "cid"}, "rt-old", "alice", "server1", "")
	require.NoError(t, err)
	assert.Empty(t, sink.received())
}

func TestRefreshInvalidGrant(t *testing.T) {
	ts := tokenEndpoint(t, http.StatusBadRequest, map[string]any{
		"error":             "invalid_grant",
		"error_description": "refresh token revoked",
	})
	defer ts.Close()

	r := NewRefresher(RefresherConfig{TokenURL: ts.URL, Logger: slog.New(slog.DiscardHandler)})

	_, err := r.Refresh(context.Background(), OAuthConfig{ClientID: "cid"}, "rt-old", "alice", "server1", "")
	require.Error(t, err)

	var tre *TokenRefreshError
	require.ErrorAs(t, err, &tre)
	assert.Equal(t, "invalid_grant", tre.Code)
	assert.Equal(t, "refresh token revoked", tre.Description)
	assert.Contains(t, tre.Error(), "invalid_grant")
}

func TestRefreshPropagatesToBothTargets(t *testing.T) {
	ts := tokenEndpoint(t, http.StatusOK, map[string]any{
		"access_token":  "at-new",
		"refresh_token": "rt-new",
		"token_type":    "bearer",
		"expires_in":    3600,
	})
	defer ts.Close()

	primary := &configSink{}
	ps := httptest.NewServer(primary)
	defer ps.Close()

	sibling := &configSink{}
	ss := httptest.NewServer(sibling)
	defer ss.Close()

	r := NewRefresher(RefresherConfig{
		TokenURL: ts.URL,
		Overrides: PropagationOverrides{
			PrimaryURL: ps.URL,
			SiblingURL: ss.URL,
		},
		Logger: slog.New(slog.DiscardHandler),
	})

	_, err := r.Refresh(context.Background(), OAuthConfig{ClientID: "cid"}, "rt-old", "alice", "server1", "")
	require.NoError(t, err)

	require.Len(t, primary.received(), 1)
	require.Len(t, sibling.received(), 1)
}

func TestRefreshPropagationFailureIsSwallowed(t *testing.T) {
	ts := tokenEndpoint(t, http.StatusOK, map[string]any{
		"access_token":  "at-new",
		"refresh_token": "rt-new",
		"token_type":    "bearer",
		"expires_in":    3600,
	})
	defer ts.Close()

	sink := &configSink{status: http.StatusInternalServerError}
	cs := httptest.NewServer(sink)
	defer cs.Close()

	r := NewRefresher(RefresherConfig{
		TokenURL:  ts.URL,
		Overrides: PropagationOverrides{PrimaryURL: cs.URL, SiblingURL: cs.URL},
		Logger:    slog.New(slog.DiscardHandler),
	})

	tok, err := r.Refresh(context.Background(), OAuthConfig{ClientID: "cid"}, "rt-old", "alice", "server1", "")
	require.NoError(t, err)
	assert.Equal(t, "at-new", tok.AccessToken)
	require.Len(t, sink.received(), 1)
}

func TestPropagationTargetsDeriveSibling(t *testing.T) {
	r := NewRefresher(RefresherConfig{Logger: slog.New(slog.DiscardHandler)})

	targets := r.propagationTargets("https://api.example.com/config/update")
	require.Len(t, targets, 2)
	assert.Equal(t, "https://api.example.com/config/update", targets[0])
	assert.Equal(t, "https://api-dev.example.com/config/update", targets[1])
}

func TestPropagationTargetsEmpty(t *testing.T) {
	r := NewRefresher(RefresherConfig{Logger: slog.New(slog.DiscardHandler)})
	assert.Empty(t, r.propagationTargets(""))
}

func TestSiblingConfigURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"adds dev suffix", "https://api.example.com/update", "https://api-dev.example.com/update"},
		{"removes dev suffix", "https://api-dev.example.com/update", "https://api.example.com/update"},
		{"preserves port", "https://api.example.com:8443/update", "https://api-dev.example.com:8443/update"},
		{"single label host", "http://config/update", "http://config-dev/update"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SiblingConfigURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSiblingConfigURLNoHost(t *testing.T) {
	_, err := SiblingConfigURL("/relative/path/only")
	assert.Error(t, err)
}
