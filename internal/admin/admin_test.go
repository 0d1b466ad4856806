// ABOUTME: Tests for the administrative token cache and pacer endpoints.
// ABOUTME: Drives the mux router with httptest requests and JSON bodies.
package admin

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/tern/internal/auth"
	"github.com/2389-research/tern/internal/pacing"
)

type harness struct {
	cache  *auth.Cache
	pacer  *pacing.Pacer
	router http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cache := auth.NewCache()
	pacer := pacing.NewPacer()
	h := NewHandler(cache, pacer, slog.New(slog.DiscardHandler))
	return &harness{cache: cache, pacer: pacer, router: h.Router()}
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func TestExpireToken(t *testing.T) {
	h := newHarness(t)
	h.cache.Put("alice:server1", auth.Credential{
		AccessToken: "at",
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	rec := h.do(t, "POST", "/expired_token", map[string]string{
		"user_id":   "alice",
		"server_id": "server1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	decode(t, rec, &resp)
	assert.Equal(t, true, resp["cleared"])
	assert.Equal(t, "alice", resp["user_id"])
	assert.Equal(t, "server1", resp["server_id"])

	_, ok := h.cache.Get("alice:server1")
	assert.False(t, ok)
}

func TestExpireTokenUnknownIdentity(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "POST", "/expired_token", map[string]string{
		"user_id":   "nobody",
		"server_id": "server1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	decode(t, rec, &resp)
	assert.Equal(t, false, resp["cleared"])
}

func TestExpireTokenRequiresIdentity(t *testing.T) {
	h := newHarness(t)

	for _, body := range []map[string]string{
		{},
		{"user_id": "alice"},
		{"server_id": "server1"},
	} {
		rec := h.do(t, "POST", "/expired_token", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestGetTokenCache(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "POST", "/get_token_cache", map[string]string{
		"user_id":   "alice",
		"server_id": "server1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var st auth.CacheStatus
	decode(t, rec, &st)
	assert.False(t, st.Exists)

	h.cache.Put("alice:server1", auth.Credential{
		AccessToken: "at",
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	rec = h.do(t, "POST", "/get_token_cache", map[string]string{
		"user_id":   "alice",
		"server_id": "server1",
	})
	decode(t, rec, &st)
	assert.True(t, st.Exists)
	require.NotNil(t, st.IsExpired)
	assert.False(t, *st.IsExpired)
}

func TestGetDelayStatus(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "POST", "/get_delay_status", map[string]string{
		"user_id":   "alice",
		"server_id": "server1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp delayStatusResponse
	decode(t, rec, &resp)
	assert.False(t, resp.Exists)

	h.pacer.RecordSend("alice:server1", 4*time.Second)

	rec = h.do(t, "POST", "/get_delay_status", map[string]string{
		"user_id":   "alice",
		"server_id": "server1",
	})
	decode(t, rec, &resp)
	assert.True(t, resp.Exists)
	assert.Equal(t, 4, resp.DelaySeconds)
	assert.NotEmpty(t, resp.NextAllowedAt)
	assert.Greater(t, resp.WaitSeconds, 0)
	assert.LessOrEqual(t, resp.WaitSeconds, 4)
}

func TestClearDelay(t *testing.T) {
	h := newHarness(t)
	h.pacer.RecordSend("alice:server1", 5*time.Second)

	rec := h.do(t, "POST", "/clear_delay", map[string]string{
		"user_id":   "alice",
		"server_id": "server1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	decode(t, rec, &resp)
	assert.Equal(t, true, resp["cleared"])
	assert.True(t, h.pacer.CanSend("alice:server1").Allowed)

	rec = h.do(t, "POST", "/clear_delay", map[string]string{
		"user_id":   "alice",
		"server_id": "server1",
	})
	decode(t, rec, &resp)
	assert.Equal(t, false, resp["cleared"])
}

func TestCacheStatusAll(t *testing.T) {
	h := newHarness(t)
	h.cache.Put("alice:server1", auth.Credential{ExpiresAt: time.Now().Add(time.Hour)})
	h.cache.Put("bob:server2", auth.Credential{ExpiresAt: time.Now().Add(-time.Hour)})

	rec := h.do(t, "GET", "/cache/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var all map[string]auth.CacheStatus
	decode(t, rec, &all)
	require.Len(t, all, 2)
	assert.True(t, all["alice:server1"].Exists)
	require.NotNil(t, all["bob:server2"].IsExpired)
	assert.True(t, *all["bob:server2"].IsExpired)
}

func TestInvalidJSONBody(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest("POST", "/expired_token", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_")
}
