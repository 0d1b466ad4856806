// ABOUTME: Administrative JSON endpoints for token cache and pacer state.
// ABOUTME: Operational side-channel for clearing and inspecting per-user state.
package admin

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/2389-research/tern/internal/auth"
	"github.com/2389-research/tern/internal/pacing"
)

// Handler serves the administrative endpoints.
type Handler struct {
	cache  *auth.Cache
	pacer  *pacing.Pacer
	logger *slog.Logger
}

// NewHandler creates an admin handler over the given cache and pacer.
func NewHandler(cache *auth.Cache, pacer *pacing.Pacer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{cache: cache, pacer: pacer, logger: logger}
}

// Register mounts the admin routes on the given router.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/expired_token", h.expireToken).Methods(http.MethodPost)
	r.HandleFunc("/get_token_cache", h.getTokenCache).Methods(http.MethodPost)
	r.HandleFunc("/get_delay_status", h.getDelayStatus).Methods(http.MethodPost)
	r.HandleFunc("/clear_delay", h.clearDelay).Methods(http.MethodPost)
	r.HandleFunc("/cache/status", h.cacheStatusAll).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Router returns a standalone router with the admin routes mounted.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.Register(r)
	return r
}

// identityRequest is the JSON body shared by the per-identity endpoints.
type identityRequest struct {
	UserID   string `json:"user_id"`
	ServerID string `json:"server_id"`
}

func (req identityRequest) key() string {
	return req.UserID + ":" + req.ServerID
}

// delayStatusResponse is the JSON shape of /get_delay_status.
type delayStatusResponse struct {
	Exists        bool   `json:"exists"`
	NextAllowedAt string `json:"next_allowed_at,omitempty"`
	DelaySeconds  int    `json:"delay_seconds,omitempty"`
	WaitSeconds   int    `json:"wait_seconds,omitempty"`
}

func (h *Handler) expireToken(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.ServerID == "" {
		writeError(w, http.StatusBadRequest, "user_id and server_id are required")
		return
	}

	cleared := h.cache.Invalidate(req.key())
	h.logger.Info("token cache entry cleared", "key", req.key(), "existed", cleared)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cleared":   cleared,
		"user_id":   req.UserID,
		"server_id": req.ServerID,
	})
}

func (h *Handler) getTokenCache(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, h.cache.Status(req.key()))
}

func (h *Handler) getDelayStatus(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	st := h.pacer.Status(req.key())
	resp := delayStatusResponse{Exists: st.Exists}
	if st.Exists {
		resp.NextAllowedAt = st.NextAllowed.Format("2006-01-02T15:04:05Z07:00")
		resp.DelaySeconds = int(st.Delay.Seconds())
		resp.WaitSeconds = int(math.Ceil(st.Wait.Seconds()))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) clearDelay(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cleared := h.pacer.Clear(req.key())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cleared":   cleared,
		"user_id":   req.UserID,
		"server_id": req.ServerID,
	})
}

func (h *Handler) cacheStatusAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.StatusAll())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
