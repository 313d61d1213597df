package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/answerdock/answerdock/internal/log"
)

// SessionResetter discards per-session state. Satisfied by
// session.Store.
type SessionResetter interface {
	Reset(id string)
}

// SessionHandler handles session management endpoints.
type SessionHandler struct {
	sessions SessionResetter
	logger   log.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions SessionResetter, logger log.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions/reset", h.reset)
}

// ResetRequest is the request body for POST /api/sessions/reset.
type ResetRequest struct {
	SessionID string `json:"session_id"`
}

// reset discards a session's memory and scratch state. Resetting an
// unknown session succeeds, the result is the same.
func (h *SessionHandler) reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "missing_session_id", "session_id is required")
		return
	}

	h.sessions.Reset(req.SessionID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "session_id": req.SessionID})
}
