package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/answerdock/answerdock/internal/answer"
	"github.com/answerdock/answerdock/internal/index"
	"github.com/answerdock/answerdock/internal/log"
)

// MaxQueryLength bounds the question size.
const MaxQueryLength = 4000

// Answerer runs one question-answering turn. Satisfied by
// answer.Engine.
type Answerer interface {
	Answer(ctx context.Context, query, sessionID string) (*answer.Answer, error)
}

// ChatHandler handles the question answering endpoint.
type ChatHandler struct {
	engine Answerer
	logger log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(engine Answerer, logger log.Logger) *ChatHandler {
	return &ChatHandler{engine: engine, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.chat)
}

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// ChatResponse is the response body for POST /api/chat.
type ChatResponse struct {
	Answer    *answer.Answer `json:"answer"`
	SessionID string         `json:"session_id"`
}

// chat answers one question. A missing session_id mints a fresh
// session, returned so the client can continue the conversation.
func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "query is required")
		return
	}
	if len(req.Query) > MaxQueryLength {
		writeError(w, http.StatusBadRequest, "query_too_long", "query exceeds maximum length")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	ans, err := h.engine.Answer(r.Context(), req.Query, req.SessionID)
	if err != nil {
		if errors.Is(err, index.ErrIndexUnavailable) {
			writeError(w, http.StatusConflict, "index_unavailable",
				"no documents ingested yet, ingest documents first")
			return
		}
		h.logger.Error("answering failed", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "answer_failed", "failed to answer the question")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Answer: ans, SessionID: req.SessionID})
}
