package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/answerdock/answerdock/internal/ingest"
	"github.com/answerdock/answerdock/internal/log"
)

// MaxIngestBytes bounds one ingestion request body.
const MaxIngestBytes = 16 << 20 // 16 MiB

// Ingester accepts document text. Satisfied by ingest.Service.
type Ingester interface {
	IngestText(ctx context.Context, text, source, page, location string) (int, error)
	IngestPages(ctx context.Context, pages []ingest.Page, source, location string) (int, error)
}

// IngestHandler handles the document ingestion endpoint.
type IngestHandler struct {
	service Ingester
	logger  log.Logger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(service Ingester, logger log.Logger) *IngestHandler {
	return &IngestHandler{service: service, logger: logger}
}

// RegisterRoutes registers ingest routes on the given mux.
func (h *IngestHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ingest", h.ingest)
}

// IngestPage is one page of a multi-page ingestion request.
type IngestPage struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// IngestRequest is the request body for POST /api/ingest. Exactly one
// of Text or Pages must be set.
type IngestRequest struct {
	Source   string       `json:"source"`
	Location string       `json:"location"`
	Text     string       `json:"text,omitempty"`
	Pages    []IngestPage `json:"pages,omitempty"`
}

// IngestResponse is the response body for POST /api/ingest.
type IngestResponse struct {
	Message     string `json:"message"`
	Source      string `json:"source"`
	ChunksAdded int    `json:"chunks_added"`
}

// ingest accepts extracted document text and adds it to the index.
// Re-ingesting an unchanged document succeeds with chunks_added 0.
func (h *IngestHandler) ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxIngestBytes)

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}

	req.Source = strings.TrimSpace(req.Source)
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "missing_source", "source is required")
		return
	}
	if req.Text == "" && len(req.Pages) == 0 {
		writeError(w, http.StatusBadRequest, "missing_text", "text or pages is required")
		return
	}
	if req.Text != "" && len(req.Pages) > 0 {
		writeError(w, http.StatusBadRequest, "ambiguous_body", "set either text or pages, not both")
		return
	}

	var (
		added int
		err   error
	)
	if req.Text != "" {
		added, err = h.service.IngestText(r.Context(), req.Text, req.Source, "", req.Location)
	} else {
		pages := make([]ingest.Page, len(req.Pages))
		for i, p := range req.Pages {
			pages[i] = ingest.Page{Number: p.Number, Text: p.Text}
		}
		added, err = h.service.IngestPages(r.Context(), pages, req.Source, req.Location)
	}
	if err != nil {
		if errors.Is(err, ingest.ErrNoText) {
			writeError(w, http.StatusBadRequest, "no_text", "document contains no usable text")
			return
		}
		h.logger.Error("ingestion failed", "source", req.Source, "error", err)
		writeError(w, http.StatusInternalServerError, "ingest_failed", "failed to ingest the document")
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		Message:     "ingestion successful",
		Source:      req.Source,
		ChunksAdded: added,
	})
}
