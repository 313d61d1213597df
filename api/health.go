package api

import (
	"net/http"

	"github.com/answerdock/answerdock/internal/log"
)

// ReadyChecker reports whether the corpus store is usable. Satisfied
// by index.Store via Count.
type ReadyChecker interface {
	Count() int
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	ready  ReadyChecker
	logger log.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(ready ReadyChecker, logger log.Logger) *HealthHandler {
	return &HealthHandler{ready: ready, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness returns 200 OK if the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness returns 200 OK once the index store is wired. An empty
// corpus is still ready, questions just get the ingest-first error.
func (h *HealthHandler) readiness(w http.ResponseWriter, _ *http.Request) {
	if h.ready == nil {
		h.logger.Error("readiness check failed, index store not configured")
		http.Error(w, "index store not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
