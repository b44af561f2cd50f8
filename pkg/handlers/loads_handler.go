package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/incident-atlas/pkg/models"
	"github.com/ekaya-inc/incident-atlas/pkg/repositories"
)

// LoadRunsResponse for GET /api/loads
type LoadRunsResponse struct {
	Runs []*models.LoadReport `json:"runs"`
}

// LoadsHandler exposes the pipeline run history.
type LoadsHandler struct {
	runs   repositories.LoadRunRepository
	logger *zap.Logger
}

// NewLoadsHandler creates a new loads handler.
func NewLoadsHandler(runs repositories.LoadRunRepository, logger *zap.Logger) *LoadsHandler {
	return &LoadsHandler{
		runs:   runs,
		logger: logger,
	}
}

// RegisterRoutes registers the loads handler's routes on the given mux.
func (h *LoadsHandler) RegisterRoutes(mux *http.ServeMux, queryMiddleware QueryMiddleware) {
	mux.HandleFunc("GET /api/loads", queryMiddleware(h.List))
}

// List handles GET /api/loads?limit=
func (h *LoadsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := ParseLimit(w, r, h.logger)
	if !ok {
		return
	}

	runs, err := h.runs.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list load runs", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "query_failed", "Failed to list load runs"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if runs == nil {
		runs = []*models.LoadReport{}
	}

	if err := WriteJSON(w, http.StatusOK, LoadRunsResponse{Runs: runs}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
