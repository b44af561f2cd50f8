package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/incident-atlas/pkg/models"
	"github.com/ekaya-inc/incident-atlas/pkg/services"
)

// QueryMiddleware wraps a handler that reads the incident store, typically
// database.WithQueryTimeout.
type QueryMiddleware func(http.HandlerFunc) http.HandlerFunc

// ============================================================================
// Response Types
// ============================================================================

// AttackTypesResponse for GET /api/analytics/top-attack-types
type AttackTypesResponse struct {
	AttackTypes []models.AttackTypeSeverity `json:"attack_types"`
}

// RegionSeverityResponse for GET /api/analytics/region-severity
type RegionSeverityResponse struct {
	Regions []models.RegionSeverity `json:"regions"`
}

// DeadliestGroupsResponse for GET /api/analytics/deadliest-groups
type DeadliestGroupsResponse struct {
	Groups []models.GroupCasualties `json:"groups"`
}

// ActiveGroupsResponse for GET /api/analytics/active-groups
type ActiveGroupsResponse struct {
	Regions map[string]models.ActiveGroupsInRegion `json:"regions"`
}

// CorrelationResponse for GET /api/analytics/correlation
type CorrelationResponse struct {
	Regions map[string]models.RegionCorrelation `json:"regions"`
}

// ============================================================================
// Handler
// ============================================================================

// AnalyticsHandler serves the aggregation queries over HTTP.
type AnalyticsHandler struct {
	analyticsService services.AnalyticsService
	summaryTimeout   time.Duration
	logger           *zap.Logger
}

// NewAnalyticsHandler creates a new analytics handler. summaryTimeout bounds
// the summary endpoint, which fans out over pooled connections.
func NewAnalyticsHandler(
	analyticsService services.AnalyticsService,
	summaryTimeout time.Duration,
	logger *zap.Logger,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		summaryTimeout:   summaryTimeout,
		logger:           logger,
	}
}

// RegisterRoutes registers the analytics handler's routes on the given mux.
func (h *AnalyticsHandler) RegisterRoutes(mux *http.ServeMux, queryMiddleware QueryMiddleware) {
	base := "/api/analytics"

	mux.HandleFunc("GET "+base+"/top-attack-types", queryMiddleware(h.TopAttackTypes))
	mux.HandleFunc("GET "+base+"/region-severity", queryMiddleware(h.RegionSeverity))
	mux.HandleFunc("GET "+base+"/deadliest-groups", queryMiddleware(h.DeadliestGroups))
	mux.HandleFunc("GET "+base+"/active-groups", queryMiddleware(h.ActiveGroups))
	mux.HandleFunc("GET "+base+"/correlation", queryMiddleware(h.Correlation))
	// A scoped connection cannot serve concurrent queries.
	mux.HandleFunc("GET "+base+"/summary", h.Summary)
}

// TopAttackTypes handles GET /api/analytics/top-attack-types?limit=
func (h *AnalyticsHandler) TopAttackTypes(w http.ResponseWriter, r *http.Request) {
	limit, ok := ParseLimit(w, r, h.logger)
	if !ok {
		return
	}

	rows, err := h.analyticsService.TopAttackTypesBySeverity(r.Context(), limit)
	if err != nil {
		h.queryFailed(w, "top-attack-types", err)
		return
	}

	h.respond(w, AttackTypesResponse{AttackTypes: rows})
}

// RegionSeverity handles GET /api/analytics/region-severity?limit=
func (h *AnalyticsHandler) RegionSeverity(w http.ResponseWriter, r *http.Request) {
	limit, ok := ParseLimit(w, r, h.logger)
	if !ok {
		return
	}

	rows, err := h.analyticsService.RegionSeverityStats(r.Context(), limit)
	if err != nil {
		h.queryFailed(w, "region-severity", err)
		return
	}

	h.respond(w, RegionSeverityResponse{Regions: rows})
}

// DeadliestGroups handles GET /api/analytics/deadliest-groups?limit=
func (h *AnalyticsHandler) DeadliestGroups(w http.ResponseWriter, r *http.Request) {
	limit, ok := ParseLimit(w, r, h.logger)
	if !ok {
		return
	}

	rows, err := h.analyticsService.DeadliestGroups(r.Context(), limit)
	if err != nil {
		h.queryFailed(w, "deadliest-groups", err)
		return
	}

	h.respond(w, DeadliestGroupsResponse{Groups: rows})
}

// ActiveGroups handles GET /api/analytics/active-groups?region=&limit=
func (h *AnalyticsHandler) ActiveGroups(w http.ResponseWriter, r *http.Request) {
	limit, ok := ParseLimit(w, r, h.logger)
	if !ok {
		return
	}

	regions, err := h.analyticsService.MostActiveGroupsByRegion(r.Context(), ParseRegion(r), limit)
	if err != nil {
		h.queryFailed(w, "active-groups", err)
		return
	}

	h.respond(w, ActiveGroupsResponse{Regions: regions})
}

// Correlation handles GET /api/analytics/correlation?region=
func (h *AnalyticsHandler) Correlation(w http.ResponseWriter, r *http.Request) {
	regions, err := h.analyticsService.RegionCorrelationStats(r.Context(), ParseRegion(r))
	if err != nil {
		h.queryFailed(w, "correlation", err)
		return
	}

	h.respond(w, CorrelationResponse{Regions: regions})
}

// Summary handles GET /api/analytics/summary
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.summaryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.summaryTimeout)
		defer cancel()
	}

	summary, err := h.analyticsService.Summary(ctx)
	if err != nil {
		h.queryFailed(w, "summary", err)
		return
	}

	h.respond(w, summary)
}

func (h *AnalyticsHandler) respond(w http.ResponseWriter, data any) {
	if err := WriteJSON(w, http.StatusOK, data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *AnalyticsHandler) queryFailed(w http.ResponseWriter, query string, err error) {
	h.logger.Error("Analytics query failed", zap.String("query", query), zap.Error(err))
	if err := ErrorResponse(w, http.StatusInternalServerError, "query_failed", "Failed to run "+query+" query"); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
