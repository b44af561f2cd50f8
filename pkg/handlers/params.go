package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/incident-atlas/pkg/apperrors"
)

// ParseLimit reads the optional "limit" query parameter. A missing value
// yields 0, which each query maps to its own default. Returns false on error
// (after writing an error response).
func ParseLimit(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_limit", apperrors.ErrInvalidQueryLimit.Error()); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return 0, false
	}
	return limit, true
}

// ParseRegion reads the optional "region" query parameter.
func ParseRegion(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("region"))
}
