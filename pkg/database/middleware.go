package database

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// WithQueryTimeout creates middleware that gives each request its own
// connection with the given statement timeout. Repositories pick the
// connection up from the request context. The connection is released after
// the handler returns.
func WithQueryTimeout(db *DB, timeout time.Duration, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			scope, err := db.WithStatementTimeout(r.Context(), timeout)
			if err != nil {
				logger.Error("Failed to acquire query connection",
					zap.String("path", r.URL.Path),
					zap.Duration("statement_timeout", timeout),
					zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, "database_unavailable", "Incident store unavailable")
				return
			}
			defer scope.Close()

			ctx := SetQueryScope(r.Context(), scope)
			next(w, r.WithContext(ctx))
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
