package database

import (
	"context"
)

type contextKey string

const (
	// QueryScopeKey is the context key for storing the request-scoped database connection.
	QueryScopeKey contextKey = "queryScope"
)

// GetQueryScope retrieves the request-scoped database connection from context.
// Returns nil and false if not present.
func GetQueryScope(ctx context.Context) (*QueryScope, bool) {
	scope, ok := ctx.Value(QueryScopeKey).(*QueryScope)
	return scope, ok
}

// SetQueryScope stores the request-scoped database connection in context.
func SetQueryScope(ctx context.Context, scope *QueryScope) context.Context {
	return context.WithValue(ctx, QueryScopeKey, scope)
}
