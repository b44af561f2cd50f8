package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryScope wraps a pooled connection that has a session statement timeout
// applied, and ensures the timeout is reset before the connection is reused.
type QueryScope struct {
	Conn *pgxpool.Conn
}

// Close resets the statement timeout and releases the connection to the pool.
// This MUST be called so the timeout does not leak to the next borrower.
func (s *QueryScope) Close() {
	if s.Conn == nil {
		return
	}
	_, _ = s.Conn.Exec(context.Background(), "RESET statement_timeout")
	s.Conn.Release()
}

// WithStatementTimeout acquires a connection whose statements are cancelled by
// the server after timeout. A non-positive timeout leaves the server default.
// The returned QueryScope MUST be closed with defer scope.Close().
func (db *DB) WithStatementTimeout(ctx context.Context, timeout time.Duration) (*QueryScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		_, err = conn.Exec(ctx, "SELECT set_config('statement_timeout', $1, false)",
			fmt.Sprintf("%dms", timeout.Milliseconds()))
		if err != nil {
			conn.Release()
			return nil, err
		}
	}

	return &QueryScope{Conn: conn}, nil
}
