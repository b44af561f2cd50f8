package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/incident-atlas/pkg/database"
	"github.com/ekaya-inc/incident-atlas/pkg/models"
)

// IncidentFactRepository streams joined incident rows to the aggregation layer.
type IncidentFactRepository interface {
	// ScanIncidentFacts calls fn for every incident matching filter, ordered
	// by event id. Returning an error from fn stops the scan and returns it.
	ScanIncidentFacts(ctx context.Context, filter models.FactFilter, fn func(*models.IncidentFact) error) error

	// CountIncidents returns the number of persisted incidents.
	CountIncidents(ctx context.Context) (int64, error)
}

// incidentFactRepository implements IncidentFactRepository using PostgreSQL.
type incidentFactRepository struct {
	db *database.DB
}

var _ IncidentFactRepository = (*incidentFactRepository)(nil)

// NewIncidentFactRepository creates a new incident fact repository.
func NewIncidentFactRepository(db *database.DB) IncidentFactRepository {
	return &incidentFactRepository{db: db}
}

// querier is satisfied by both the pool and a request-scoped connection.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conn prefers the request-scoped connection set by database.WithQueryTimeout.
func (r *incidentFactRepository) conn(ctx context.Context) querier {
	if scope, ok := database.GetQueryScope(ctx); ok {
		return scope.Conn
	}
	return r.db.Pool
}

func (r *incidentFactRepository) ScanIncidentFacts(ctx context.Context, filter models.FactFilter, fn func(*models.IncidentFact) error) error {
	query := `
		SELECT i.event_id, r.name, g.name, a.name, i.killed, i.wounded
		FROM incidents i
		JOIN regions r ON r.id = i.region_id
		JOIN attack_types a ON a.id = i.attack_type_id
		LEFT JOIN groups g ON g.id = i.group_id
		WHERE ($1 = '' OR r.name = $1)
		ORDER BY i.event_id`

	rows, err := r.conn(ctx).Query(ctx, query, filter.Region)
	if err != nil {
		return fmt.Errorf("failed to query incident facts: %w", err)
	}
	defer rows.Close()

	var fact models.IncidentFact
	for rows.Next() {
		fact = models.IncidentFact{}
		if err := rows.Scan(&fact.EventID, &fact.Region, &fact.Group, &fact.AttackType, &fact.Killed, &fact.Wounded); err != nil {
			return fmt.Errorf("failed to scan incident fact: %w", err)
		}
		if err := fn(&fact); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating incident facts: %w", err)
	}

	return nil
}

func (r *incidentFactRepository) CountIncidents(ctx context.Context) (int64, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, "SELECT COUNT(*) FROM incidents").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count incidents: %w", err)
	}
	return n, nil
}
