package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/incident-atlas/pkg/database"
	"github.com/ekaya-inc/incident-atlas/pkg/models"
)

// DefaultLoadRunLimit is the number of runs returned when no limit is given.
const DefaultLoadRunLimit = 20

// LoadRunRepository provides data access for the pipeline run history.
type LoadRunRepository interface {
	// Record inserts the report of a finished run, successful or not.
	Record(ctx context.Context, report *models.LoadReport) error

	// ListRecent returns the newest runs first. limit <= 0 uses DefaultLoadRunLimit.
	ListRecent(ctx context.Context, limit int) ([]*models.LoadReport, error)
}

type loadRunRepository struct {
	db *database.DB
}

// NewLoadRunRepository creates a new LoadRunRepository.
func NewLoadRunRepository(db *database.DB) LoadRunRepository {
	return &loadRunRepository{db: db}
}

var _ LoadRunRepository = (*loadRunRepository)(nil)

func (r *loadRunRepository) conn(ctx context.Context) querier {
	if scope, ok := database.GetQueryScope(ctx); ok {
		return scope.Conn
	}
	return r.db.Pool
}

func (r *loadRunRepository) Record(ctx context.Context, report *models.LoadReport) error {
	samples := report.RejectionSamples
	if samples == nil {
		samples = []string{}
	}
	samplesJSON, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("failed to marshal rejection_samples: %w", err)
	}

	var errText *string
	if report.Error != "" {
		errText = &report.Error
	}

	query := `
		INSERT INTO load_runs (
			run_id, source_path, status, error, started_at, duration_ms,
			rows_read, candidate_facts, rejected_missing_id, rejected_invalid_date,
			rejected_unresolved, duplicates_dropped, incidents_loaded, rejection_samples
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.db.Exec(ctx, query,
		report.RunID,
		report.SourcePath,
		report.Status,
		errText,
		report.StartedAt,
		report.Duration.Milliseconds(),
		report.RowsRead,
		report.CandidateFacts,
		report.RejectedMissingID,
		report.RejectedBadDate,
		report.RejectedUnresolved,
		report.DuplicatesDropped,
		report.Loaded.Incidents,
		samplesJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to record load run: %w", err)
	}
	return nil
}

func (r *loadRunRepository) ListRecent(ctx context.Context, limit int) ([]*models.LoadReport, error) {
	if limit <= 0 {
		limit = DefaultLoadRunLimit
	}

	query := `
		SELECT run_id, source_path, status, COALESCE(error, ''), started_at, duration_ms,
			rows_read, candidate_facts, rejected_missing_id, rejected_invalid_date,
			rejected_unresolved, duplicates_dropped, incidents_loaded, rejection_samples
		FROM load_runs
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := r.conn(ctx).Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query load runs: %w", err)
	}
	defer rows.Close()

	runs, err := pgx.CollectRows(rows, scanLoadRun)
	if err != nil {
		return nil, fmt.Errorf("failed to scan load runs: %w", err)
	}
	return runs, nil
}

func scanLoadRun(row pgx.CollectableRow) (*models.LoadReport, error) {
	var (
		run         models.LoadReport
		durationMS  int64
		samplesJSON []byte
	)
	err := row.Scan(
		&run.RunID,
		&run.SourcePath,
		&run.Status,
		&run.Error,
		&run.StartedAt,
		&durationMS,
		&run.RowsRead,
		&run.CandidateFacts,
		&run.RejectedMissingID,
		&run.RejectedBadDate,
		&run.RejectedUnresolved,
		&run.DuplicatesDropped,
		&run.Loaded.Incidents,
		&samplesJSON,
	)
	if err != nil {
		return nil, err
	}

	run.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal(samplesJSON, &run.RejectionSamples); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rejection_samples: %w", err)
	}
	if len(run.RejectionSamples) == 0 {
		run.RejectionSamples = nil
	}
	return &run, nil
}
