package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/incident-atlas/pkg/apperrors"
	"github.com/ekaya-inc/incident-atlas/pkg/database"
	"github.com/ekaya-inc/incident-atlas/pkg/models"
)

// DefaultBatchSize is the number of rows written per COPY chunk when the
// caller does not choose one.
const DefaultBatchSize = 1000

// Load stages reported in apperrors.LoadTransactionError.
const (
	StageBegin  = "begin"
	StageDelete = "delete"
	StageInsert = "insert"
	StageCommit = "commit"
)

// SnapshotRepository persists a complete pipeline snapshot.
type SnapshotRepository interface {
	// ReplaceSnapshot deletes every incident and lookup row and writes the
	// snapshot in their place inside one transaction. Rows are copied in
	// chunks of batchSize (DefaultBatchSize when <= 0). On failure nothing is
	// changed and the error is an *apperrors.LoadTransactionError.
	ReplaceSnapshot(ctx context.Context, snapshot *models.Snapshot, batchSize int) (*models.LoadStats, error)
}

// snapshotRepository implements SnapshotRepository using PostgreSQL.
type snapshotRepository struct {
	db *database.DB
}

var _ SnapshotRepository = (*snapshotRepository)(nil)

// NewSnapshotRepository creates a new snapshot repository.
func NewSnapshotRepository(db *database.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Facts reference lookups, so they are deleted first and inserted last.
var deleteOrder = []string{"incidents", "regions", "groups", "attack_types", "targets", "weapon_types"}

var (
	regionColumns = []string{"id", "name", "country", "state", "city", "latitude", "longitude"}
	nameColumns   = []string{"id", "name"}
	targetColumns = []string{"id", "name", "type"}
)

var incidentColumns = []string{
	"event_id", "date", "region_id", "group_id", "attack_type_id", "target_id",
	"weapon_type_id", "killed", "wounded", "summary", "motive", "num_perpetrators",
}

func (r *snapshotRepository) ReplaceSnapshot(ctx context.Context, snapshot *models.Snapshot, batchSize int) (*models.LoadStats, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, &apperrors.LoadTransactionError{Stage: StageBegin, Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, table := range deleteOrder {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return nil, &apperrors.LoadTransactionError{
				Stage: StageDelete,
				Err:   fmt.Errorf("failed to clear %s: %w", table, err),
			}
		}
	}

	stats := &models.LoadStats{}
	writes := []struct {
		table   string
		columns []string
		rows    [][]any
		count   *int64
	}{
		{"regions", regionColumns, regionRows(snapshot.Regions), &stats.Regions},
		{"groups", nameColumns, groupRows(snapshot.Groups), &stats.Groups},
		{"attack_types", nameColumns, attackTypeRows(snapshot.AttackTypes), &stats.AttackTypes},
		{"targets", targetColumns, targetRows(snapshot.Targets), &stats.Targets},
		{"weapon_types", nameColumns, weaponTypeRows(snapshot.WeaponTypes), &stats.WeaponTypes},
		{"incidents", incidentColumns, incidentRows(snapshot.Incidents), &stats.Incidents},
	}

	for _, w := range writes {
		n, chunks, err := copyInChunks(ctx, tx, w.table, w.columns, w.rows, batchSize)
		if err != nil {
			return nil, &apperrors.LoadTransactionError{Stage: StageInsert + " " + w.table, Err: err}
		}
		*w.count = n
		stats.Chunks += chunks
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &apperrors.LoadTransactionError{Stage: StageCommit, Err: err}
	}

	return stats, nil
}

// copyInChunks streams rows into table with one COPY per chunk and returns
// the rows written and the number of chunks used.
func copyInChunks(ctx context.Context, tx pgx.Tx, table string, columns []string, rows [][]any, batchSize int) (int64, int, error) {
	var written int64
	chunks := 0
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))

		n, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{table},
			columns,
			pgx.CopyFromRows(rows[start:end]),
		)
		if err != nil {
			return written, chunks, fmt.Errorf("failed to copy rows %d-%d into %s: %w", start, end-1, table, err)
		}
		written += n
		chunks++
	}
	return written, chunks, nil
}

func regionRows(regions []models.Region) [][]any {
	rows := make([][]any, len(regions))
	for i, r := range regions {
		rows[i] = []any{r.ID, r.Name, r.Country, r.State, r.City, r.Latitude, r.Longitude}
	}
	return rows
}

func groupRows(groups []models.Group) [][]any {
	rows := make([][]any, len(groups))
	for i, g := range groups {
		rows[i] = []any{g.ID, g.Name}
	}
	return rows
}

func attackTypeRows(types []models.AttackType) [][]any {
	rows := make([][]any, len(types))
	for i, a := range types {
		rows[i] = []any{a.ID, a.Name}
	}
	return rows
}

func targetRows(targets []models.Target) [][]any {
	rows := make([][]any, len(targets))
	for i, t := range targets {
		rows[i] = []any{t.ID, t.Name, t.Type}
	}
	return rows
}

func weaponTypeRows(types []models.WeaponType) [][]any {
	rows := make([][]any, len(types))
	for i, w := range types {
		rows[i] = []any{w.ID, w.Name}
	}
	return rows
}

func incidentRows(incidents []models.Incident) [][]any {
	rows := make([][]any, len(incidents))
	for i, inc := range incidents {
		rows[i] = []any{
			inc.EventID, inc.Date, inc.RegionID, inc.GroupID, inc.AttackTypeID, inc.TargetID,
			inc.WeaponTypeID, inc.Killed, inc.Wounded, inc.Summary, inc.Motive, inc.NumPerpetrators,
		}
	}
	return rows
}
