//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/incident-atlas/pkg/models"
	"github.com/ekaya-inc/incident-atlas/pkg/testhelpers"
)

func TestLoadRunRepository_RecordAndListRecent(t *testing.T) {
	incidentDB := testhelpers.GetIncidentDB(t)
	testhelpers.ResetIncidentTables(t, incidentDB)
	repo := NewLoadRunRepository(incidentDB.DB)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	older := &models.LoadReport{
		RunID:             uuid.New(),
		SourcePath:        "data/gtd.csv",
		Status:            models.LoadRunSucceeded,
		StartedAt:         base,
		Duration:          1500 * time.Millisecond,
		RowsRead:          10,
		CandidateFacts:    9,
		DuplicatesDropped: 1,
		RejectedMissingID: 2,
		RejectionSamples:  []string{"row 3: invalid date"},
		Loaded:            models.LoadStats{Incidents: 8},
	}
	newer := &models.LoadReport{
		RunID:     uuid.New(),
		Status:    models.LoadRunFailed,
		Error:     "missing required columns: region_txt",
		StartedAt: base.Add(time.Hour),
		RowsRead:  4,
	}
	require.NoError(t, repo.Record(ctx, older))
	require.NoError(t, repo.Record(ctx, newer))

	runs, err := repo.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, newer.RunID, runs[0].RunID)
	assert.Equal(t, models.LoadRunFailed, runs[0].Status)
	assert.Equal(t, newer.Error, runs[0].Error)
	assert.Nil(t, runs[0].RejectionSamples)

	got := runs[1]
	assert.Equal(t, older.RunID, got.RunID)
	assert.Equal(t, "data/gtd.csv", got.SourcePath)
	assert.Empty(t, got.Error)
	assert.True(t, base.Equal(got.StartedAt))
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.Equal(t, 9, got.CandidateFacts)
	assert.Equal(t, 1, got.DuplicatesDropped)
	assert.Equal(t, 2, got.RejectedMissingID)
	assert.Equal(t, int64(8), got.Loaded.Incidents)
	assert.Equal(t, []string{"row 3: invalid date"}, got.RejectionSamples)

	limited, err := repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, newer.RunID, limited[0].RunID)
}

func TestLoadRunRepository_SurvivesSnapshotReplace(t *testing.T) {
	incidentDB := testhelpers.GetIncidentDB(t)
	testhelpers.ResetIncidentTables(t, incidentDB)
	ctx := context.Background()

	runs := NewLoadRunRepository(incidentDB.DB)
	require.NoError(t, runs.Record(ctx, &models.LoadReport{
		RunID:     uuid.New(),
		Status:    models.LoadRunSucceeded,
		StartedAt: time.Now().UTC(),
	}))

	_, err := NewSnapshotRepository(incidentDB.DB).ReplaceSnapshot(ctx, sampleSnapshot(3), 0)
	require.NoError(t, err)

	assert.Equal(t, int64(1), countRows(t, incidentDB, "load_runs"))
}
