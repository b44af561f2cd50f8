//go:build integration

package migrations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/incident-atlas/pkg/testhelpers"
)

// Test_001_IncidentSchema verifies migration 001 creates the six incident tables.
func Test_001_IncidentSchema(t *testing.T) {
	incidentDB := testhelpers.GetIncidentDB(t)
	ctx := context.Background()

	for _, table := range []string{"regions", "groups", "attack_types", "targets", "weapon_types", "incidents"} {
		var exists bool
		err := incidentDB.DB.Pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "table %s should exist", table)
	}

	// Mandatory foreign keys are NOT NULL, optional ones are nullable.
	rows, err := incidentDB.DB.Pool.Query(ctx, `
		SELECT column_name, is_nullable
		FROM information_schema.columns
		WHERE table_name = 'incidents'
		AND column_name IN ('region_id', 'attack_type_id', 'group_id', 'target_id', 'weapon_type_id')`)
	require.NoError(t, err)
	defer rows.Close()

	nullable := make(map[string]string)
	for rows.Next() {
		var column, isNullable string
		require.NoError(t, rows.Scan(&column, &isNullable))
		nullable[column] = isNullable
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, "NO", nullable["region_id"])
	assert.Equal(t, "NO", nullable["attack_type_id"])
	assert.Equal(t, "YES", nullable["group_id"])
	assert.Equal(t, "YES", nullable["target_id"])
	assert.Equal(t, "YES", nullable["weapon_type_id"])
}

// Test_001_RegionKeyIsUnique verifies the region uniqueness key is enforced.
func Test_001_RegionKeyIsUnique(t *testing.T) {
	incidentDB := testhelpers.GetIncidentDB(t)
	testhelpers.ResetIncidentTables(t, incidentDB)
	ctx := context.Background()

	_, err := incidentDB.DB.Exec(ctx, `
		INSERT INTO regions (id, name, country, state, city)
		VALUES (1, 'South Asia', 'India', 'Assam', 'Guwahati')`)
	require.NoError(t, err)

	_, err = incidentDB.DB.Exec(ctx, `
		INSERT INTO regions (id, name, country, state, city)
		VALUES (2, 'South Asia', 'India', 'Assam', 'Guwahati')`)
	require.Error(t, err)

	testhelpers.ResetIncidentTables(t, incidentDB)
}
