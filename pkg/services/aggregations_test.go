package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/incident-atlas/pkg/models"
)

func strPtr(s string) *string { return &s }

func fact(id, region string, group *string, attackType string, killed, wounded *int64) *models.IncidentFact {
	return &models.IncidentFact{
		EventID:    id,
		Region:     region,
		Group:      group,
		AttackType: attackType,
		Killed:     killed,
		Wounded:    wounded,
	}
}

func feed(acc factAccumulator, facts ...*models.IncidentFact) {
	for _, f := range facts {
		acc.add(f)
	}
}

func TestAttackTypeSeverity_WeightsKilledTwice(t *testing.T) {
	acc := newAttackTypeAccumulator()
	feed(acc,
		fact("1", "South Asia", nil, "Armed Assault", int64Ptr(1), int64Ptr(1)),
		fact("2", "South Asia", nil, "Bombing/Explosion", int64Ptr(0), int64Ptr(4)),
		fact("3", "South Asia", nil, "Armed Assault", int64Ptr(2), nil),
	)

	rows := acc.result(0)
	require.Len(t, rows, 2)

	assert.Equal(t, "Armed Assault", rows[0].AttackType)
	assert.Equal(t, int64(2), rows[0].TotalAttacks)
	assert.Equal(t, int64(3), *rows[0].TotalKilled)
	assert.Equal(t, int64(1), *rows[0].TotalWounded)
	assert.Equal(t, int64(7), *rows[0].SeverityScore)

	assert.Equal(t, "Bombing/Explosion", rows[1].AttackType)
	assert.Equal(t, int64(4), *rows[1].SeverityScore)
}

func TestAttackTypeSeverity_NullSeveritySortsLast(t *testing.T) {
	acc := newAttackTypeAccumulator()
	feed(acc,
		fact("1", "South Asia", nil, "Hijacking", nil, nil),
		fact("2", "South Asia", nil, "Armed Assault", int64Ptr(0), nil),
		fact("3", "South Asia", nil, "Bombing/Explosion", nil, int64Ptr(1)),
	)

	rows := acc.result(0)
	require.Len(t, rows, 3)
	assert.Equal(t, "Bombing/Explosion", rows[0].AttackType)
	assert.Equal(t, "Armed Assault", rows[1].AttackType)
	assert.Equal(t, "Hijacking", rows[2].AttackType)

	assert.Nil(t, rows[2].SeverityScore)
	assert.Nil(t, rows[2].TotalKilled)
	assert.Nil(t, rows[2].TotalWounded)
	assert.Equal(t, int64(1), rows[2].TotalAttacks)

	// Only wounded was reported for bombings.
	assert.Nil(t, rows[0].TotalKilled)
	assert.Equal(t, int64(1), *rows[0].TotalWounded)
}

func TestAttackTypeSeverity_Limit(t *testing.T) {
	acc := newAttackTypeAccumulator()
	feed(acc,
		fact("1", "r", nil, "A", int64Ptr(1), nil),
		fact("2", "r", nil, "B", int64Ptr(3), nil),
		fact("3", "r", nil, "C", int64Ptr(2), nil),
	)

	rows := acc.result(2)
	require.Len(t, rows, 2)
	assert.Equal(t, "B", rows[0].AttackType)
	assert.Equal(t, "C", rows[1].AttackType)
}

func TestRegionSeverity_AveragesCoalescedSeverity(t *testing.T) {
	acc := newRegionSeverityAccumulator()
	feed(acc,
		fact("1", "Western Europe", nil, "A", int64Ptr(2), nil),
		fact("2", "Western Europe", nil, "A", nil, int64Ptr(3)),
		fact("3", "Atlantis", nil, "A", int64Ptr(5), int64Ptr(0)),
	)

	rows := acc.result(0)
	require.Len(t, rows, 2)

	assert.Equal(t, "Atlantis", rows[0].Region)
	assert.InDelta(t, 10.0, rows[0].AvgSeverityScorePerEvent, 1e-9)
	assert.Nil(t, rows[0].Location)

	assert.Equal(t, "Western Europe", rows[1].Region)
	assert.Equal(t, int64(2), rows[1].TotalAttacks)
	assert.InDelta(t, 3.5, rows[1].AvgSeverityScorePerEvent, 1e-9)
	require.NotNil(t, rows[1].Location)
	assert.Equal(t, models.Coordinate{Lat: 48.8566, Lng: 2.3522}, *rows[1].Location)
}

func TestDeadliestGroups_EqualWeights(t *testing.T) {
	acc := newGroupCasualtyAccumulator()
	feed(acc,
		fact("1", "r", strPtr("A"), "x", int64Ptr(5), int64Ptr(1)),
		fact("2", "r", strPtr("B"), "x", int64Ptr(2), int64Ptr(10)),
		fact("3", "r", nil, "x", int64Ptr(100), nil),
	)

	rows := acc.result(0)
	require.Len(t, rows, 2)
	assert.Equal(t, models.GroupCasualties{GroupName: "B", TotalAttacks: 1, TotalCasualties: 12}, rows[0])
	assert.Equal(t, models.GroupCasualties{GroupName: "A", TotalAttacks: 1, TotalCasualties: 6}, rows[1])
}

func TestDeadliestGroups_DefaultLimitIncludesUnknown(t *testing.T) {
	acc := newGroupCasualtyAccumulator()
	for i, name := range []string{"A", "B", "C", "D", "E", "F", models.UnknownValue} {
		acc.add(fact("e", "r", strPtr(name), "x", int64Ptr(int64(i)), nil))
	}

	rows := acc.result(0)
	require.Len(t, rows, DefaultDeadliestGroupsLimit)
	assert.Equal(t, models.UnknownValue, rows[0].GroupName)
	assert.Equal(t, "F", rows[1].GroupName)
}

func TestActiveGroups_ExcludesUnknownAndBreaksTiesByName(t *testing.T) {
	acc := newActiveGroupsAccumulator()
	feed(acc,
		fact("1", "South Asia", strPtr("Zeta"), "x", nil, nil),
		fact("2", "South Asia", strPtr("Alpha"), "x", nil, nil),
		fact("3", "South Asia", strPtr(models.UnknownValue), "x", nil, nil),
		fact("4", "South Asia", strPtr(models.UnknownValue), "x", nil, nil),
		fact("5", "South Asia", strPtr("Mid"), "x", nil, nil),
		fact("6", "South Asia", strPtr("Mid"), "x", nil, nil),
		fact("7", "Atlantis", strPtr("Alpha"), "x", nil, nil),
		fact("8", "Atlantis", nil, "x", nil, nil),
	)

	out := acc.result(0)
	require.Len(t, out, 2)

	southAsia := out["South Asia"]
	assert.Equal(t, []models.GroupActivity{
		{GroupName: "Mid", AttackCount: 2},
		{GroupName: "Alpha", AttackCount: 1},
		{GroupName: "Zeta", AttackCount: 1},
	}, southAsia.TopGroups)
	require.NotNil(t, southAsia.Location)
	assert.Equal(t, 20.5937, southAsia.Location.Lat)

	atlantis := out["Atlantis"]
	assert.Nil(t, atlantis.Location)
	assert.Len(t, atlantis.TopGroups, 1)

	limited := acc.result(1)
	assert.Equal(t, []models.GroupActivity{{GroupName: "Mid", AttackCount: 2}}, limited["South Asia"].TopGroups)
}

func TestActiveGroups_OnlyUnknownGroupsYieldsNoRegion(t *testing.T) {
	acc := newActiveGroupsAccumulator()
	acc.add(fact("1", "South Asia", strPtr(models.UnknownValue), "x", nil, nil))
	assert.Empty(t, acc.result(0))
}

func TestCorrelation_SingleEventIsZero(t *testing.T) {
	acc := newCorrelationAccumulator()
	acc.add(fact("1", "East Asia", nil, "x", int64Ptr(3), int64Ptr(1)))

	out := acc.result()
	require.Contains(t, out, "East Asia")
	stats := out["East Asia"].Stats
	assert.Equal(t, int64(1), stats.TotalEvents)
	assert.Equal(t, int64(4), stats.TotalCasualties)
	assert.InDelta(t, 4.0, stats.AvgCasualties, 1e-9)
	assert.Equal(t, 0.0, stats.CorrelationScore)
	assert.Equal(t, models.Coordinate{Lat: 35.8617, Lng: 104.1954}, out["East Asia"].Location)
}

func TestCorrelation_SkipsRegionsWithoutCoordinates(t *testing.T) {
	acc := newCorrelationAccumulator()
	acc.add(fact("1", "Atlantis", nil, "x", int64Ptr(3), nil))
	assert.Empty(t, acc.result())
}

func TestCorrelation_IncreasingSeries(t *testing.T) {
	acc := newCorrelationAccumulator()
	for i := int64(0); i < 4; i++ {
		acc.add(fact("e", "South America", nil, "x", int64Ptr(i), nil))
	}

	stats := acc.result()["South America"].Stats
	assert.Equal(t, int64(4), stats.TotalEvents)
	assert.Equal(t, int64(6), stats.TotalCasualties)
	assert.InDelta(t, 1.5, stats.AvgCasualties, 1e-9)
	assert.InDelta(t, 1.0, stats.CorrelationScore, 1e-9)
}

func TestSequenceCorrelation(t *testing.T) {
	tests := []struct {
		name string
		ys   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{7}, 0},
		{"constant", []float64{2, 2, 2}, 0},
		{"decreasing", []float64{9, 6, 3}, -1},
		{"flat then spike", []float64{0, 0, 0, 4}, 0.7745966692414834},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, sequenceCorrelation(tt.ys), 1e-9)
		})
	}
}

func TestRegionLocation(t *testing.T) {
	c, ok := RegionLocation("Central Asia")
	require.True(t, ok)
	assert.Equal(t, models.Coordinate{Lat: 41.2044, Lng: 74.7661}, c)

	_, ok = RegionLocation("Atlantis")
	assert.False(t, ok)
}
