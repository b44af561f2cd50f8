package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/incident-atlas/pkg/models"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// canonical returns a fully populated row; tests override what they need.
func canonical(eventID string) models.CanonicalRecord {
	return models.CanonicalRecord{
		EventID:    eventID,
		Year:       intPtr(2015),
		Month:      intPtr(6),
		Day:        intPtr(12),
		Country:    "Iraq",
		Region:     "Middle East & North Africa",
		State:      "Baghdad",
		City:       "Baghdad",
		Latitude:   floatPtr(33.3),
		Longitude:  floatPtr(44.4),
		AttackType: "Bombing/Explosion",
		Killed:     int64Ptr(1),
		Wounded:    int64Ptr(2),
		Target:     "Market",
		TargetType: "Business",
		Summary:    models.UnknownValue,
		Group:      "Group A",
		WeaponType: "Explosives",
		Motive:     models.UnknownValue,
	}
}

func TestExtractEntities_DedupesByKeyInFirstSeenOrder(t *testing.T) {
	a := canonical("1")
	b := canonical("2")
	b.Group = "Group B"
	b.AttackType = "Armed Assault"
	c := canonical("3")
	c.Group = "Group A"
	c.City = "Mosul"
	c.Latitude = floatPtr(36.3)

	tables := ExtractEntities([]models.CanonicalRecord{a, b, c})

	require.Len(t, tables.Groups, 2)
	assert.Equal(t, models.Group{ID: 1, Name: "Group A"}, tables.Groups[0])
	assert.Equal(t, models.Group{ID: 2, Name: "Group B"}, tables.Groups[1])

	require.Len(t, tables.AttackTypes, 2)
	assert.Equal(t, "Bombing/Explosion", tables.AttackTypes[0].Name)
	assert.Equal(t, int64(2), tables.AttackTypes[1].ID)

	require.Len(t, tables.Regions, 2, "a different city is a different region key")
	assert.Equal(t, "Baghdad", tables.Regions[0].City)
	assert.Equal(t, "Mosul", tables.Regions[1].City)

	assert.Len(t, tables.Targets, 1)
	assert.Len(t, tables.WeaponTypes, 1)

	id, ok := tables.GroupID("Group B")
	require.True(t, ok)
	assert.Equal(t, int64(2), id)

	_, ok = tables.GroupID("Group C")
	assert.False(t, ok)
}

func TestExtractEntities_RegionKeepsFirstCoordinates(t *testing.T) {
	a := canonical("1")
	b := canonical("2")
	b.Latitude = floatPtr(0)
	b.Longitude = nil

	tables := ExtractEntities([]models.CanonicalRecord{a, b})

	require.Len(t, tables.Regions, 1)
	require.NotNil(t, tables.Regions[0].Latitude)
	assert.InDelta(t, 33.3, *tables.Regions[0].Latitude, 1e-9)
	require.NotNil(t, tables.Regions[0].Longitude)
	assert.InDelta(t, 44.4, *tables.Regions[0].Longitude, 1e-9)
}

func TestExtractEntities_DistinctRegionTuples(t *testing.T) {
	var rows []models.CanonicalRecord
	cities := []string{"Lima", "Cusco", "Lima", "Arequipa", "Cusco", "Lima"}
	for i, city := range cities {
		r := canonical(string(rune('a' + i)))
		r.Country = "Peru"
		r.Region = "South America"
		r.City = city
		rows = append(rows, r)
	}

	tables := ExtractEntities(rows)

	assert.Len(t, tables.Regions, 3)
	seen := make(map[models.RegionKey]bool)
	for i, r := range tables.Regions {
		assert.Equal(t, int64(i+1), r.ID)
		assert.False(t, seen[r.Key()], "duplicate region key %v", r.Key())
		seen[r.Key()] = true
	}
}

func TestExtractEntities_TargetKeyIncludesType(t *testing.T) {
	a := canonical("1")
	b := canonical("2")
	b.TargetType = "Government (General)"

	tables := ExtractEntities([]models.CanonicalRecord{a, b})

	require.Len(t, tables.Targets, 2)
	id, ok := tables.TargetID(models.TargetKey{Name: "Market", Type: "Government (General)"})
	require.True(t, ok)
	assert.Equal(t, int64(2), id)
}

func TestExtractEntities_Empty(t *testing.T) {
	tables := ExtractEntities(nil)

	assert.Empty(t, tables.Regions)
	assert.Empty(t, tables.Groups)
	_, ok := tables.AttackTypeID("Bombing/Explosion")
	assert.False(t, ok)
}
