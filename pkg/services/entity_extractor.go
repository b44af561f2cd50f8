package services

import (
	"github.com/ekaya-inc/incident-atlas/pkg/models"
)

// lookupIndex assigns dense surrogate ids, starting at 1, to distinct keys
// in the order they are first seen.
type lookupIndex[K comparable] struct {
	ids   map[K]int64
	order []K
}

func newLookupIndex[K comparable]() *lookupIndex[K] {
	return &lookupIndex[K]{ids: make(map[K]int64)}
}

// add registers key and reports whether it was new.
func (l *lookupIndex[K]) add(key K) (int64, bool) {
	if id, ok := l.ids[key]; ok {
		return id, false
	}
	l.order = append(l.order, key)
	id := int64(len(l.order))
	l.ids[key] = id
	return id, true
}

func (l *lookupIndex[K]) get(key K) (int64, bool) {
	id, ok := l.ids[key]
	return id, ok
}

// LookupTables holds the five extracted lookup dimensions together with the
// key to id maps used to resolve fact rows. Build it with ExtractEntities and
// pass it to ResolveFacts.
type LookupTables struct {
	Regions     []models.Region
	Groups      []models.Group
	AttackTypes []models.AttackType
	Targets     []models.Target
	WeaponTypes []models.WeaponType

	regionIDs     *lookupIndex[models.RegionKey]
	groupIDs      *lookupIndex[string]
	attackTypeIDs *lookupIndex[string]
	targetIDs     *lookupIndex[models.TargetKey]
	weaponTypeIDs *lookupIndex[string]
}

// RegionID resolves a region uniqueness key.
func (t *LookupTables) RegionID(key models.RegionKey) (int64, bool) { return t.regionIDs.get(key) }

// GroupID resolves a group name.
func (t *LookupTables) GroupID(name string) (int64, bool) { return t.groupIDs.get(name) }

// AttackTypeID resolves an attack type name.
func (t *LookupTables) AttackTypeID(name string) (int64, bool) { return t.attackTypeIDs.get(name) }

// TargetID resolves a target uniqueness key.
func (t *LookupTables) TargetID(key models.TargetKey) (int64, bool) { return t.targetIDs.get(key) }

// WeaponTypeID resolves a weapon type name.
func (t *LookupTables) WeaponTypeID(name string) (int64, bool) { return t.weaponTypeIDs.get(name) }

// ExtractEntities derives the five lookup dimensions from the canonical rows.
// Ids are dense and follow first appearance in row order, so the same input
// order always yields the same numbering. Rows sharing a region key collapse
// to one region that keeps the coordinates of the first such row.
func ExtractEntities(rows []models.CanonicalRecord) *LookupTables {
	t := &LookupTables{
		regionIDs:     newLookupIndex[models.RegionKey](),
		groupIDs:      newLookupIndex[string](),
		attackTypeIDs: newLookupIndex[string](),
		targetIDs:     newLookupIndex[models.TargetKey](),
		weaponTypeIDs: newLookupIndex[string](),
	}

	for i := range rows {
		row := &rows[i]

		if id, isNew := t.regionIDs.add(row.RegionKey()); isNew {
			t.Regions = append(t.Regions, models.Region{
				ID:        id,
				Name:      row.Region,
				Country:   row.Country,
				State:     row.State,
				City:      row.City,
				Latitude:  row.Latitude,
				Longitude: row.Longitude,
			})
		}
		if id, isNew := t.groupIDs.add(row.Group); isNew {
			t.Groups = append(t.Groups, models.Group{ID: id, Name: row.Group})
		}
		if id, isNew := t.attackTypeIDs.add(row.AttackType); isNew {
			t.AttackTypes = append(t.AttackTypes, models.AttackType{ID: id, Name: row.AttackType})
		}
		if id, isNew := t.targetIDs.add(row.TargetKey()); isNew {
			t.Targets = append(t.Targets, models.Target{ID: id, Name: row.Target, Type: row.TargetType})
		}
		if id, isNew := t.weaponTypeIDs.add(row.WeaponType); isNew {
			t.WeaponTypes = append(t.WeaponTypes, models.WeaponType{ID: id, Name: row.WeaponType})
		}
	}

	return t
}
