package models

import "time"

// UnknownValue replaces missing text and category values during cleaning.
// It is also the sentinel group name for incidents with no known actor.
const UnknownValue = "Unknown"

// Region is a geographic lookup row. Its uniqueness key is
// (Name, Country, State, City); coordinates are informational only.
type Region struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Country   string   `json:"country"`
	State     string   `json:"state"`
	City      string   `json:"city"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Key returns the uniqueness key of the region.
func (r Region) Key() RegionKey {
	return RegionKey{Name: r.Name, Country: r.Country, State: r.State, City: r.City}
}

// RegionKey is the uniqueness key of a Region.
type RegionKey struct {
	Name    string
	Country string
	State   string
	City    string
}

// Group is an actor (perpetrator organization) lookup row.
type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AttackType is an attack-method lookup row.
type AttackType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Target is a target lookup row keyed by (Name, Type).
type Target struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Key returns the uniqueness key of the target.
func (t Target) Key() TargetKey {
	return TargetKey{Name: t.Name, Type: t.Type}
}

// TargetKey is the uniqueness key of a Target.
type TargetKey struct {
	Name string
	Type string
}

// WeaponType is a weapon-class lookup row.
type WeaponType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Incident is one row of the fact table.
type Incident struct {
	EventID         string    `json:"event_id"`
	Date            time.Time `json:"date"`
	RegionID        int64     `json:"region_id"`
	GroupID         *int64    `json:"group_id,omitempty"`
	AttackTypeID    int64     `json:"attack_type_id"`
	TargetID        *int64    `json:"target_id,omitempty"`
	WeaponTypeID    *int64    `json:"weapon_type_id,omitempty"`
	Killed          *int64    `json:"killed,omitempty"`
	Wounded         *int64    `json:"wounded,omitempty"`
	Summary         string    `json:"summary"`
	Motive          string    `json:"motive"`
	NumPerpetrators *int64    `json:"num_perpetrators,omitempty"`
}

// Snapshot is the complete set of rows produced by one pipeline run.
// Persisting it replaces whatever was loaded before.
type Snapshot struct {
	Regions     []Region
	Groups      []Group
	AttackTypes []AttackType
	Targets     []Target
	WeaponTypes []WeaponType
	Incidents   []Incident
}

// LoadStats counts the rows written per table by a snapshot replacement.
type LoadStats struct {
	Regions     int64 `json:"regions"`
	Groups      int64 `json:"groups"`
	AttackTypes int64 `json:"attack_types"`
	Targets     int64 `json:"targets"`
	WeaponTypes int64 `json:"weapon_types"`
	Incidents   int64 `json:"incidents"`
	Chunks      int   `json:"chunks"`
}
