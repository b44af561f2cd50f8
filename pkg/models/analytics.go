package models

// IncidentFact is the slim per-incident view the aggregation layer reads:
// dimension names already joined, casualty counts as stored.
type IncidentFact struct {
	EventID    string
	Region     string
	Group      *string
	AttackType string
	Killed     *int64
	Wounded    *int64
}

// FactFilter narrows the incidents streamed to the aggregation layer.
// Empty fields do not filter.
type FactFilter struct {
	Region string
}

// Coordinate is a reference latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// AttackTypeSeverity is one row of the attack-type severity ranking.
// Totals are nil when no contributing incident reported a value.
type AttackTypeSeverity struct {
	AttackType    string `json:"attack_type" yaml:"attack_type"`
	TotalAttacks  int64  `json:"total_attacks" yaml:"total_attacks"`
	TotalKilled   *int64 `json:"total_killed" yaml:"total_killed"`
	TotalWounded  *int64 `json:"total_wounded" yaml:"total_wounded"`
	SeverityScore *int64 `json:"severity_score" yaml:"severity_score"`
}

// RegionSeverity is one row of the region severity ranking.
type RegionSeverity struct {
	Region                   string      `json:"region" yaml:"region"`
	TotalAttacks             int64       `json:"total_attacks" yaml:"total_attacks"`
	AvgSeverityScorePerEvent float64     `json:"avg_severity_score_per_event" yaml:"avg_severity_score_per_event"`
	Location                 *Coordinate `json:"location" yaml:"location"`
}

// GroupCasualties is one row of the deadliest-groups ranking.
type GroupCasualties struct {
	GroupName       string `json:"group_name" yaml:"group_name"`
	TotalAttacks    int64  `json:"total_attacks" yaml:"total_attacks"`
	TotalCasualties int64  `json:"total_casualties" yaml:"total_casualties"`
}

// GroupActivity is an incident count for one group inside a region.
type GroupActivity struct {
	GroupName   string `json:"group_name" yaml:"group_name"`
	AttackCount int64  `json:"attack_count" yaml:"attack_count"`
}

// ActiveGroupsInRegion holds the most active groups of one region.
type ActiveGroupsInRegion struct {
	TopGroups []GroupActivity `json:"top_groups" yaml:"top_groups"`
	Location  *Coordinate     `json:"location" yaml:"location"`
}

// CorrelationStats are the casualty statistics of one region.
type CorrelationStats struct {
	TotalEvents      int64   `json:"total_events" yaml:"total_events"`
	TotalCasualties  int64   `json:"total_casualties" yaml:"total_casualties"`
	AvgCasualties    float64 `json:"avg_casualties" yaml:"avg_casualties"`
	CorrelationScore float64 `json:"correlation_score" yaml:"correlation_score"`
}

// RegionCorrelation pairs a region's reference location with its stats.
type RegionCorrelation struct {
	Location Coordinate       `json:"location" yaml:"location"`
	Stats    CorrelationStats `json:"stats" yaml:"stats"`
}

// DashboardSummary bundles every aggregation computed with default parameters.
type DashboardSummary struct {
	TopAttackTypes     []AttackTypeSeverity            `json:"top_attack_types" yaml:"top_attack_types"`
	RegionSeverity     []RegionSeverity                `json:"region_severity" yaml:"region_severity"`
	DeadliestGroups    []GroupCasualties               `json:"deadliest_groups" yaml:"deadliest_groups"`
	ActiveGroups       map[string]ActiveGroupsInRegion `json:"active_groups" yaml:"active_groups"`
	RegionCorrelations map[string]RegionCorrelation    `json:"region_correlations" yaml:"region_correlations"`
}
