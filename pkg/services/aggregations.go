package services

import (
	"math"
	"sort"

	"github.com/ekaya-inc/incident-atlas/pkg/models"
)

// Default result sizes when the caller passes a non-positive limit.
const (
	DefaultDeadliestGroupsLimit = 5
	DefaultActiveGroupsLimit    = 5
)

// regionReferenceCoordinates is the shared reference location of each known
// region name. Regions missing here get no location.
var regionReferenceCoordinates = map[string]models.Coordinate{
	"East Asia":                   {Lat: 35.8617, Lng: 104.1954},
	"Sub-Saharan Africa":          {Lat: -8.7832, Lng: 34.5085},
	"Middle East & North Africa":  {Lat: 26.8206, Lng: 30.8025},
	"North America":               {Lat: 40.7128, Lng: -74.0060},
	"South Asia":                  {Lat: 20.5937, Lng: 78.9629},
	"Central Asia":                {Lat: 41.2044, Lng: 74.7661},
	"Central America & Caribbean": {Lat: 15.7835, Lng: -90.2308},
	"Eastern Europe":              {Lat: 50.4501, Lng: 30.5234},
	"Southeast Asia":              {Lat: 13.7563, Lng: 100.5018},
	"South America":               {Lat: -15.7975, Lng: -47.8919},
	"Australasia & Oceania":       {Lat: -25.2744, Lng: 133.7751},
	"Western Europe":              {Lat: 48.8566, Lng: 2.3522},
}

// RegionLocation returns the reference coordinate of a region name.
func RegionLocation(region string) (models.Coordinate, bool) {
	c, ok := regionReferenceCoordinates[region]
	return c, ok
}

func regionLocationPtr(region string) *models.Coordinate {
	c, ok := regionReferenceCoordinates[region]
	if !ok {
		return nil
	}
	return &c
}

func int64Ptr(v int64) *int64 { return &v }

func valueOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// weightedSeverity is 2×killed + wounded with nulls as 0.
func weightedSeverity(f *models.IncidentFact) int64 {
	return 2*valueOrZero(f.Killed) + valueOrZero(f.Wounded)
}

// factAccumulator consumes incident facts one at a time in retrieval order.
type factAccumulator interface {
	add(f *models.IncidentFact)
}

// attackTypeAccumulator ranks attack types by summed weighted severity.
type attackTypeAccumulator struct {
	order  []string
	totals map[string]*attackTypeTotals
}

type attackTypeTotals struct {
	attacks     int64
	killed      int64
	wounded     int64
	killedSeen  bool
	woundedSeen bool
}

func newAttackTypeAccumulator() *attackTypeAccumulator {
	return &attackTypeAccumulator{totals: make(map[string]*attackTypeTotals)}
}

func (a *attackTypeAccumulator) add(f *models.IncidentFact) {
	t, ok := a.totals[f.AttackType]
	if !ok {
		t = &attackTypeTotals{}
		a.totals[f.AttackType] = t
		a.order = append(a.order, f.AttackType)
	}
	t.attacks++
	if f.Killed != nil {
		t.killed += *f.Killed
		t.killedSeen = true
	}
	if f.Wounded != nil {
		t.wounded += *f.Wounded
		t.woundedSeen = true
	}
}

// result sorts by severity descending with nil severities last. Ties keep
// first-seen order. limit <= 0 returns every attack type.
func (a *attackTypeAccumulator) result(limit int) []models.AttackTypeSeverity {
	out := make([]models.AttackTypeSeverity, 0, len(a.order))
	for _, name := range a.order {
		t := a.totals[name]
		row := models.AttackTypeSeverity{AttackType: name, TotalAttacks: t.attacks}
		if t.killedSeen {
			row.TotalKilled = int64Ptr(t.killed)
		}
		if t.woundedSeen {
			row.TotalWounded = int64Ptr(t.wounded)
		}
		if t.killedSeen || t.woundedSeen {
			row.SeverityScore = int64Ptr(2*t.killed + t.wounded)
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].SeverityScore, out[j].SeverityScore
		if si == nil || sj == nil {
			return si != nil && sj == nil
		}
		return *si > *sj
	})
	return truncate(out, limit)
}

// regionSeverityAccumulator averages weighted severity per region name.
type regionSeverityAccumulator struct {
	order  []string
	totals map[string]*regionSeverityTotals
}

type regionSeverityTotals struct {
	attacks  int64
	severity int64
}

func newRegionSeverityAccumulator() *regionSeverityAccumulator {
	return &regionSeverityAccumulator{totals: make(map[string]*regionSeverityTotals)}
}

func (a *regionSeverityAccumulator) add(f *models.IncidentFact) {
	t, ok := a.totals[f.Region]
	if !ok {
		t = &regionSeverityTotals{}
		a.totals[f.Region] = t
		a.order = append(a.order, f.Region)
	}
	t.attacks++
	t.severity += weightedSeverity(f)
}

func (a *regionSeverityAccumulator) result(limit int) []models.RegionSeverity {
	out := make([]models.RegionSeverity, 0, len(a.order))
	for _, name := range a.order {
		t := a.totals[name]
		out = append(out, models.RegionSeverity{
			Region:                   name,
			TotalAttacks:             t.attacks,
			AvgSeverityScorePerEvent: float64(t.severity) / float64(t.attacks),
			Location:                 regionLocationPtr(name),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AvgSeverityScorePerEvent > out[j].AvgSeverityScorePerEvent
	})
	return truncate(out, limit)
}

// groupCasualtyAccumulator sums killed + wounded per group with equal
// weights. Incidents without a group are skipped.
type groupCasualtyAccumulator struct {
	order  []string
	totals map[string]*models.GroupCasualties
}

func newGroupCasualtyAccumulator() *groupCasualtyAccumulator {
	return &groupCasualtyAccumulator{totals: make(map[string]*models.GroupCasualties)}
}

func (a *groupCasualtyAccumulator) add(f *models.IncidentFact) {
	if f.Group == nil {
		return
	}
	t, ok := a.totals[*f.Group]
	if !ok {
		t = &models.GroupCasualties{GroupName: *f.Group}
		a.totals[*f.Group] = t
		a.order = append(a.order, *f.Group)
	}
	t.TotalAttacks++
	t.TotalCasualties += valueOrZero(f.Killed) + valueOrZero(f.Wounded)
}

func (a *groupCasualtyAccumulator) result(limit int) []models.GroupCasualties {
	if limit <= 0 {
		limit = DefaultDeadliestGroupsLimit
	}
	out := make([]models.GroupCasualties, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, *a.totals[name])
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalCasualties > out[j].TotalCasualties
	})
	return truncate(out, limit)
}

// activeGroupsAccumulator counts incidents per (region, group). The
// "Unknown" sentinel group and incidents without a group are excluded.
type activeGroupsAccumulator struct {
	counts map[string]map[string]int64
}

func newActiveGroupsAccumulator() *activeGroupsAccumulator {
	return &activeGroupsAccumulator{counts: make(map[string]map[string]int64)}
}

func (a *activeGroupsAccumulator) add(f *models.IncidentFact) {
	if f.Group == nil || *f.Group == models.UnknownValue {
		return
	}
	groups, ok := a.counts[f.Region]
	if !ok {
		groups = make(map[string]int64)
		a.counts[f.Region] = groups
	}
	groups[*f.Group]++
}

func (a *activeGroupsAccumulator) result(limit int) map[string]models.ActiveGroupsInRegion {
	if limit <= 0 {
		limit = DefaultActiveGroupsLimit
	}
	out := make(map[string]models.ActiveGroupsInRegion, len(a.counts))
	for region, groups := range a.counts {
		top := make([]models.GroupActivity, 0, len(groups))
		for name, count := range groups {
			top = append(top, models.GroupActivity{GroupName: name, AttackCount: count})
		}
		sort.Slice(top, func(i, j int) bool {
			if top[i].AttackCount != top[j].AttackCount {
				return top[i].AttackCount > top[j].AttackCount
			}
			return top[i].GroupName < top[j].GroupName
		})
		out[region] = models.ActiveGroupsInRegion{
			TopGroups: truncate(top, limit),
			Location:  regionLocationPtr(region),
		}
	}
	return out
}

// correlationAccumulator keeps the per-event casualty sequence of every
// region that has a reference coordinate.
type correlationAccumulator struct {
	casualties map[string][]float64
	totals     map[string]int64
}

func newCorrelationAccumulator() *correlationAccumulator {
	return &correlationAccumulator{
		casualties: make(map[string][]float64),
		totals:     make(map[string]int64),
	}
}

func (a *correlationAccumulator) add(f *models.IncidentFact) {
	if _, ok := regionReferenceCoordinates[f.Region]; !ok {
		return
	}
	c := valueOrZero(f.Killed) + valueOrZero(f.Wounded)
	a.casualties[f.Region] = append(a.casualties[f.Region], float64(c))
	a.totals[f.Region] += c
}

func (a *correlationAccumulator) result() map[string]models.RegionCorrelation {
	out := make(map[string]models.RegionCorrelation, len(a.casualties))
	for region, series := range a.casualties {
		n := int64(len(series))
		total := a.totals[region]
		out[region] = models.RegionCorrelation{
			Location: regionReferenceCoordinates[region],
			Stats: models.CorrelationStats{
				TotalEvents:      n,
				TotalCasualties:  total,
				AvgCasualties:    float64(total) / float64(n),
				CorrelationScore: sequenceCorrelation(series),
			},
		}
	}
	return out
}

// sequenceCorrelation is the Pearson coefficient between the event index
// 0..n-1 and ys. Undefined coefficients are reported as 0.
func sequenceCorrelation(ys []float64) float64 {
	n := len(ys)
	if n < 2 {
		return 0
	}

	meanX := float64(n-1) / 2
	var meanY float64
	for _, y := range ys {
		meanY += y
	}
	meanY /= float64(n)

	var sxy, sxx, syy float64
	for i, y := range ys {
		dx := float64(i) - meanX
		dy := y - meanY
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}

	r := sxy / math.Sqrt(sxx*syy)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

func truncate[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
