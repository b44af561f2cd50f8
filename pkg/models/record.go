package models

// RawRecordSet is the denormalized input table: a header row and the data
// rows, all as strings exactly as read from the source file.
type RawRecordSet struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex maps each header name to its position.
// When a name repeats, the first position wins.
func (s *RawRecordSet) ColumnIndex() map[string]int {
	idx := make(map[string]int, len(s.Columns))
	for i, c := range s.Columns {
		if _, ok := idx[c]; !ok {
			idx[c] = i
		}
	}
	return idx
}

// CanonicalRecord is one cleaned input row using canonical column names.
// Numeric fields are nil when not reported.
type CanonicalRecord struct {
	EventID string

	Year  *int
	Month *int
	Day   *int

	// The Malformed flags mark date parts whose source value was present
	// but not an integer. The matching pointer is nil.
	YearMalformed  bool
	MonthMalformed bool
	DayMalformed   bool

	Country   string
	Region    string
	State     string
	City      string
	Latitude  *float64
	Longitude *float64

	AttackType string
	Killed     *int64
	Wounded    *int64

	Target     string
	TargetType string
	Summary    string
	Group      string
	WeaponType string
	Motive     string

	Perpetrators *int64
}

// RegionKey returns the region uniqueness key of the row.
func (r *CanonicalRecord) RegionKey() RegionKey {
	return RegionKey{Name: r.Region, Country: r.Country, State: r.State, City: r.City}
}

// TargetKey returns the target uniqueness key of the row.
func (r *CanonicalRecord) TargetKey() TargetKey {
	return TargetKey{Name: r.Target, Type: r.TargetType}
}
