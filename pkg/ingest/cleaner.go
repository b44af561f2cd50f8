package ingest

import (
	"math"
	"strconv"
	"strings"

	"github.com/ekaya-inc/incident-atlas/pkg/apperrors"
	"github.com/ekaya-inc/incident-atlas/pkg/models"
)

// Source column names of the GTD export.
const (
	colEventID    = "eventid"
	colYear       = "iyear"
	colMonth      = "imonth"
	colDay        = "iday"
	colCountry    = "country_txt"
	colRegion     = "region_txt"
	colState      = "provstate"
	colCity       = "city"
	colLatitude   = "latitude"
	colLongitude  = "longitude"
	colAttackType = "attacktype1_txt"
	colKilled     = "nkill"
	colWounded    = "nwound"
	colTarget     = "target1"
	colSummary    = "summary"
	colGroup      = "gname"
	colTargetType = "targtype1_txt"
	colWeaponType = "weaptype1_txt"
	colMotive     = "motive"
	colNumPerps   = "nperps"
)

// RequiredColumns lists every source column the cleaner selects, in the
// order they are reported when missing.
var RequiredColumns = []string{
	colEventID,
	colYear, colMonth, colDay,
	colCountry, colRegion, colState, colCity,
	colLatitude, colLongitude,
	colAttackType,
	colKilled, colWounded,
	colTarget, colSummary, colGroup,
	colTargetType, colWeaponType,
	colMotive,
	colNumPerps,
}

// missingTokens are the cell values treated as "no value".
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"NULL": {},
	"null": {},
}

// Clean selects the required columns, renames them to canonical fields and
// sanitizes values. Negative casualty and perpetrator counts become nil
// (not reported); missing text becomes "Unknown". The row count is never
// changed. A *apperrors.SchemaError is returned when any required column is
// absent.
func Clean(set *models.RawRecordSet) ([]models.CanonicalRecord, error) {
	idx := set.ColumnIndex()

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &apperrors.SchemaError{Missing: missing}
	}

	out := make([]models.CanonicalRecord, len(set.Rows))
	for i, row := range set.Rows {
		get := func(col string) string {
			pos := idx[col]
			if pos >= len(row) {
				return ""
			}
			return row[pos]
		}

		year, yearOK := parseInt(get(colYear))
		month, monthOK := parseInt(get(colMonth))
		day, dayOK := parseInt(get(colDay))

		out[i] = models.CanonicalRecord{
			EventID: strings.TrimSpace(get(colEventID)),

			Year:           year,
			Month:          month,
			Day:            day,
			YearMalformed:  !yearOK,
			MonthMalformed: !monthOK,
			DayMalformed:   !dayOK,

			Country:   textOrUnknown(get(colCountry)),
			Region:    textOrUnknown(get(colRegion)),
			State:     textOrUnknown(get(colState)),
			City:      textOrUnknown(get(colCity)),
			Latitude:  parseFloat(get(colLatitude)),
			Longitude: parseFloat(get(colLongitude)),

			AttackType: textOrUnknown(get(colAttackType)),
			Killed:     parseCount(get(colKilled)),
			Wounded:    parseCount(get(colWounded)),

			Target:     textOrUnknown(get(colTarget)),
			TargetType: textOrUnknown(get(colTargetType)),
			Summary:    textOrUnknown(get(colSummary)),
			Group:      textOrUnknown(get(colGroup)),
			WeaponType: textOrUnknown(get(colWeaponType)),
			Motive:     textOrUnknown(get(colMotive)),

			Perpetrators: parseCount(get(colNumPerps)),
		}
	}

	return out, nil
}

func isMissing(v string) bool {
	_, ok := missingTokens[strings.TrimSpace(v)]
	return ok
}

func textOrUnknown(v string) string {
	if isMissing(v) {
		return models.UnknownValue
	}
	return v
}

func parseFloat(v string) *float64 {
	if isMissing(v) {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// parseInt accepts integral values written either as "7" or "7.0". A
// missing value yields (nil, true); a present value that is not an integer
// in int32 range yields (nil, false).
func parseInt(v string) (*int, bool) {
	if isMissing(v) {
		return nil, true
	}
	f := parseFloat(v)
	if f == nil || *f != math.Trunc(*f) || math.Abs(*f) > math.MaxInt32 {
		return nil, false
	}
	n := int(*f)
	return &n, true
}

// parseCount parses a non-negative count. Values below zero are the
// source's "unknown" markers (e.g. -99) and become nil, as do values beyond
// the INTEGER columns they are stored in.
func parseCount(v string) *int64 {
	f := parseFloat(v)
	if f == nil || *f < 0 || *f > math.MaxInt32 {
		return nil
	}
	n := int64(*f)
	return &n
}
