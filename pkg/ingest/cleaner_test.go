package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/incident-atlas/pkg/apperrors"
	"github.com/ekaya-inc/incident-atlas/pkg/models"
)

// rawRow builds a source row keyed by column name; unspecified columns are empty.
func rawRow(columns []string, values map[string]string) []string {
	row := make([]string, len(columns))
	for i, c := range columns {
		row[i] = values[c]
	}
	return row
}

func TestClean_RenamesAndSanitizes(t *testing.T) {
	columns := append([]string{"extra_col"}, RequiredColumns...)
	set := &models.RawRecordSet{
		Columns: columns,
		Rows: [][]string{
			rawRow(columns, map[string]string{
				"eventid":         "197000000001",
				"iyear":           "1970",
				"imonth":          "7",
				"iday":            "2",
				"country_txt":     "Dominican Republic",
				"region_txt":      "Central America & Caribbean",
				"provstate":       "",
				"city":            "Santo Domingo",
				"latitude":        "18.456792",
				"longitude":       "-69.951164",
				"attacktype1_txt": "Assassination",
				"nkill":           "1.0",
				"nwound":          "0",
				"target1":         "Julio Guzman",
				"summary":         "",
				"gname":           "MANO-D",
				"targtype1_txt":   "Private Citizens & Property",
				"weaptype1_txt":   "Unknown",
				"motive":          "NaN",
				"nperps":          "-99",
			}),
		},
	}

	rows, err := Clean(set)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, "197000000001", r.EventID)
	require.NotNil(t, r.Year)
	assert.Equal(t, 1970, *r.Year)
	assert.Equal(t, 7, *r.Month)
	assert.Equal(t, 2, *r.Day)
	assert.Equal(t, "Central America & Caribbean", r.Region)
	assert.Equal(t, models.UnknownValue, r.State)
	assert.Equal(t, "Santo Domingo", r.City)
	require.NotNil(t, r.Latitude)
	assert.InDelta(t, 18.456792, *r.Latitude, 1e-9)
	require.NotNil(t, r.Killed)
	assert.Equal(t, int64(1), *r.Killed)
	require.NotNil(t, r.Wounded)
	assert.Equal(t, int64(0), *r.Wounded)
	assert.Equal(t, models.UnknownValue, r.Summary)
	assert.Equal(t, models.UnknownValue, r.Motive)
	assert.Nil(t, r.Perpetrators, "negative perpetrator count is not reported, not zero")
	assert.Equal(t, "Private Citizens & Property", r.TargetType)
}

func TestClean_NegativeCountsBecomeNil(t *testing.T) {
	columns := RequiredColumns
	set := &models.RawRecordSet{
		Columns: columns,
		Rows: [][]string{
			rawRow(columns, map[string]string{"eventid": "1", "iyear": "2001", "nkill": "-9", "nwound": "-1", "nperps": "3"}),
			rawRow(columns, map[string]string{"eventid": "2", "iyear": "2001", "nkill": "", "nwound": "abc"}),
		},
	}

	rows, err := Clean(set)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Nil(t, rows[0].Killed)
	assert.Nil(t, rows[0].Wounded)
	require.NotNil(t, rows[0].Perpetrators)
	assert.Equal(t, int64(3), *rows[0].Perpetrators)

	assert.Nil(t, rows[1].Killed)
	assert.Nil(t, rows[1].Wounded)
	assert.Nil(t, rows[1].Perpetrators)
	assert.Nil(t, rows[1].Month)
	assert.Equal(t, models.UnknownValue, rows[1].Group)
	assert.Equal(t, models.UnknownValue, rows[1].Region)
}

func TestClean_OutOfRangeCountsBecomeNil(t *testing.T) {
	columns := RequiredColumns
	set := &models.RawRecordSet{
		Columns: columns,
		Rows: [][]string{
			rawRow(columns, map[string]string{"eventid": "1", "nkill": "1e20", "nwound": "2147483648", "nperps": "2147483647"}),
		},
	}

	rows, err := Clean(set)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Nil(t, rows[0].Killed)
	assert.Nil(t, rows[0].Wounded)
	require.NotNil(t, rows[0].Perpetrators)
	assert.Equal(t, int64(2147483647), *rows[0].Perpetrators)
}

func TestClean_MalformedDateParts(t *testing.T) {
	columns := RequiredColumns
	set := &models.RawRecordSet{
		Columns: columns,
		Rows: [][]string{
			rawRow(columns, map[string]string{"eventid": "1", "iyear": "2020", "imonth": "garbage", "iday": "5"}),
			rawRow(columns, map[string]string{"eventid": "2", "iyear": "20x0", "imonth": "", "iday": "2.5"}),
			rawRow(columns, map[string]string{"eventid": "3", "iyear": "2020", "imonth": "NaN", "iday": "0"}),
		},
	}

	rows, err := Clean(set)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Nil(t, rows[0].Month)
	assert.True(t, rows[0].MonthMalformed)
	assert.False(t, rows[0].YearMalformed)
	assert.False(t, rows[0].DayMalformed)

	assert.True(t, rows[1].YearMalformed)
	assert.False(t, rows[1].MonthMalformed, "an empty cell is missing, not malformed")
	assert.True(t, rows[1].DayMalformed)

	assert.Nil(t, rows[2].Month)
	assert.False(t, rows[2].MonthMalformed, "NaN is a missing-value token")
	require.NotNil(t, rows[2].Day)
	assert.Equal(t, 0, *rows[2].Day)
}

func TestClean_PreservesRowCount(t *testing.T) {
	columns := RequiredColumns
	set := &models.RawRecordSet{Columns: columns}
	for i := 0; i < 25; i++ {
		set.Rows = append(set.Rows, rawRow(columns, map[string]string{"eventid": "dup"}))
	}

	rows, err := Clean(set)
	require.NoError(t, err)
	assert.Len(t, rows, 25)
}

func TestClean_MissingColumns(t *testing.T) {
	set := &models.RawRecordSet{
		Columns: []string{"eventid", "iyear", "imonth", "iday"},
		Rows:    [][]string{{"1", "2000", "1", "1"}},
	}

	rows, err := Clean(set)
	require.Error(t, err)
	assert.Nil(t, rows)

	var schemaErr *apperrors.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Contains(t, schemaErr.Missing, "gname")
	assert.Contains(t, schemaErr.Missing, "nperps")
	assert.NotContains(t, schemaErr.Missing, "eventid")
	assert.True(t, errors.Is(err, apperrors.ErrSchema))
}

func TestClean_ShortRowsReadAsMissing(t *testing.T) {
	set := &models.RawRecordSet{
		Columns: RequiredColumns,
		Rows:    [][]string{{"42", "1999"}},
	}

	rows, err := Clean(set)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "42", rows[0].EventID)
	assert.Equal(t, 1999, *rows[0].Year)
	assert.Equal(t, models.UnknownValue, rows[0].Country)
}
