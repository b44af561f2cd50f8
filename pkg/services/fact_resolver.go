package services

import (
	"fmt"
	"time"

	"github.com/ekaya-inc/incident-atlas/pkg/apperrors"
	"github.com/ekaya-inc/incident-atlas/pkg/models"
)

// Resolution is the output of ResolveFacts.
type Resolution struct {
	// Facts are the resolved incidents, unique by EventID, in input order.
	Facts []models.Incident

	// Candidates counts rows that resolved before duplicate removal.
	Candidates int

	// Rejected holds one error per rejected row, in input order. Each is an
	// *apperrors.MissingIdentifierError, *apperrors.InvalidDateError or
	// *apperrors.UnresolvedReferenceError.
	Rejected           []error
	RejectedMissingID  int
	RejectedBadDate    int
	RejectedUnresolved int

	// Duplicates records every dropped repeat of an already-seen EventID.
	Duplicates []*apperrors.DuplicateIdentifierError
}

// ResolveFacts turns canonical rows into fact rows using the lookup tables
// built from the same rows. Rows without an event id, with an unusable date
// or with an unresolved region/attack type are rejected individually; the
// rest of the run continues. Repeated event ids keep their first resolved occurrence.
func ResolveFacts(rows []models.CanonicalRecord, tables *LookupTables) *Resolution {
	res := &Resolution{}
	candidates := make([]models.Incident, 0, len(rows))
	candidateRows := make([]int, 0, len(rows))

	for i := range rows {
		incident, err := resolveRow(i+1, &rows[i], tables)
		if err != nil {
			res.Rejected = append(res.Rejected, err)
			switch err.(type) {
			case *apperrors.MissingIdentifierError:
				res.RejectedMissingID++
			case *apperrors.InvalidDateError:
				res.RejectedBadDate++
			case *apperrors.UnresolvedReferenceError:
				res.RejectedUnresolved++
			}
			continue
		}
		candidates = append(candidates, incident)
		candidateRows = append(candidateRows, i)
	}
	res.Candidates = len(candidates)

	seen := make(map[string]struct{}, len(candidates))
	res.Facts = make([]models.Incident, 0, len(candidates))
	for i, incident := range candidates {
		if _, dup := seen[incident.EventID]; dup {
			res.Duplicates = append(res.Duplicates, &apperrors.DuplicateIdentifierError{
				EventID: incident.EventID,
				Row:     candidateRows[i] + 1,
			})
			continue
		}
		seen[incident.EventID] = struct{}{}
		res.Facts = append(res.Facts, incident)
	}

	return res
}

func resolveRow(rowNum int, row *models.CanonicalRecord, tables *LookupTables) (models.Incident, error) {
	if row.EventID == "" {
		return models.Incident{}, &apperrors.MissingIdentifierError{Row: rowNum}
	}

	date, err := incidentDate(row)
	if err != nil {
		return models.Incident{}, err
	}

	regionID, ok := tables.RegionID(row.RegionKey())
	if !ok {
		key := row.RegionKey()
		return models.Incident{}, &apperrors.UnresolvedReferenceError{
			EventID:   row.EventID,
			Dimension: "region",
			Key:       fmt.Sprintf("%s/%s/%s/%s", key.Name, key.Country, key.State, key.City),
		}
	}
	attackTypeID, ok := tables.AttackTypeID(row.AttackType)
	if !ok {
		return models.Incident{}, &apperrors.UnresolvedReferenceError{
			EventID:   row.EventID,
			Dimension: "attack_type",
			Key:       row.AttackType,
		}
	}

	return models.Incident{
		EventID:         row.EventID,
		Date:            date,
		RegionID:        regionID,
		GroupID:         optionalID(tables.GroupID(row.Group)),
		AttackTypeID:    attackTypeID,
		TargetID:        optionalID(tables.TargetID(row.TargetKey())),
		WeaponTypeID:    optionalID(tables.WeaponTypeID(row.WeaponType)),
		Killed:          row.Killed,
		Wounded:         row.Wounded,
		Summary:         row.Summary,
		Motive:          row.Motive,
		NumPerpetrators: row.Perpetrators,
	}, nil
}

func optionalID(id int64, ok bool) *int64 {
	if !ok {
		return nil
	}
	return &id
}

// incidentDate builds the incident date. Month and day of 0 (or missing)
// mean "unknown" in the source and are normalized to 1.
func incidentDate(row *models.CanonicalRecord) (time.Time, error) {
	invalid := func(reason string) error {
		return &apperrors.InvalidDateError{
			EventID: row.EventID,
			Year:    row.Year,
			Month:   row.Month,
			Day:     row.Day,
			Reason:  reason,
		}
	}

	switch {
	case row.YearMalformed:
		return time.Time{}, invalid("year is not an integer")
	case row.MonthMalformed:
		return time.Time{}, invalid("month is not an integer")
	case row.DayMalformed:
		return time.Time{}, invalid("day is not an integer")
	case row.Year == nil:
		return time.Time{}, invalid("year is missing")
	}
	year := *row.Year
	if year < 1 || year > 9999 {
		return time.Time{}, invalid("year out of range")
	}

	month := defaultToOne(row.Month)
	if month < 1 || month > 12 {
		return time.Time{}, invalid("month out of range")
	}
	day := defaultToOne(row.Day)
	if day < 1 || day > 31 {
		return time.Time{}, invalid("day out of range")
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Month() != time.Month(month) || date.Day() != day {
		return time.Time{}, invalid("day does not exist in month")
	}
	return date, nil
}

func defaultToOne(v *int) int {
	if v == nil || *v == 0 {
		return 1
	}
	return *v
}
