package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrSchema            = errors.New("input schema mismatch")
	ErrInvalidDate       = errors.New("invalid incident date")
	ErrUnresolvedRef     = errors.New("unresolved reference")
	ErrMissingID         = errors.New("missing incident identifier")
	ErrDuplicateID       = errors.New("duplicate incident identifier")
	ErrLoadTransaction   = errors.New("load transaction failed")
	ErrInvalidQueryLimit = errors.New("limit must be a non-negative integer")
)

// SchemaError reports required source columns that are absent from the input.
// It is fatal and is raised before anything is written.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// InvalidDateError rejects a single row whose year/month/day cannot form a date.
type InvalidDateError struct {
	EventID string
	Year    *int
	Month   *int
	Day     *int
	Reason  string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("incident %q: invalid date (year=%s month=%s day=%s): %s",
		e.EventID, formatPart(e.Year), formatPart(e.Month), formatPart(e.Day), e.Reason)
}

func (e *InvalidDateError) Unwrap() error { return ErrInvalidDate }

// UnresolvedReferenceError rejects a single row whose mandatory dimension
// (region or attack type) has no lookup row.
type UnresolvedReferenceError struct {
	EventID   string
	Dimension string
	Key       string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("incident %q: %s %q does not resolve to a lookup row", e.EventID, e.Dimension, e.Key)
}

func (e *UnresolvedReferenceError) Unwrap() error { return ErrUnresolvedRef }

// MissingIdentifierError rejects a single row with an empty event id.
// Row is 1-based over the data rows.
type MissingIdentifierError struct {
	Row int
}

func (e *MissingIdentifierError) Error() string {
	return fmt.Sprintf("row %d: incident has no event id", e.Row)
}

func (e *MissingIdentifierError) Unwrap() error { return ErrMissingID }

// DuplicateIdentifierError is soft: the duplicate row is dropped and the
// first occurrence kept.
type DuplicateIdentifierError struct {
	EventID string
	Row     int
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("incident %q repeated at row %d; keeping first occurrence", e.EventID, e.Row)
}

func (e *DuplicateIdentifierError) Unwrap() error { return ErrDuplicateID }

// LoadTransactionError wraps any failure of the persist phase. The
// transaction has been rolled back when this is returned.
type LoadTransactionError struct {
	Stage string
	Err   error
}

func (e *LoadTransactionError) Error() string {
	return fmt.Sprintf("load failed during %s: %v", e.Stage, e.Err)
}

func (e *LoadTransactionError) Unwrap() []error { return []error{ErrLoadTransaction, e.Err} }

func formatPart(v *int) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%d", *v)
}
