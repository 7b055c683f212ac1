package core

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField   = errors.New("missing required field")
	ErrMissingColumn  = errors.New("missing required column")
	ErrInvalidMonth   = errors.New("invalid month")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("negative amount")
	ErrNoRows         = errors.New("no claim rows")

	ErrOrdinalOutOfRange = errors.New("month ordinal out of range")
	ErrInvertedRange     = errors.New("min ordinal greater than max ordinal")
)

// IngestError reports a row or column that cannot be loaded. It is fatal:
// the process must not serve queries when loading fails.
type IngestError struct {
	Row   int // 1-based data row; 0 when the problem is not tied to a row
	Field string
	Value string
	Err   error
}

func (e *IngestError) Error() string {
	switch {
	case e.Row > 0 && e.Value != "":
		return fmt.Sprintf("ingest row %d, field %s (%q): %v", e.Row, e.Field, e.Value, e.Err)
	case e.Row > 0:
		return fmt.Sprintf("ingest row %d, field %s: %v", e.Row, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("ingest field %s: %v", e.Field, e.Err)
	default:
		return fmt.Sprintf("ingest: %v", e.Err)
	}
}

func (e *IngestError) Unwrap() error { return e.Err }

// SelectionError rejects a query whose ordinals do not describe a valid
// range over the month index. Nothing is clamped.
type SelectionError struct {
	Min    int
	Max    int
	Months int
	Err    error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("invalid selection [%d, %d] over %d months: %v", e.Min, e.Max, e.Months, e.Err)
}

func (e *SelectionError) Unwrap() error { return e.Err }

// IsSelectionError reports whether err is (or wraps) a SelectionError.
func IsSelectionError(err error) bool {
	var se *SelectionError
	return errors.As(err, &se)
}

// IsIngestError reports whether err is (or wraps) an IngestError.
func IsIngestError(err error) bool {
	var ie *IngestError
	return errors.As(err, &ie)
}
