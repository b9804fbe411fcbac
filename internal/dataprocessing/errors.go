package dataprocessing

import (
	"errors"
	"fmt"
	"strings"
)

// Load failures. These are fatal: the dashboard must not render on top of them.
var (
	ErrUnreadable      = errors.New("dataset is not readable as delimited tabular data")
	ErrEmpty           = errors.New("dataset has a header but no data rows")
	ErrMissingColumn   = errors.New("missing required column")
	ErrTooManyBadDates = errors.New("too many unparsable dates")
)

// LoadError wraps a load failure with the source it came from.
// Kind is one of ErrUnreadable or ErrEmpty.
type LoadError struct {
	Kind   error
	Source string
	Err    error
}

// Error implements the error interface
func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %v: %v", e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Source, e.Kind)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func unreadable(source string, err error) error {
	return &LoadError{Kind: ErrUnreadable, Source: source, Err: err}
}

// MissingColumnError names the first required column absent from the header
type MissingColumnError struct {
	Column  string
	Present []string
}

// Error implements the error interface
func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column %q (found: %s)", e.Column, strings.Join(e.Present, ", "))
}

// Is matches ErrMissingColumn
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// DateParseError reports that too large a share of rows had unparsable dates
type DateParseError struct {
	Column   string
	Bad      int
	Total    int
	MaxRatio float64
	Sample   string
}

// Error implements the error interface
func (e *DateParseError) Error() string {
	msg := fmt.Sprintf("column %q: %d of %d values could not be parsed as dates (limit %.0f%%)",
		e.Column, e.Bad, e.Total, e.MaxRatio*100)
	if e.Sample != "" {
		msg += fmt.Sprintf(", e.g. %q", e.Sample)
	}
	return msg
}

// Is matches ErrTooManyBadDates
func (e *DateParseError) Is(target error) bool {
	return target == ErrTooManyBadDates
}
