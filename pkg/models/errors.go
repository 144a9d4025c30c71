package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is. Each typed error below matches exactly one of them.
var (
	ErrSchema              = errors.New("schema error")
	ErrInsufficientData    = errors.New("insufficient data")
	ErrDegenerateRate      = errors.New("degenerate rate")
	ErrPrerequisiteMissing = errors.New("prerequisite missing")
	ErrInvalidRange        = errors.New("invalid range")
)

// SchemaError reports required columns absent from a source table.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s table is missing required column(s): %s", e.Table, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// InsufficientDataError reports an empty or too-small window.
type InsufficientDataError struct {
	What   string
	Detail string
}

func (e *InsufficientDataError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("insufficient data for %s", e.What)
	}
	return fmt.Sprintf("insufficient data for %s: %s", e.What, e.Detail)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// DegenerateRateError reports a rate that would make an inversion divide by zero.
type DegenerateRateError struct {
	Rate  string
	Value float64
}

func (e *DegenerateRateError) Error() string {
	return fmt.Sprintf("degenerate %s %.4f: required capacity is unbounded", e.Rate, e.Value)
}

func (e *DegenerateRateError) Is(target error) bool { return target == ErrDegenerateRate }

// PrerequisiteMissingError names the upstream result a step needs but does not have.
type PrerequisiteMissingError struct {
	Step    string
	Missing string
}

func (e *PrerequisiteMissingError) Error() string {
	return fmt.Sprintf("%s requires %s, which has not been computed", e.Step, e.Missing)
}

func (e *PrerequisiteMissingError) Is(target error) bool { return target == ErrPrerequisiteMissing }

// InvalidRangeError reports a parameter outside its permitted range.
type InvalidRangeError struct {
	Field  string
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidRangeError) Is(target error) bool { return target == ErrInvalidRange }

// ErrorKind returns the label surfaced to the UI for a failed computation chain,
// or "" when err is not one of the calculator's error kinds.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSchema):
		return "SchemaError"
	case errors.Is(err, ErrInsufficientData):
		return "InsufficientDataError"
	case errors.Is(err, ErrDegenerateRate):
		return "DegenerateRateError"
	case errors.Is(err, ErrPrerequisiteMissing):
		return "PrerequisiteMissingError"
	case errors.Is(err, ErrInvalidRange):
		return "InvalidRangeError"
	}
	return ""
}
