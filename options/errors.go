package options

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyValue is returned when a present value is an empty string.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrNegativeClockSkew is returned when the clock skew is below zero.
	ErrNegativeClockSkew = errors.New("clock skew cannot be negative")
)

// ErrNilField is returned by New when an optional field is a nil pointer
// instead of Some or None.
type ErrNilField struct {
	Field string
}

func (e *ErrNilField) Error() string {
	return fmt.Sprintf("%s cannot be nil (use options.None to leave it unset)", e.Field)
}
