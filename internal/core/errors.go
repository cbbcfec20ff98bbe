package core

import (
	"errors"
	"fmt"
)

// ErrInconsistentInput is returned by Rebuild when the activity history
// cannot be trusted, e.g. timestamps going backwards. Patterns computed from
// such input would carry meaningless confidence scores.
var ErrInconsistentInput = errors.New("inconsistent activity input")

// ErrDebtTooLarge is returned when a debt amount is too large to schedule.
var ErrDebtTooLarge = errors.New("time debt too large")

// InconsistentInputError pinpoints the record that failed validation.
type InconsistentInputError struct {
	Index  int
	Reason string
}

func (e *InconsistentInputError) Error() string {
	return fmt.Sprintf("%s: record %d: %s", ErrInconsistentInput, e.Index, e.Reason)
}

// Unwrap lets errors.Is match ErrInconsistentInput.
func (e *InconsistentInputError) Unwrap() error {
	return ErrInconsistentInput
}
